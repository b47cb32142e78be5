package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"jobbot/internal/model"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	userID := cb.From.ID

	if _, err := b.api.Send(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Error("ack callback", "error", err)
	}

	parts := strings.SplitN(cb.Data, ":", 2)
	if len(parts) != 2 {
		return
	}
	actionStr, jobID := parts[0], parts[1]

	var action model.InteractionAction
	switch actionStr {
	case "like":
		action = model.ActionLike
	case "dislike":
		action = model.ActionDislike
	default:
		return
	}

	b.log.Info("feedback", "action", action, "job_id", jobID, "user_id", userID)

	job, err := b.store.GetJob(ctx, jobID)
	if err != nil {
		b.reply(chatID, "This job is no longer available.")
		return
	}

	if err := b.store.LogInteraction(ctx, userID, jobID, action); err != nil {
		b.log.Error("log feedback interaction", "user_id", userID, "job_id", jobID, "error", err)
	}

	if err := b.profile.ApplyFeedback(ctx, userID, *job, action); err != nil {
		b.log.Error("apply feedback", "user_id", userID, "job_id", jobID, "error", err)
		b.reply(chatID, "Could not record your feedback right now.")
		return
	}

	if action == model.ActionLike {
		b.reply(chatID, "Liked! Your profile has been updated.")
	} else {
		b.reply(chatID, "Disliked! Your profile has been updated.")
	}
}
