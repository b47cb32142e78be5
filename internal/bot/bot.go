package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"jobbot/internal/config"
	"jobbot/internal/model"
	"jobbot/internal/profile"
	"jobbot/internal/search"
	"jobbot/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram front end: it handles user commands and delivers
// job cards and digest messages.
type Bot struct {
	api       telegramAPI
	store     storage.Storage
	profile   *profile.Service
	retriever *search.Retriever
	client    search.JobSearchClient
	cfg       *config.Config
	log       *slog.Logger
}

// New creates a Bot with the given Telegram token and collaborators.
func New(token string, store storage.Storage, prof *profile.Service, retriever *search.Retriever, client search.JobSearchClient, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Bot{
		api:       api,
		store:     store,
		profile:   prof,
		retriever: retriever,
		client:    client,
		cfg:       cfg,
		log:       log,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendMessage sends a plain text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

// SendJobCard sends a formatted job posting with like/dislike buttons.
func (b *Bot) SendJobCard(chatID int64, job model.JobPosting, score float64, matched []string) {
	msg := tgbotapi.NewMessage(chatID, FormatJobCard(job, score, matched))
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = jobKeyboard(job)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send job card", "chat_id", chatID, "job_id", job.ID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func jobKeyboard(job model.JobPosting) tgbotapi.InlineKeyboardMarkup {
	feedbackRow := tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Like", "like:"+job.ID),
		tgbotapi.NewInlineKeyboardButtonData("Dislike", "dislike:"+job.ID),
	)
	if job.URL == "" {
		return tgbotapi.NewInlineKeyboardMarkup(feedbackRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		feedbackRow,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("View job", job.URL),
		),
	)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID
	userID := msg.From.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "user_id", userID)

	switch cmd {
	case "start":
		b.handleStart(ctx, chatID, userID, msg.From.UserName)
	case "help":
		b.handleHelp(chatID)
	case "more":
		b.handleMore(ctx, chatID, userID)
	case "search":
		b.handleSearch(ctx, chatID, userID, args)
	case "keywords":
		b.handleKeywords(ctx, chatID, userID)
	case "addkeyword":
		b.handleAddKeyword(ctx, chatID, userID, args)
	case "rmkeyword":
		b.handleRemoveKeyword(ctx, chatID, userID, args)
	case "settime":
		b.handleSetTime(ctx, chatID, userID, args)
	case "notifications":
		b.handleToggleNotifications(ctx, chatID, userID)
	case "minsalary":
		b.handleMinSalary(ctx, chatID, userID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
