package bot

import (
	"context"
	"fmt"
	"time"

	"jobbot/internal/model"
	"jobbot/internal/search"
)

const adHocResultCount = 5

func (b *Bot) handleStart(ctx context.Context, chatID, userID int64, username string) {
	existing, err := b.store.GetUser(ctx, userID)
	if err == nil && existing != nil {
		b.reply(chatID, "Welcome back! Use /more for job recommendations or /help for all commands.")
		return
	}

	nextDigest, err := model.NextDigestTime(time.Now(), b.cfg.DefaultNotificationTime, b.cfg.DefaultTimezone)
	if err != nil {
		b.log.Error("compute first digest time", "user_id", userID, "error", err)
		b.reply(chatID, "Something went wrong during registration. Please try again.")
		return
	}

	user := &model.User{
		ID:                   userID,
		Username:             username,
		NotificationsEnabled: true,
		NotificationTime:     b.cfg.DefaultNotificationTime,
		Timezone:             b.cfg.DefaultTimezone,
		NextDigestAt:         &nextDigest,
	}
	if err := b.store.CreateUser(ctx, user); err != nil {
		b.log.Error("create user", "user_id", userID, "error", err)
		b.reply(chatID, "Something went wrong during registration. Please try again.")
		return
	}

	b.reply(chatID, `Welcome to Job Bot!

I find job postings that match you and learn from your reactions.

Quick start:
1. /more — get a few recommendations
2. Tap Like or Dislike on each job to train your profile
3. /addkeyword <word> — pin a keyword you always want

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Job discovery:
/more — get personalized recommendations
/search <query> — ad-hoc job search

Profile:
/keywords — show your keyword profile
/addkeyword <word or phrase> — pin a manual keyword
/rmkeyword <word or phrase> — remove a keyword

Settings:
/settime <HH:MM> — daily digest time (30-minute slots)
/notifications — toggle the daily digest on/off
/minsalary <amount> — minimum monthly salary filter

Tip: like and dislike jobs to improve recommendations.`)
}

// requireUser loads the user or prompts registration.
func (b *Bot) requireUser(ctx context.Context, chatID, userID int64) *model.User {
	user, err := b.store.GetUser(ctx, userID)
	if err != nil || user == nil {
		b.reply(chatID, "Please use /start first to register.")
		return nil
	}
	return user
}

func (b *Bot) handleMore(ctx context.Context, chatID, userID int64) {
	if b.requireUser(ctx, chatID, userID) == nil {
		return
	}

	b.reply(chatID, "Finding jobs for you...")

	result, err := b.retriever.SearchWithRetry(ctx, userID, "", 50)
	if err != nil {
		b.log.Error("search with retry", "user_id", userID, "error", err)
		b.reply(chatID, "No jobs found right now. Try again later.")
		return
	}
	if len(result.Jobs) == 0 {
		b.reply(chatID, "No jobs found right now. Try again later or use /search.")
		return
	}

	ranked, err := b.profile.Rank(ctx, result.Jobs, userID)
	if err != nil {
		b.log.Error("rank jobs", "user_id", userID, "error", err)
		b.reply(chatID, "No jobs found right now. Try again later.")
		return
	}
	if len(ranked) == 0 {
		b.reply(chatID, "You've seen all recent matches. Try /search or check back later.")
		return
	}

	count := b.cfg.RealtimeMax
	if len(ranked) < count {
		count = len(ranked)
	}
	for _, sj := range ranked[:count] {
		b.showJob(ctx, chatID, userID, sj.Job, sj.Score, sj.Matched)
	}
}

func (b *Bot) handleSearch(ctx context.Context, chatID, userID int64, args string) {
	if b.requireUser(ctx, chatID, userID) == nil {
		return
	}
	if args == "" {
		b.reply(chatID, "Usage: /search <keywords>\nExample: /search data analyst python")
		return
	}

	b.reply(chatID, fmt.Sprintf("Searching for: %s...", args))

	jobs := b.client.SearchByKeyword(ctx, args, search.Filters{Limit: 25})
	if len(jobs) == 0 {
		b.reply(chatID, fmt.Sprintf("No jobs found for %q. Try different keywords.", args))
		return
	}

	count := adHocResultCount
	if len(jobs) < count {
		count = len(jobs)
	}
	for _, job := range jobs[:count] {
		b.showJob(ctx, chatID, userID, job, 0, nil)
	}
}

// showJob caches the posting, logs it as shown, and sends the card.
func (b *Bot) showJob(ctx context.Context, chatID, userID int64, job model.JobPosting, score float64, matched []string) {
	if err := b.store.UpsertJob(ctx, &job); err != nil {
		b.log.Error("cache job", "job_id", job.ID, "error", err)
		return
	}
	if err := b.store.LogInteraction(ctx, userID, job.ID, model.ActionShown); err != nil {
		b.log.Error("log shown interaction", "user_id", userID, "job_id", job.ID, "error", err)
	}
	b.SendJobCard(chatID, job, score, matched)
}

func (b *Bot) handleKeywords(ctx context.Context, chatID, userID int64) {
	if b.requireUser(ctx, chatID, userID) == nil {
		return
	}
	keywords, err := b.store.GetKeywords(ctx, userID)
	if err != nil {
		b.log.Error("load keywords", "user_id", userID, "error", err)
		b.reply(chatID, "Could not load your keywords right now.")
		return
	}
	text := FormatKeywordProfile(keywords, b.cfg.TopK)
	autoCount, err := b.store.CountAutoKeywords(ctx, userID)
	if err != nil {
		b.log.Error("count auto keywords", "user_id", userID, "error", err)
	} else if autoCount > 0 {
		text += fmt.Sprintf("\n\nTracking %d learned keywords from your feedback.", autoCount)
	}
	b.reply(chatID, text)
}

func (b *Bot) handleAddKeyword(ctx context.Context, chatID, userID int64, args string) {
	if b.requireUser(ctx, chatID, userID) == nil {
		return
	}
	text, err := ParseKeywordArg(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	count, err := b.store.CountManualKeywords(ctx, userID)
	if err != nil {
		b.log.Error("count manual keywords", "user_id", userID, "error", err)
		b.reply(chatID, "Could not add the keyword right now.")
		return
	}
	if count >= b.cfg.MaxManualKeywords {
		b.reply(chatID, fmt.Sprintf(
			"You already have %d manual keywords (the maximum). Remove one with /rmkeyword first.", count))
		return
	}

	kw := &model.Keyword{
		UserID:    userID,
		Text:      text,
		Weight:    1.0,
		Source:    model.SourceManual,
		Rationale: "added by user",
	}
	if err := b.store.UpsertKeyword(ctx, kw); err != nil {
		b.log.Error("add manual keyword", "user_id", userID, "keyword", text, "error", err)
		b.reply(chatID, "Could not add the keyword right now.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Keyword %q pinned. It will always be part of your profile.", text))
}

func (b *Bot) handleRemoveKeyword(ctx context.Context, chatID, userID int64, args string) {
	if b.requireUser(ctx, chatID, userID) == nil {
		return
	}
	text, err := ParseKeywordArg(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	if err := b.store.DeleteKeywords(ctx, userID, []string{text}); err != nil {
		b.log.Error("remove keyword", "user_id", userID, "keyword", text, "error", err)
		b.reply(chatID, "Could not remove the keyword right now.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Keyword %q removed.", text))
}

func (b *Bot) handleSetTime(ctx context.Context, chatID, userID int64, args string) {
	user := b.requireUser(ctx, chatID, userID)
	if user == nil {
		return
	}
	if args == "" {
		b.reply(chatID, "Usage: /settime HH:MM (30-minute slots, e.g. 09:00 or 18:30)")
		return
	}

	hhmm, err := ParseTimeArg(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	nextDigest, err := model.NextDigestTime(time.Now(), hhmm, user.Timezone)
	if err != nil {
		b.log.Error("compute next digest", "user_id", userID, "error", err)
		b.reply(chatID, "Could not update the digest time right now.")
		return
	}
	if err := b.store.SetNotificationTime(ctx, userID, hhmm, nextDigest); err != nil {
		b.log.Error("set notification time", "user_id", userID, "error", err)
		b.reply(chatID, "Could not update the digest time right now.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Daily digest time set to %s (%s).", hhmm, user.Timezone))
}

func (b *Bot) handleToggleNotifications(ctx context.Context, chatID, userID int64) {
	if b.requireUser(ctx, chatID, userID) == nil {
		return
	}
	enabled, err := b.store.ToggleNotifications(ctx, userID)
	if err != nil {
		b.log.Error("toggle notifications", "user_id", userID, "error", err)
		b.reply(chatID, "Could not update notifications right now.")
		return
	}
	if enabled {
		b.reply(chatID, "Daily digest notifications are now ON.")
	} else {
		b.reply(chatID, "Daily digest notifications are now OFF.")
	}
}

func (b *Bot) handleMinSalary(ctx context.Context, chatID, userID int64, args string) {
	if b.requireUser(ctx, chatID, userID) == nil {
		return
	}
	if args == "" {
		b.reply(chatID, "Usage: /minsalary <amount>\nExample: /minsalary 4500\nUse /minsalary 0 to clear the filter.")
		return
	}

	salary, err := ParseSalaryArg(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	if err := b.store.SetMinSalary(ctx, userID, salary); err != nil {
		b.log.Error("set min salary", "user_id", userID, "error", err)
		b.reply(chatID, "Could not update the salary filter right now.")
		return
	}
	if salary == 0 {
		b.reply(chatID, "Minimum salary filter cleared.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Minimum monthly salary set to $%.0f.", salary))
}
