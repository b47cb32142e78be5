// Package digest runs the periodic daily-digest delivery loop.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"jobbot/internal/model"
	"jobbot/internal/profile"
	"jobbot/internal/search"
	"jobbot/internal/storage"
)

// Sender delivers digest messages to a chat.
type Sender interface {
	SendMessage(chatID int64, text string)
	SendJobCard(chatID int64, job model.JobPosting, score float64, matched []string)
}

// Scheduler periodically reserves due users and sends each their digest.
type Scheduler struct {
	store     storage.Storage
	retriever *search.Retriever
	profile   *profile.Service
	sender    Sender
	log       *slog.Logger

	tick         time.Duration
	dailyCount   int
	fetchLimit   int
	userDelay    time.Duration
	messageDelay time.Duration
}

// New creates a digest Scheduler.
func New(store storage.Storage, retriever *search.Retriever, prof *profile.Service, sender Sender, tick time.Duration, dailyCount int, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:        store,
		retriever:    retriever,
		profile:      prof,
		sender:       sender,
		log:          log,
		tick:         tick,
		dailyCount:   dailyCount,
		fetchLimit:   50,
		userDelay:    1 * time.Second,
		messageDelay: 500 * time.Millisecond,
	}
}

// SetDelays overrides the pacing between users and between messages
// (useful for testing).
func (s *Scheduler) SetDelays(userDelay, messageDelay time.Duration) {
	s.userDelay = userDelay
	s.messageDelay = messageDelay
}

// Run starts the scheduler loop, blocking until ctx is cancelled. The
// SkipIfStillRunning wrapper keeps at most one cycle in flight; a tick
// that fires during a cycle coalesces into the next one.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))
	_, err := c.AddFunc(fmt.Sprintf("@every %s", s.tick), func() {
		if err := s.RunCycle(ctx, time.Now()); err != nil {
			s.log.Error("digest cycle", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("register digest job: %w", err)
	}

	c.Start()
	s.log.Info("digest scheduler started", "tick", s.tick)

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	s.log.Info("digest scheduler stopped")
	return nil
}

// RunCycle reserves every due user and delivers their digest. The
// reservation commits before any message is sent, so a crash mid-cycle
// can drop a digest but never double-send one. A failed reservation is
// retried on the next tick.
func (s *Scheduler) RunCycle(ctx context.Context, now time.Time) error {
	users, err := s.store.ReserveDueUsers(ctx, now)
	if err != nil {
		return fmt.Errorf("reserve due users: %w", err)
	}
	if len(users) == 0 {
		return nil
	}
	s.log.Info("running digest cycle", "users", len(users))

	for _, user := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.sendDigest(ctx, user)
		s.pause(ctx, s.userDelay)
	}
	return nil
}

func (s *Scheduler) sendDigest(ctx context.Context, user model.User) {
	result, err := s.retriever.SearchWithRetry(ctx, user.ID, "", s.fetchLimit)
	if err != nil {
		s.log.Error("digest search", "user_id", user.ID, "error", err)
		return
	}
	if len(result.Jobs) == 0 {
		s.log.Info("no postings for digest", "user_id", user.ID)
		return
	}

	ranked, err := s.profile.Rank(ctx, result.Jobs, user.ID)
	if err != nil {
		s.log.Error("digest ranking", "user_id", user.ID, "error", err)
		return
	}
	if len(ranked) == 0 {
		s.log.Info("no fresh matches for digest", "user_id", user.ID)
		return
	}

	count := s.dailyCount
	if len(ranked) < count {
		count = len(ranked)
	}

	s.sender.SendMessage(user.ID, fmt.Sprintf(
		"Your daily job digest\n\nFound %d new matches. Here are your top %d:", len(ranked), count))

	sent := 0
	for _, sj := range ranked[:count] {
		job := sj.Job
		if err := s.store.UpsertJob(ctx, &job); err != nil {
			s.log.Error("cache digest job", "user_id", user.ID, "job_id", job.ID, "error", err)
			continue
		}
		if err := s.store.LogInteraction(ctx, user.ID, job.ID, model.ActionShown); err != nil {
			s.log.Error("log digest interaction", "user_id", user.ID, "job_id", job.ID, "error", err)
		}
		s.sender.SendJobCard(user.ID, job, sj.Score, sj.Matched)
		sent++
		s.pause(ctx, s.messageDelay)
	}

	s.log.Info("digest sent", "user_id", user.ID, "jobs", sent)
}

func (s *Scheduler) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
