// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"time"

	"jobbot/internal/model"
)

// Storage is the interface for all persistence operations.
type Storage interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, userID int64) (*model.User, error)
	SetNotificationTime(ctx context.Context, userID int64, hhmm string, nextDigestAt time.Time) error
	ToggleNotifications(ctx context.Context, userID int64) (bool, error)
	SetMinSalary(ctx context.Context, userID int64, salary float64) error
	// ReserveDueUsers atomically selects every notification-enabled user
	// whose next digest is at or before now and advances each schedule by
	// one day. Either all due users are advanced or none are.
	ReserveDueUsers(ctx context.Context, now time.Time) ([]model.User, error)

	GetKeywords(ctx context.Context, userID int64) ([]model.Keyword, error)
	UpsertKeyword(ctx context.Context, kw *model.Keyword) error
	UpdateKeywordWeight(ctx context.Context, userID int64, text string, delta, negativeAt float64) error
	DeleteKeywords(ctx context.Context, userID int64, texts []string) error
	DecayKeywords(ctx context.Context, userID int64, factor float64, autoOnly bool) error
	CountManualKeywords(ctx context.Context, userID int64) (int, error)
	CountAutoKeywords(ctx context.Context, userID int64) (int, error)

	UpsertJob(ctx context.Context, job *model.JobPosting) error
	GetJob(ctx context.Context, jobID string) (*model.JobPosting, error)

	LogInteraction(ctx context.Context, userID int64, jobID string, action model.InteractionAction) error
	RecentlyShownJobIDs(ctx context.Context, userID int64, windowDays int) ([]string, error)

	Close() error
}
