// Package model defines the domain types used across the application.
package model

import "time"

// KeywordSource tells how a keyword entered the profile.
type KeywordSource string

// Supported keyword sources.
const (
	// SourceManual marks keywords added explicitly by the user. They are
	// exempt from decay, feedback deltas, and automated deletion.
	SourceManual KeywordSource = "manual"
	// SourceAuto marks keywords created and maintained by the feedback loop.
	SourceAuto KeywordSource = "auto"
)

// Keyword is a single weighted entry in a user's adaptive profile.
// Text is lowercased and unique per user.
type Keyword struct {
	UserID     int64
	Text       string
	Weight     float64
	IsNegative bool
	Source     KeywordSource
	Rationale  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// JobPosting is a job record normalized at ingestion. The core treats it
// as read-only.
type JobPosting struct {
	ID          string
	Title       string
	Company     string
	Location    string
	Description string
	URL         string
	SalaryMin   float64
	SalaryMax   float64
	Skills      []string
	Categories  []string
	MRTStations []string
	PostedAt    string
}

// InteractionAction is the kind of a logged user/job interaction.
type InteractionAction string

// Supported interaction actions.
const (
	ActionShown   InteractionAction = "shown"
	ActionLike    InteractionAction = "like"
	ActionDislike InteractionAction = "dislike"
)

// User holds per-user settings and digest schedule state.
type User struct {
	ID                   int64
	Username             string
	NotificationsEnabled bool
	NotificationTime     string // "HH:MM" in the user's timezone
	Timezone             string
	NextDigestAt         *time.Time
	MinSalary            float64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ScoredJob pairs a posting with its score and the keywords that matched.
type ScoredJob struct {
	Job     JobPosting
	Score   float64
	Matched []string
}

// Suggestion is one keyword proposal from the suggestion collaborator.
type Suggestion struct {
	Keyword   string
	Sentiment string // "positive" or "negative"
	Rationale string
}
