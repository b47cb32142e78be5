package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"jobbot/internal/model"
	"jobbot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// digestLayout keeps the zone offset so the local time-of-day survives a
// round trip through the database.
const digestLayout = time.RFC3339

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateUser inserts a new user. Inserting an existing user is a no-op.
func (s *SQLite) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC().Format(timeLayout)
	var nextDigest *string
	if user.NextDigestAt != nil {
		v := user.NextDigestAt.Format(digestLayout)
		nextDigest = &v
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, username, notifications_enabled, notification_time,
		                    timezone, next_digest_at, min_salary, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		user.ID, user.Username, boolToInt(user.NotificationsEnabled), user.NotificationTime,
		user.Timezone, nextDigest, user.MinSalary, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	user.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetUser returns a single user by ID.
func (s *SQLite) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, username, notifications_enabled, notification_time,
		        timezone, next_digest_at, min_salary, created_at, updated_at
		 FROM users WHERE user_id = ?`, userID,
	)
	return scanUser(row)
}

// SetNotificationTime updates the digest time and its next occurrence.
func (s *SQLite) SetNotificationTime(ctx context.Context, userID int64, hhmm string, nextDigestAt time.Time) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET notification_time = ?, next_digest_at = ?, updated_at = ?
		 WHERE user_id = ?`,
		hhmm, nextDigestAt.Format(digestLayout), now, userID,
	)
	if err != nil {
		return fmt.Errorf("set notification time: %w", err)
	}
	return nil
}

// ToggleNotifications flips the user's digest flag and returns the new state.
func (s *SQLite) ToggleNotifications(ctx context.Context, userID int64) (bool, error) {
	var enabled int
	err := s.db.QueryRowContext(ctx,
		`SELECT notifications_enabled FROM users WHERE user_id = ?`, userID,
	).Scan(&enabled)
	if err != nil {
		return false, fmt.Errorf("read notifications flag: %w", err)
	}

	newState := enabled == 0
	now := time.Now().UTC().Format(timeLayout)
	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET notifications_enabled = ?, updated_at = ? WHERE user_id = ?`,
		boolToInt(newState), now, userID,
	)
	if err != nil {
		return false, fmt.Errorf("toggle notifications: %w", err)
	}
	return newState, nil
}

// SetMinSalary updates the user's minimum salary preference.
func (s *SQLite) SetMinSalary(ctx context.Context, userID int64, salary float64) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET min_salary = ?, updated_at = ? WHERE user_id = ?`,
		salary, now, userID,
	)
	if err != nil {
		return fmt.Errorf("set min salary: %w", err)
	}
	return nil
}

// ReserveDueUsers selects users due for a digest and advances their
// schedule by one day inside a single transaction. The per-row guard on
// the UPDATE keeps a user from being reserved twice by concurrent calls:
// whoever commits the advancement first owns the user for this period.
func (s *SQLite) ReserveDueUsers(ctx context.Context, now time.Time) ([]model.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	nowStr := now.UTC().Format(digestLayout)
	rows, err := tx.QueryContext(ctx,
		`SELECT user_id, username, notifications_enabled, notification_time,
		        timezone, next_digest_at, min_salary, created_at, updated_at
		 FROM users
		 WHERE notifications_enabled = 1
		   AND next_digest_at IS NOT NULL
		   AND datetime(next_digest_at) <= datetime(?)`,
		nowStr,
	)
	if err != nil {
		return nil, fmt.Errorf("query due users: %w", err)
	}

	var due []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		due = append(due, *u)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate due users: %w", err)
	}
	_ = rows.Close()

	updatedAt := time.Now().UTC().Format(timeLayout)
	var reserved []model.User
	for _, u := range due {
		next := model.AdvanceDigestDay(*u.NextDigestAt, u.Timezone)
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET next_digest_at = ?, updated_at = ?
			 WHERE user_id = ? AND datetime(next_digest_at) <= datetime(?)`,
			next.Format(digestLayout), updatedAt, u.ID, nowStr,
		)
		if err != nil {
			return nil, fmt.Errorf("advance digest for user %d: %w", u.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if n == 1 {
			reserved = append(reserved, u)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reservation: %w", err)
	}
	return reserved, nil
}

// GetKeywords returns all keywords for a user sorted by weight descending.
func (s *SQLite) GetKeywords(ctx context.Context, userID int64) ([]model.Keyword, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, keyword, weight, is_negative, source, rationale, created_at, updated_at
		 FROM user_keywords WHERE user_id = ? ORDER BY weight DESC, keyword`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query keywords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var kws []model.Keyword
	for rows.Next() {
		var k model.Keyword
		var isNeg int
		var source, createdStr, updatedStr string
		if err := rows.Scan(&k.UserID, &k.Text, &k.Weight, &isNeg, &source, &k.Rationale, &createdStr, &updatedStr); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		k.IsNegative = isNeg == 1
		k.Source = model.KeywordSource(source)
		k.CreatedAt, _ = time.Parse(timeLayout, createdStr)
		k.UpdatedAt, _ = time.Parse(timeLayout, updatedStr)
		kws = append(kws, k)
	}
	return kws, rows.Err()
}

// UpsertKeyword inserts or updates a keyword. An existing manual keyword
// is never overwritten by an automated upsert.
func (s *SQLite) UpsertKeyword(ctx context.Context, kw *model.Keyword) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_keywords (user_id, keyword, weight, is_negative, source, rationale, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, keyword) DO UPDATE SET
		     weight = excluded.weight,
		     is_negative = excluded.is_negative,
		     source = excluded.source,
		     rationale = excluded.rationale,
		     updated_at = excluded.updated_at
		 WHERE user_keywords.source != 'manual' OR excluded.source = 'manual'`,
		kw.UserID, strings.ToLower(kw.Text), kw.Weight, boolToInt(kw.IsNegative),
		string(kw.Source), kw.Rationale, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert keyword: %w", err)
	}
	return nil
}

// UpdateKeywordWeight applies an additive delta to a non-manual keyword
// and recomputes its polarity against negativeAt.
func (s *SQLite) UpdateKeywordWeight(ctx context.Context, userID int64, text string, delta, negativeAt float64) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`UPDATE user_keywords
		 SET weight = weight + ?,
		     is_negative = CASE WHEN weight + ? < ? THEN 1 ELSE 0 END,
		     updated_at = ?
		 WHERE user_id = ? AND keyword = ? AND source != 'manual'`,
		delta, delta, negativeAt, now, userID, strings.ToLower(text),
	)
	if err != nil {
		return fmt.Errorf("update keyword weight: %w", err)
	}
	return nil
}

// DeleteKeywords removes the given keywords for a user.
func (s *SQLite) DeleteKeywords(ctx context.Context, userID int64, texts []string) error {
	if len(texts) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(texts)), ",")
	args := make([]any, 0, len(texts)+1)
	args = append(args, userID)
	for _, t := range texts {
		args = append(args, strings.ToLower(t))
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_keywords WHERE user_id = ? AND keyword IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("delete keywords: %w", err)
	}
	return nil
}

// DecayKeywords multiplies keyword weights by factor. With autoOnly set,
// manual keywords are left untouched.
func (s *SQLite) DecayKeywords(ctx context.Context, userID int64, factor float64, autoOnly bool) error {
	now := time.Now().UTC().Format(timeLayout)
	query := `UPDATE user_keywords SET weight = weight * ?, updated_at = ? WHERE user_id = ?`
	if autoOnly {
		query += ` AND source = 'auto'`
	}
	if _, err := s.db.ExecContext(ctx, query, factor, now, userID); err != nil {
		return fmt.Errorf("decay keywords: %w", err)
	}
	return nil
}

// CountManualKeywords returns the number of manual keywords for a user.
func (s *SQLite) CountManualKeywords(ctx context.Context, userID int64) (int, error) {
	return s.countKeywords(ctx, userID, model.SourceManual)
}

// CountAutoKeywords returns the number of learned keywords for a user.
func (s *SQLite) CountAutoKeywords(ctx context.Context, userID int64) (int, error) {
	return s.countKeywords(ctx, userID, model.SourceAuto)
}

func (s *SQLite) countKeywords(ctx context.Context, userID int64, source model.KeywordSource) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_keywords WHERE user_id = ? AND source = ?`,
		userID, string(source),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count keywords: %w", err)
	}
	return count, nil
}

// UpsertJob caches a posting so feedback callbacks can recover it later.
func (s *SQLite) UpsertJob(ctx context.Context, job *model.JobPosting) error {
	now := time.Now().UTC().Format(timeLayout)
	skills, _ := json.Marshal(job.Skills)
	categories, _ := json.Marshal(job.Categories)
	mrt, _ := json.Marshal(job.MRTStations)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (job_id, title, company, location, description, url,
		                   salary_min, salary_max, skills_json, categories_json,
		                   mrt_stations_json, posted_at, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(job_id) DO UPDATE SET
		     title = excluded.title,
		     company = excluded.company,
		     location = excluded.location,
		     description = excluded.description,
		     url = excluded.url,
		     salary_min = excluded.salary_min,
		     salary_max = excluded.salary_max,
		     skills_json = excluded.skills_json,
		     categories_json = excluded.categories_json,
		     mrt_stations_json = excluded.mrt_stations_json,
		     posted_at = excluded.posted_at,
		     fetched_at = excluded.fetched_at`,
		job.ID, job.Title, job.Company, job.Location, job.Description, job.URL,
		job.SalaryMin, job.SalaryMax, string(skills), string(categories),
		string(mrt), job.PostedAt, now,
	)
	if err != nil {
		return fmt.Errorf("upsert job: %w", err)
	}
	return nil
}

// GetJob returns a cached posting by ID.
func (s *SQLite) GetJob(ctx context.Context, jobID string) (*model.JobPosting, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT job_id, title, company, location, description, url,
		        salary_min, salary_max, skills_json, categories_json,
		        mrt_stations_json, posted_at
		 FROM jobs WHERE job_id = ?`, jobID,
	)
	var j model.JobPosting
	var skills, categories, mrt string
	err := row.Scan(&j.ID, &j.Title, &j.Company, &j.Location, &j.Description, &j.URL,
		&j.SalaryMin, &j.SalaryMax, &skills, &categories, &mrt, &j.PostedAt)
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}
	_ = json.Unmarshal([]byte(skills), &j.Skills)
	_ = json.Unmarshal([]byte(categories), &j.Categories)
	_ = json.Unmarshal([]byte(mrt), &j.MRTStations)
	return &j, nil
}

// LogInteraction appends a user/job interaction.
func (s *SQLite) LogInteraction(ctx context.Context, userID int64, jobID string, action model.InteractionAction) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interactions (user_id, job_id, action, timestamp) VALUES (?, ?, ?, ?)`,
		userID, jobID, string(action), now,
	)
	if err != nil {
		return fmt.Errorf("log interaction: %w", err)
	}
	return nil
}

// RecentlyShownJobIDs returns the distinct job IDs the user interacted
// with inside the trailing window, regardless of action.
func (s *SQLite) RecentlyShownJobIDs(ctx context.Context, userID int64, windowDays int) ([]string, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -windowDays).Format(timeLayout)
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT job_id FROM interactions WHERE user_id = ? AND timestamp >= ?`,
		userID, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent interactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan job id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanUser(row scannable) (*model.User, error) {
	var u model.User
	var enabled int
	var nextDigest sql.NullString
	var createdStr, updatedStr string
	err := row.Scan(&u.ID, &u.Username, &enabled, &u.NotificationTime,
		&u.Timezone, &nextDigest, &u.MinSalary, &createdStr, &updatedStr)
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.NotificationsEnabled = enabled == 1
	if nextDigest.Valid {
		t, err := time.Parse(digestLayout, nextDigest.String)
		if err == nil {
			u.NextDigestAt = &t
		}
	}
	u.CreatedAt, _ = time.Parse(timeLayout, createdStr)
	u.UpdatedAt, _ = time.Parse(timeLayout, updatedStr)
	return &u, nil
}
