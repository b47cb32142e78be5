package search

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"

	"jobbot/internal/model"
	"jobbot/internal/storage"
)

// JobSearchClient is the provider contract the retry loop drives.
type JobSearchClient interface {
	SearchByKeyword(ctx context.Context, keyword string, f Filters) []model.JobPosting
	SearchRecent(ctx context.Context, f Filters) []model.JobPosting
}

// Result is the outcome of one candidate search round.
type Result struct {
	Jobs                 []model.JobPosting
	UsedKeyword          string
	DeletedAutoKeywords  []string
	ManualFailedKeywords []string
	UsedFallback         bool
}

// Retriever picks keywords to query, retries across alternatives on empty
// results, prunes unproductive auto keywords, and falls back to an
// unfiltered recent-postings query.
type Retriever struct {
	store      storage.Storage
	client     JobSearchClient
	maxRetries int
	log        *slog.Logger
	shuffle    func(n int, swap func(i, j int))
}

// NewRetriever creates a Retriever.
func NewRetriever(store storage.Storage, client JobSearchClient, maxRetries int, log *slog.Logger) *Retriever {
	return &Retriever{
		store:      store,
		client:     client,
		maxRetries: maxRetries,
		log:        log,
		shuffle:    rand.Shuffle,
	}
}

// SearchWithRetry fetches a candidate batch for the user. The preferred
// keyword, when given, is tried first; the rest follow by weight
// descending with a random tie-break. An auto keyword whose search
// surfaces nothing is deleted as stale; manual keywords are only
// reported, never deleted.
func (r *Retriever) SearchWithRetry(ctx context.Context, userID int64, preferred string, limit int) (Result, error) {
	var res Result

	filters := Filters{Limit: limit}
	if user, err := r.store.GetUser(ctx, userID); err == nil && user != nil {
		filters.MinSalary = user.MinSalary
	}

	keywords, err := r.store.GetKeywords(ctx, userID)
	if err != nil {
		return res, fmt.Errorf("load keywords: %w", err)
	}

	sources := make(map[string]model.KeywordSource, len(keywords))
	var positives []model.Keyword
	for _, kw := range keywords {
		sources[kw.Text] = kw.Source
		if !kw.IsNegative {
			positives = append(positives, kw)
		}
	}

	if len(positives) == 0 && preferred == "" {
		res.Jobs = r.client.SearchRecent(ctx, filters)
		res.UsedFallback = true
		return res, nil
	}

	order := r.attemptOrder(positives, preferred)
	attempts := r.maxRetries
	if len(order) < attempts {
		attempts = len(order)
	}

	for _, keyword := range order[:attempts] {
		jobs := r.client.SearchByKeyword(ctx, keyword, filters)
		if len(jobs) > 0 {
			res.Jobs = jobs
			res.UsedKeyword = keyword
			return res, nil
		}

		if sources[keyword] == model.SourceAuto {
			if err := r.store.DeleteKeywords(ctx, userID, []string{keyword}); err != nil {
				r.log.Error("delete stale keyword", "user_id", userID, "keyword", keyword, "error", err)
			} else {
				r.log.Info("deleted unproductive auto keyword", "user_id", userID, "keyword", keyword)
				res.DeletedAutoKeywords = append(res.DeletedAutoKeywords, keyword)
			}
		} else {
			res.ManualFailedKeywords = append(res.ManualFailedKeywords, keyword)
		}
	}

	res.Jobs = r.client.SearchRecent(ctx, filters)
	res.UsedFallback = true
	return res, nil
}

// attemptOrder builds the keyword try sequence: preferred first, then
// positives by weight descending. Shuffling before the stable sort makes
// equal weights tie-break randomly.
func (r *Retriever) attemptOrder(positives []model.Keyword, preferred string) []string {
	preferred = strings.ToLower(strings.TrimSpace(preferred))

	rest := make([]model.Keyword, 0, len(positives))
	for _, kw := range positives {
		if kw.Text != preferred {
			rest = append(rest, kw)
		}
	}

	r.shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})
	sort.SliceStable(rest, func(i, j int) bool {
		return rest[i].Weight > rest[j].Weight
	})

	var order []string
	if preferred != "" {
		order = append(order, preferred)
	}
	for _, kw := range rest {
		order = append(order, kw.Text)
	}
	return order
}
