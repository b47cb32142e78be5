package profile

import (
	"context"
	"fmt"
	"sort"

	"jobbot/internal/model"
)

// neutralScore is assigned to every job for a user with no profile yet.
const neutralScore = 1.0

// Rank filters and orders a job batch for a user. A user with no
// keywords gets every job back at the neutral score with no recency
// filtering. Otherwise recently shown jobs are dropped, the rest are
// scored, negative scores are discarded, and the remainder is
// stable-sorted by score descending.
func (s *Service) Rank(ctx context.Context, jobs []model.JobPosting, userID int64) ([]model.ScoredJob, error) {
	keywords, err := s.store.GetKeywords(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load keywords: %w", err)
	}

	if len(keywords) == 0 {
		scored := make([]model.ScoredJob, 0, len(jobs))
		for _, job := range jobs {
			scored = append(scored, model.ScoredJob{Job: job, Score: neutralScore})
		}
		return scored, nil
	}

	recentIDs, err := s.store.RecentlyShownJobIDs(ctx, userID, s.params.ExcludeRecentDays)
	if err != nil {
		return nil, fmt.Errorf("load recent interactions: %w", err)
	}
	recent := make(map[string]bool, len(recentIDs))
	for _, id := range recentIDs {
		recent[id] = true
	}

	var scored []model.ScoredJob
	for _, job := range jobs {
		if recent[job.ID] {
			continue
		}
		score, matched := Score(job, keywords, s.params.NegativePromoteAt)
		if score < 0 {
			continue
		}
		scored = append(scored, model.ScoredJob{Job: job, Score: score, Matched: matched})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored, nil
}
