package profile

import (
	"context"
	"fmt"
	"sort"

	"jobbot/internal/model"
)

// Prune bounds the profile: manual keywords are kept by update recency up
// to the manual cap, auto keywords by weight up to the remaining top-K
// slots, and negatives only while their weight sits below the hard-reject
// threshold. Polarity is derived from weight here; a stale stored flag is
// not honored. Pruning twice in a row retains the identical set.
func (s *Service) Prune(ctx context.Context, userID int64) error {
	keywords, err := s.store.GetKeywords(ctx, userID)
	if err != nil {
		return fmt.Errorf("load keywords: %w", err)
	}

	var manual, autoPositive []model.Keyword
	retained := make(map[string]bool)

	for _, kw := range keywords {
		switch {
		case kw.Source == model.SourceManual:
			manual = append(manual, kw)
		case kw.Weight < s.params.NegativePromoteAt:
			retained[kw.Text] = true
		default:
			autoPositive = append(autoPositive, kw)
		}
	}

	sort.SliceStable(manual, func(i, j int) bool {
		return manual[i].UpdatedAt.After(manual[j].UpdatedAt)
	})
	for i, kw := range manual {
		if i >= s.params.MaxManualKeywords {
			break
		}
		retained[kw.Text] = true
	}

	autoCap := s.params.TopK - s.params.MaxManualKeywords
	if autoCap < 0 {
		autoCap = 0
	}
	sort.SliceStable(autoPositive, func(i, j int) bool {
		return autoPositive[i].Weight > autoPositive[j].Weight
	})
	for i, kw := range autoPositive {
		if i >= autoCap {
			break
		}
		retained[kw.Text] = true
	}

	var toDelete []string
	for _, kw := range keywords {
		if !retained[kw.Text] {
			toDelete = append(toDelete, kw.Text)
		}
	}
	if len(toDelete) == 0 {
		return nil
	}

	if err := s.store.DeleteKeywords(ctx, userID, toDelete); err != nil {
		return fmt.Errorf("delete pruned keywords: %w", err)
	}
	s.log.Debug("pruned keywords", "user_id", userID, "deleted", len(toDelete))
	return nil
}
