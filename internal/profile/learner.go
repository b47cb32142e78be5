package profile

import (
	"context"
	"fmt"
	"math"
	"strings"

	"jobbot/internal/model"
)

const (
	sentimentPositive = "positive"
	sentimentNegative = "negative"
)

// ApplyFeedback folds one like/dislike event into the user's keyword
// profile: direct reinforcement of matching keywords, suggested keyword
// adjustments and admissions, decay, then pruning. Manual keywords are
// never modified by any of these steps.
func (s *Service) ApplyFeedback(ctx context.Context, userID int64, job model.JobPosting, action model.InteractionAction) error {
	if action != model.ActionLike && action != model.ActionDislike {
		return fmt.Errorf("unsupported feedback action %q", action)
	}

	keywords, err := s.store.GetKeywords(ctx, userID)
	if err != nil {
		return fmt.Errorf("load keywords: %w", err)
	}

	base := s.params.LikeBoost
	if action == model.ActionDislike {
		base = s.params.DislikePenalty
	}

	s.reinforceMatching(ctx, userID, job, keywords, base)

	top := keywords
	if len(top) > s.params.TopK {
		top = top[:s.params.TopK]
	}
	suggestions := s.suggest.Suggest(ctx, job, top, action)

	s.applySuggestions(ctx, userID, keywords, suggestions, action, base)

	if err := s.store.DecayKeywords(ctx, userID, s.params.Decay, true); err != nil {
		s.log.Error("decay keywords", "user_id", userID, "error", err)
	}

	return s.Prune(ctx, userID)
}

// reinforceMatching nudges every non-manual keyword that appears in the
// job's title, company, or description by the base delta.
func (s *Service) reinforceMatching(ctx context.Context, userID int64, job model.JobPosting, keywords []model.Keyword, base float64) {
	counts := make(map[string]int)
	for _, t := range Tokenize(job.Title) {
		counts[t]++
	}
	for _, t := range Tokenize(job.Company) {
		counts[t]++
	}
	for _, t := range Tokenize(job.Description) {
		counts[t]++
	}
	blob := strings.ToLower(job.Title + " " + job.Company + " " + job.Description)

	for _, kw := range keywords {
		if kw.Source == model.SourceManual {
			continue
		}
		if !matchesContent(strings.ToLower(kw.Text), counts, blob) {
			continue
		}
		if err := s.store.UpdateKeywordWeight(ctx, userID, kw.Text, base, s.params.NegativePromoteAt); err != nil {
			s.log.Error("reinforce keyword", "user_id", userID, "keyword", kw.Text, "error", err)
		}
	}
}

// applySuggestions merges collaborator suggestions into the profile,
// respecting the per-event admission quotas for brand-new keywords.
func (s *Service) applySuggestions(ctx context.Context, userID int64, keywords []model.Keyword, suggestions []model.Suggestion, action model.InteractionAction, base float64) {
	existing := make(map[string]model.Keyword, len(keywords))
	positiveCount := 0
	for _, kw := range keywords {
		existing[strings.ToLower(kw.Text)] = kw
		if !kw.IsNegative {
			positiveCount++
		}
	}

	newPositives, newNegatives := 0, 0

	for _, sug := range suggestions {
		text := strings.ToLower(strings.TrimSpace(sug.Keyword))
		if text == "" {
			continue
		}
		if sug.Sentiment != sentimentPositive && sug.Sentiment != sentimentNegative {
			continue
		}

		if kw, ok := existing[text]; ok {
			if kw.Source == model.SourceManual {
				continue
			}
			delta := suggestionDelta(action, sug.Sentiment, base)
			if delta == 0 {
				continue
			}
			newWeight := kw.Weight + delta
			updated := model.Keyword{
				UserID:     userID,
				Text:       text,
				Weight:     newWeight,
				IsNegative: newWeight < s.params.NegativePromoteAt,
				Source:     model.SourceAuto,
				Rationale:  sug.Rationale,
			}
			if err := s.store.UpsertKeyword(ctx, &updated); err != nil {
				s.log.Warn("update suggested keyword", "user_id", userID, "keyword", text, "error", err)
				continue
			}
			existing[text] = updated
			continue
		}

		weight, isNegative := seedWeight(action, sug.Sentiment)
		if isNegative {
			if newNegatives >= s.params.NewNegativeQuota {
				continue
			}
		} else {
			if positiveCount >= s.params.TopK && newPositives >= s.params.NewPositiveQuota {
				continue
			}
		}

		kw := model.Keyword{
			UserID:     userID,
			Text:       text,
			Weight:     weight,
			IsNegative: isNegative,
			Source:     model.SourceAuto,
			Rationale:  sug.Rationale,
		}
		if err := s.store.UpsertKeyword(ctx, &kw); err != nil {
			s.log.Warn("seed suggested keyword", "user_id", userID, "keyword", text, "error", err)
			continue
		}
		existing[text] = kw
		if isNegative {
			newNegatives++
		} else {
			newPositives++
			positiveCount++
		}
	}
}

// suggestionDelta maps the action/sentiment combination onto a weight
// delta. Aligned signals apply the full base magnitude; conflicting
// signals apply half in the sentiment's direction.
func suggestionDelta(action model.InteractionAction, sentiment string, base float64) float64 {
	switch {
	case action == model.ActionLike && sentiment == sentimentPositive:
		return base
	case action == model.ActionDislike && sentiment == sentimentNegative:
		return -math.Abs(base)
	case action == model.ActionLike && sentiment == sentimentNegative:
		return -0.5 * math.Abs(base)
	case action == model.ActionDislike && sentiment == sentimentPositive:
		return 0.5 * base
	}
	return 0
}

func seedWeight(action model.InteractionAction, sentiment string) (float64, bool) {
	switch {
	case action == model.ActionLike && sentiment == sentimentPositive:
		return 1.0, false
	case action == model.ActionDislike && sentiment == sentimentNegative:
		return -1.0, true
	case sentiment == sentimentPositive:
		return 0.5, false
	default:
		return -0.5, true
	}
}
