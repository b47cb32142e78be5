package profile

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"jobbot/internal/model"
	"jobbot/internal/storage"
)

type stubSuggester struct {
	suggestions []model.Suggestion
}

func (s *stubSuggester) Suggest(_ context.Context, _ model.JobPosting, _ []model.Keyword, _ model.InteractionAction) []model.Suggestion {
	return s.suggestions
}

func newTestStore(t *testing.T) *storage.SQLite {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testParams() Params {
	return Params{
		TopK:              8,
		MaxManualKeywords: 3,
		Decay:             0.98,
		LikeBoost:         1.0,
		DislikePenalty:    -1.0,
		NegativePromoteAt: -2.0,
		NewPositiveQuota:  3,
		NewNegativeQuota:  2,
		ExcludeRecentDays: 7,
	}
}

func newTestService(t *testing.T, store *storage.SQLite, sug Suggester) *Service {
	t.Helper()
	if sug == nil {
		sug = &stubSuggester{}
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, sug, testParams(), log)
}

func mustUpsert(t *testing.T, store *storage.SQLite, kw model.Keyword) {
	t.Helper()
	if err := store.UpsertKeyword(context.Background(), &kw); err != nil {
		t.Fatalf("upsert keyword %q: %v", kw.Text, err)
	}
}

func keywordWeight(t *testing.T, store *storage.SQLite, userID int64, text string) (float64, bool) {
	t.Helper()
	kws, err := store.GetKeywords(context.Background(), userID)
	if err != nil {
		t.Fatalf("get keywords: %v", err)
	}
	for _, kw := range kws {
		if kw.Text == text {
			return kw.Weight, true
		}
	}
	return 0, false
}

func TestApplyFeedbackRejectsUnknownAction(t *testing.T) {
	store := newTestStore(t)
	svc := newTestService(t, store, nil)

	err := svc.ApplyFeedback(context.Background(), 1, model.JobPosting{}, model.ActionShown)
	if err == nil {
		t.Fatal("expected error for non-feedback action")
	}
}

func TestApplyFeedbackReinforcesMatching(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := newTestService(t, store, nil)

	mustUpsert(t, store, model.Keyword{UserID: 1, Text: "python", Weight: 1.0, Source: model.SourceAuto})
	mustUpsert(t, store, model.Keyword{UserID: 1, Text: "golang", Weight: 1.0, Source: model.SourceAuto})

	job := model.JobPosting{Title: "Python Developer", Description: "backend services"}
	if err := svc.ApplyFeedback(ctx, 1, job, model.ActionLike); err != nil {
		t.Fatalf("apply feedback: %v", err)
	}

	// Matched keyword gets the boost, then both decay.
	got, ok := keywordWeight(t, store, 1, "python")
	if !ok {
		t.Fatal("python keyword missing")
	}
	if want := 2.0 * 0.98; math.Abs(got-want) > 1e-9 {
		t.Errorf("python weight = %v, want %v", got, want)
	}

	got, ok = keywordWeight(t, store, 1, "golang")
	if !ok {
		t.Fatal("golang keyword missing")
	}
	if want := 1.0 * 0.98; math.Abs(got-want) > 1e-9 {
		t.Errorf("golang weight = %v, want %v", got, want)
	}
}

func TestApplyFeedbackManualKeywordsUntouched(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sug := &stubSuggester{suggestions: []model.Suggestion{
		{Keyword: "python", Sentiment: "negative", Rationale: "disliked job mentions it"},
	}}
	svc := newTestService(t, store, sug)

	mustUpsert(t, store, model.Keyword{UserID: 1, Text: "python", Weight: 1.0, Source: model.SourceManual})

	job := model.JobPosting{Title: "Python Sales", Description: "cold calling with python"}
	if err := svc.ApplyFeedback(ctx, 1, job, model.ActionDislike); err != nil {
		t.Fatalf("apply feedback: %v", err)
	}

	// No reinforcement, no suggestion delta, no decay.
	got, ok := keywordWeight(t, store, 1, "python")
	if !ok {
		t.Fatal("python keyword missing")
	}
	if got != 1.0 {
		t.Errorf("manual keyword weight = %v, want 1.0", got)
	}
}

func TestApplyFeedbackSuggestionDeltas(t *testing.T) {
	tests := []struct {
		name       string
		action     model.InteractionAction
		sentiment  string
		startW     float64
		isNegative bool
		// weight after delta, before decay
		wantBeforeDecay float64
	}{
		{
			name:            "like aligned with positive keyword",
			action:          model.ActionLike,
			sentiment:       "positive",
			startW:          1.0,
			wantBeforeDecay: 2.0,
		},
		{
			name:            "dislike reinforces negative keyword downward",
			action:          model.ActionDislike,
			sentiment:       "negative",
			startW:          -2.5,
			isNegative:      true,
			wantBeforeDecay: -3.5,
		},
		{
			name:            "like softens negative keyword by half",
			action:          model.ActionLike,
			sentiment:       "negative",
			startW:          -2.5,
			isNegative:      true,
			wantBeforeDecay: -3.0,
		},
		{
			name:            "dislike dampens positive keyword by half",
			action:          model.ActionDislike,
			sentiment:       "positive",
			startW:          1.0,
			wantBeforeDecay: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newTestStore(t)
			sug := &stubSuggester{suggestions: []model.Suggestion{
				{Keyword: "fintech", Sentiment: tt.sentiment},
			}}
			svc := newTestService(t, store, sug)

			mustUpsert(t, store, model.Keyword{
				UserID: 1, Text: "fintech", Weight: tt.startW,
				IsNegative: tt.isNegative, Source: model.SourceAuto,
			})

			// Job content deliberately avoids the keyword so only the
			// suggestion path fires.
			job := model.JobPosting{Title: "Backend Engineer", Description: "microservices"}
			if err := svc.ApplyFeedback(ctx, 1, job, tt.action); err != nil {
				t.Fatalf("apply feedback: %v", err)
			}

			got, ok := keywordWeight(t, store, 1, "fintech")
			if !ok {
				t.Fatal("fintech keyword missing")
			}
			want := tt.wantBeforeDecay * 0.98
			if math.Abs(got-want) > 1e-9 {
				t.Errorf("weight = %v, want %v", got, want)
			}
		})
	}
}

func TestApplyFeedbackSeedsNewKeywords(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sug := &stubSuggester{suggestions: []model.Suggestion{
		{Keyword: "Kubernetes", Sentiment: "positive", Rationale: "infra focus"},
	}}
	svc := newTestService(t, store, sug)

	job := model.JobPosting{Title: "Platform Engineer"}
	if err := svc.ApplyFeedback(ctx, 1, job, model.ActionLike); err != nil {
		t.Fatalf("apply feedback: %v", err)
	}

	got, ok := keywordWeight(t, store, 1, "kubernetes")
	if !ok {
		t.Fatal("expected kubernetes keyword to be seeded")
	}
	if want := 1.0 * 0.98; math.Abs(got-want) > 1e-9 {
		t.Errorf("seeded weight = %v, want %v", got, want)
	}
}

func TestApplyFeedbackNegativeQuota(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sug := &stubSuggester{suggestions: []model.Suggestion{
		{Keyword: "sales", Sentiment: "negative"},
		{Keyword: "telemarketing", Sentiment: "negative"},
		{Keyword: "insurance", Sentiment: "negative"},
	}}
	svc := newTestService(t, store, sug)

	job := model.JobPosting{Title: "Sales Executive"}
	if err := svc.ApplyFeedback(ctx, 1, job, model.ActionDislike); err != nil {
		t.Fatalf("apply feedback: %v", err)
	}

	kws, err := store.GetKeywords(ctx, 1)
	if err != nil {
		t.Fatalf("get keywords: %v", err)
	}
	negatives := 0
	for _, kw := range kws {
		if kw.IsNegative {
			negatives++
		}
	}
	if negatives != 2 {
		t.Errorf("seeded %d negative keywords, want 2 (quota)", negatives)
	}
}

func TestApplyFeedbackPositiveQuotaWhenProfileFull(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	// Fill the profile to TopK positives.
	fillers := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel"}
	for i, text := range fillers {
		mustUpsert(t, store, model.Keyword{
			UserID: 1, Text: text, Weight: 3.0 + float64(i)*0.1, Source: model.SourceAuto,
		})
	}

	sug := &stubSuggester{suggestions: []model.Suggestion{
		{Keyword: "india", Sentiment: "positive"},
		{Keyword: "juliet", Sentiment: "positive"},
		{Keyword: "kilo", Sentiment: "positive"},
		{Keyword: "lima", Sentiment: "positive"},
	}}
	svc := newTestService(t, store, sug)

	job := model.JobPosting{Title: "Unrelated Role"}
	if err := svc.ApplyFeedback(ctx, 1, job, model.ActionLike); err != nil {
		t.Fatalf("apply feedback: %v", err)
	}

	// Quota admits three new positives; the fourth is dropped. Pruning
	// then trims the weakest back down, so count admissions through the
	// surviving fillers: the three admitted seeds (weight 1.0) lose to
	// every filler (weight >= 3.0) and are pruned away.
	kws, err := store.GetKeywords(ctx, 1)
	if err != nil {
		t.Fatalf("get keywords: %v", err)
	}
	for _, kw := range kws {
		switch kw.Text {
		case "india", "juliet", "kilo", "lima":
			t.Errorf("seeded keyword %q survived pruning over heavier keywords", kw.Text)
		}
	}
}

func TestApplyFeedbackIgnoresMalformedSuggestions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sug := &stubSuggester{suggestions: []model.Suggestion{
		{Keyword: "  ", Sentiment: "positive"},
		{Keyword: "devops", Sentiment: "neutral"},
	}}
	svc := newTestService(t, store, sug)

	job := model.JobPosting{Title: "Engineer"}
	if err := svc.ApplyFeedback(ctx, 1, job, model.ActionLike); err != nil {
		t.Fatalf("apply feedback: %v", err)
	}

	kws, err := store.GetKeywords(ctx, 1)
	if err != nil {
		t.Fatalf("get keywords: %v", err)
	}
	if len(kws) != 0 {
		t.Errorf("expected no keywords, got %d", len(kws))
	}
}
