package profile

import (
	"context"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"jobbot/internal/model"
	"jobbot/internal/storage"
)

func keywordTexts(t *testing.T, store *storage.SQLite, userID int64) []string {
	t.Helper()
	kws, err := store.GetKeywords(context.Background(), userID)
	if err != nil {
		t.Fatalf("get keywords: %v", err)
	}
	texts := make([]string, 0, len(kws))
	for _, kw := range kws {
		texts = append(texts, kw.Text)
	}
	sort.Strings(texts)
	return texts
}

func TestPruneKeepsTopAutoPositives(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := newTestService(t, store, nil)

	// Seven auto positives against five auto slots (TopK 8, manual cap 3).
	weights := map[string]float64{
		"alpha": 3.0, "bravo": 2.5, "charlie": 2.0, "delta": 1.5,
		"echo": 1.0, "foxtrot": 0.5, "golf": 0.1,
	}
	for text, w := range weights {
		mustUpsert(t, store, model.Keyword{UserID: 1, Text: text, Weight: w, Source: model.SourceAuto})
	}

	if err := svc.Prune(ctx, 1); err != nil {
		t.Fatalf("prune: %v", err)
	}

	want := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	if diff := cmp.Diff(want, keywordTexts(t, store, 1)); diff != "" {
		t.Errorf("retained keywords mismatch (-want +got):\n%s", diff)
	}
}

func TestPruneRetainsHardNegatives(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := newTestService(t, store, nil)

	mustUpsert(t, store, model.Keyword{UserID: 1, Text: "python", Weight: 2.0, Source: model.SourceAuto})
	mustUpsert(t, store, model.Keyword{UserID: 1, Text: "sales", Weight: -3.0, IsNegative: true, Source: model.SourceAuto})

	if err := svc.Prune(ctx, 1); err != nil {
		t.Fatalf("prune: %v", err)
	}

	want := []string{"python", "sales"}
	if diff := cmp.Diff(want, keywordTexts(t, store, 1)); diff != "" {
		t.Errorf("retained keywords mismatch (-want +got):\n%s", diff)
	}
}

func TestPruneDerivesPolarityFromWeight(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := newTestService(t, store, nil)

	// Stored flag says negative, but the weight sits above the threshold,
	// so the keyword competes for a positive slot instead of negative
	// retention. With every slot taken by heavier keywords it is pruned.
	mustUpsert(t, store, model.Keyword{UserID: 1, Text: "stale", Weight: -0.5, IsNegative: true, Source: model.SourceAuto})
	for _, text := range []string{"alpha", "bravo", "charlie", "delta", "echo"} {
		mustUpsert(t, store, model.Keyword{UserID: 1, Text: text, Weight: 2.0, Source: model.SourceAuto})
	}

	if err := svc.Prune(ctx, 1); err != nil {
		t.Fatalf("prune: %v", err)
	}

	for _, text := range keywordTexts(t, store, 1) {
		if text == "stale" {
			t.Error("weak negative survived despite full positive slots")
		}
	}
}

func TestPruneCapsManualByRecency(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := newTestService(t, store, nil)

	for _, text := range []string{"one", "two", "three", "four"} {
		mustUpsert(t, store, model.Keyword{UserID: 1, Text: text, Weight: 1.0, Source: model.SourceManual})
	}

	if err := svc.Prune(ctx, 1); err != nil {
		t.Fatalf("prune: %v", err)
	}

	kws, err := store.GetKeywords(ctx, 1)
	if err != nil {
		t.Fatalf("get keywords: %v", err)
	}
	if len(kws) != 3 {
		t.Errorf("got %d manual keywords, want 3 (cap)", len(kws))
	}
	for _, kw := range kws {
		if kw.Source != model.SourceManual {
			t.Errorf("keyword %q has source %q, want manual", kw.Text, kw.Source)
		}
	}
}

func TestPruneIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := newTestService(t, store, nil)

	mustUpsert(t, store, model.Keyword{UserID: 1, Text: "pinned", Weight: 1.0, Source: model.SourceManual})
	mustUpsert(t, store, model.Keyword{UserID: 1, Text: "sales", Weight: -3.0, IsNegative: true, Source: model.SourceAuto})
	for _, text := range []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot"} {
		mustUpsert(t, store, model.Keyword{UserID: 1, Text: text, Weight: 1.0, Source: model.SourceAuto})
	}

	if err := svc.Prune(ctx, 1); err != nil {
		t.Fatalf("first prune: %v", err)
	}
	first := keywordTexts(t, store, 1)

	if err := svc.Prune(ctx, 1); err != nil {
		t.Fatalf("second prune: %v", err)
	}
	second := keywordTexts(t, store, 1)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("prune is not idempotent (-first +second):\n%s", diff)
	}
}
