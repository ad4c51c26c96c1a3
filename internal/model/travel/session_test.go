package travel

import (
	"testing"
	"time"
)

func TestMergeAddsNewValues(t *testing.T) {
	ctx := Context{}
	ctx.Merge(map[string][]string{
		CategoryLocation: {"Tokyo"},
		CategoryMonth:    {"march"},
	})

	if got := ctx[CategoryLocation]; len(got) != 1 || got[0] != "Tokyo" {
		t.Fatalf("expected [Tokyo], got %v", got)
	}
	if !ctx.Has(CategoryMonth) {
		t.Fatal("expected month to be present")
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	ctx := Context{}
	categories := map[string][]string{CategoryLocation: {"Tokyo"}, CategoryInterests: {"food"}}

	ctx.Merge(categories)
	ctx.Merge(categories)

	if len(ctx[CategoryLocation]) != 1 {
		t.Fatalf("expected 1 location after double merge, got %v", ctx[CategoryLocation])
	}
	if len(ctx[CategoryInterests]) != 1 {
		t.Fatalf("expected 1 interest after double merge, got %v", ctx[CategoryInterests])
	}
}

func TestMergeEqualityIsCaseInsensitive(t *testing.T) {
	ctx := Context{}
	ctx.Merge(map[string][]string{CategoryLocation: {"Tokyo"}})
	ctx.Merge(map[string][]string{CategoryLocation: {"  tokyo "}})

	got := ctx[CategoryLocation]
	if len(got) != 1 || got[0] != "Tokyo" {
		t.Fatalf("expected the first spelling to win, got %v", got)
	}
}

func TestMergeKeepsInsertionOrder(t *testing.T) {
	ctx := Context{}
	ctx.Merge(map[string][]string{CategoryInterests: {"food"}})
	ctx.Merge(map[string][]string{CategoryInterests: {"history"}})
	ctx.Merge(map[string][]string{CategoryInterests: {"food", "art"}})

	got := ctx[CategoryInterests]
	want := []string{"food", "history", "art"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestMergeNeverRemoves(t *testing.T) {
	ctx := Context{}
	ctx.Merge(map[string][]string{CategoryLocation: {"Tokyo"}})
	ctx.Merge(map[string][]string{CategoryClimate: {"warm"}})

	if !ctx.Has(CategoryLocation) {
		t.Fatal("merge of a disjoint category must not drop earlier values")
	}
}

func TestMergeSkipsBlankValues(t *testing.T) {
	ctx := Context{}
	ctx.Merge(map[string][]string{CategoryLocation: {"  ", ""}})

	if ctx.Has(CategoryLocation) {
		t.Fatalf("blank values must not be recorded, got %v", ctx[CategoryLocation])
	}
}

func TestReplaceSwapsValues(t *testing.T) {
	ctx := Context{}
	ctx.Merge(map[string][]string{CategoryLocation: {"Tokyo", "Kyoto"}})

	ctx.Replace(CategoryLocation, []string{"Paris"})

	got := ctx[CategoryLocation]
	if len(got) != 1 || got[0] != "Paris" {
		t.Fatalf("expected [Paris], got %v", got)
	}
}

func TestReplaceWithNothingDeletesCategory(t *testing.T) {
	ctx := Context{}
	ctx.Merge(map[string][]string{CategoryLocation: {"Tokyo"}})

	ctx.Replace(CategoryLocation, []string{"  "})

	if ctx.Has(CategoryLocation) {
		t.Fatal("expected category to be removed")
	}
}

func TestFirstReturnsEarliestValue(t *testing.T) {
	ctx := Context{}
	ctx.Merge(map[string][]string{CategoryLocation: {"Tokyo"}})
	ctx.Merge(map[string][]string{CategoryLocation: {"Kyoto"}})

	got, ok := ctx.First(CategoryLocation)
	if !ok || got != "Tokyo" {
		t.Fatalf("expected Tokyo, got %q ok=%v", got, ok)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	ctx := Context{}
	ctx.Merge(map[string][]string{CategoryLocation: {"Tokyo"}})

	clone := ctx.Clone()
	clone.Merge(map[string][]string{CategoryLocation: {"Paris"}})

	if len(ctx[CategoryLocation]) != 1 {
		t.Fatalf("mutating the clone leaked into the original: %v", ctx[CategoryLocation])
	}
}

func TestCacheKeyNormalizes(t *testing.T) {
	if got := CacheKey(DataWeather, " Tokyo ", "March"); got != "weather|tokyo|march" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := CacheKey(DataAttractions, "Tokyo", ""); got != "attractions|tokyo" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestCacheEntryValidity(t *testing.T) {
	now := time.Now().UTC()
	entry := CacheEntry{InsertedAt: now, TTL: time.Hour}

	if !entry.Valid(now.Add(59 * time.Minute)) {
		t.Fatal("entry inside the window must be valid")
	}
	if entry.Valid(now.Add(time.Hour)) {
		t.Fatal("entry at the boundary must be expired")
	}
	if (CacheEntry{InsertedAt: now}).Valid(now) {
		t.Fatal("zero TTL entry must never be valid")
	}
}
