package filter

import (
	"testing"

	"eventboard/internal/model"
)

func ev(id int64, title string, cats model.CategoryIDs) model.Event {
	return model.Event{ID: model.NumericID(id), Title: title, CategoryIDs: cats}
}

func ids(events []model.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID.String())
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var sample = []model.Event{
	ev(1, "Night Market", model.CategoryIDs{model.NumericID(2)}),
	ev(2, "Morning Yoga", model.CategoryIDs{model.NumericID(3)}),
	ev(3, "Late NIGHT jazz", nil),
	ev(4, "Board games", model.CategoryIDs{}),
	ev(5, "Midnight run", model.CategoryIDs{model.NumericID(2), model.NumericID(3)}),
}

func TestFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		c    Criteria
		want []string
	}{
		{name: "no criteria", c: Criteria{}, want: []string{"1", "2", "3", "4", "5"}},
		{name: "case-insensitive query", c: Criteria{Query: "night"}, want: []string{"1", "3", "5"}},
		{name: "query and category", c: Criteria{Query: "night", Category: "2"}, want: []string{"1", "5"}},
		{name: "multi-category event", c: Criteria{Category: "3"}, want: []string{"2", "5"}},
		{name: "uncategorized in default", c: Criteria{Category: "1"}, want: []string{"3"}},
		{name: "leading integer selector", c: Criteria{Category: "2abc"}, want: []string{"1", "5"}},
		{name: "non-numeric selector", c: Criteria{Category: "music"}, want: []string{}},
		{name: "no match", c: Criteria{Query: "opera"}, want: []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ids(Filter(sample, tc.c))
			if !equal(got, tc.want) {
				t.Fatalf("Filter(%+v) = %v, want %v", tc.c, got, tc.want)
			}
		})
	}
}

func TestFilterIsSubsetInOrder(t *testing.T) {
	t.Parallel()

	before := ids(sample)
	got := Filter(sample, Criteria{Query: "n"})
	if len(got) > len(sample) {
		t.Fatalf("filtered %d events out of %d", len(got), len(sample))
	}
	j := 0
	for _, e := range got {
		for j < len(sample) && sample[j].ID != e.ID {
			j++
		}
		if j == len(sample) {
			t.Fatalf("event %s out of order or not in input", e.ID)
		}
	}
	if !equal(ids(sample), before) {
		t.Fatal("Filter modified its input")
	}
}

func TestFilterIsIdempotent(t *testing.T) {
	t.Parallel()

	c := Criteria{Query: "night", Category: "2"}
	once := Filter(sample, c)
	twice := Filter(once, c)
	if !equal(ids(once), ids(twice)) {
		t.Fatalf("Filter not idempotent: %v then %v", ids(once), ids(twice))
	}
}

func TestEngineDefaultCategory(t *testing.T) {
	t.Parallel()

	e := New(4)
	if e.DefaultCategory() != 4 {
		t.Fatalf("DefaultCategory = %d, want 4", e.DefaultCategory())
	}
	if got := ids(e.Filter(sample, Criteria{Category: "4"})); !equal(got, []string{"3"}) {
		t.Fatalf("Filter(category 4) = %v, want [3]", got)
	}
	if got := ids(e.Filter(sample, Criteria{Category: "1"})); len(got) != 0 {
		t.Fatalf("Filter(category 1) = %v, want none", got)
	}
}

func TestMatchAndIsZero(t *testing.T) {
	t.Parallel()

	e := New(DefaultCategoryID)
	if !e.Match(sample[0], Criteria{Query: "MARKET"}) {
		t.Fatal("Match = false, want true")
	}
	if e.Match(sample[1], Criteria{Query: "market"}) {
		t.Fatal("Match = true, want false")
	}
	if !(Criteria{}).IsZero() || (Criteria{Category: "1"}).IsZero() {
		t.Fatal("IsZero mismatch")
	}
}
