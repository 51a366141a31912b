package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func validDraft() Draft {
	return Draft{
		Title:       "Spring fair",
		StartTime:   "2024-03-10T10:00:00Z",
		EndTime:     "2024-03-10T12:00:00Z",
		CreatedBy:   NumericID(1),
		CategoryIDs: CategoryIDs{NumericID(2)},
	}
}

func TestDraftValidateAcceptsCompleteDraft(t *testing.T) {
	t.Parallel()

	if err := validDraft().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestDraftValidateReportsFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Draft)
		field  string
	}{
		{name: "missing title", mutate: func(d *Draft) { d.Title = "" }, field: "title"},
		{name: "missing start", mutate: func(d *Draft) { d.StartTime = "" }, field: "startTime"},
		{name: "bad end", mutate: func(d *Draft) { d.EndTime = "soon" }, field: "endTime"},
		{name: "end before start", mutate: func(d *Draft) { d.EndTime = "2024-03-10T09:00:00Z" }, field: "endTime"},
		{name: "image not data url", mutate: func(d *Draft) { d.Image = "ftp://x/y.png" }, field: "image"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			d := validDraft()
			tc.mutate(&d)
			err := d.Validate()
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() = %v, want ValidationError", err)
			}
			if _, ok := ve.Fields[tc.field]; !ok {
				t.Fatalf("fields = %v, want %s", ve.Fields, tc.field)
			}
			if !IsValidation(err) {
				t.Fatal("IsValidation = false")
			}
		})
	}
}

func TestDraftValidateCreatorRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		creator   ID
		wantNew   bool
		wantField bool
	}{
		{name: "numeric creator", creator: NumericID(1), wantNew: true},
		{name: "string creator", creator: StringID("u1"), wantNew: true},
		{name: "no creator", creator: ID{}, wantNew: false, wantField: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			d := validDraft()
			d.CreatedBy = tc.creator
			if err := d.Validate(); err != nil {
				t.Fatalf("Validate() = %v, want nil for an edit", err)
			}
			err := d.ValidateNew()
			if (err == nil) != tc.wantNew {
				t.Fatalf("ValidateNew() = %v, want ok = %v", err, tc.wantNew)
			}
			var ve *ValidationError
			if tc.wantField && (!errors.As(err, &ve) || ve.Fields["createdBy"] != "is required") {
				t.Fatalf("ValidateNew() = %v, want createdBy is required", err)
			}
		})
	}
}

func TestDraftValidateNewKeepsOtherFields(t *testing.T) {
	t.Parallel()

	d := validDraft()
	d.Title = ""
	d.CreatedBy = ID{}
	var ve *ValidationError
	if err := d.ValidateNew(); !errors.As(err, &ve) {
		t.Fatalf("ValidateNew() = %v, want ValidationError", err)
	}
	if len(ve.Fields) != 2 || ve.Fields["title"] == "" || ve.Fields["createdBy"] == "" {
		t.Fatalf("fields = %v, want title and createdBy", ve.Fields)
	}
}

func TestDraftValidateAcceptsImageSources(t *testing.T) {
	t.Parallel()

	for _, img := range []string{"data:image/png;base64,iVBORw0KGgo=", "https://example.com/a.png"} {
		d := validDraft()
		d.Image = img
		if err := d.Validate(); err != nil {
			t.Fatalf("Validate(image=%q) = %v, want nil", img, err)
		}
	}
}

func TestDraftFromCopiesAndNormalizes(t *testing.T) {
	t.Parallel()

	img := "data:image/png;base64,AAAA"
	ev := Event{ID: NumericID(4), Title: "Gala", Image: &img, CreatedBy: NumericID(1)}
	d := DraftFrom(ev)
	if d.CategoryIDs == nil || len(d.CategoryIDs) != 0 {
		t.Fatalf("categoryIds = %#v, want empty list", d.CategoryIDs)
	}
	if d.Image != img {
		t.Fatalf("image = %q, want %q", d.Image, img)
	}

	ev.CategoryIDs = CategoryIDs{NumericID(1)}
	d = DraftFrom(ev)
	d.CategoryIDs[0] = NumericID(5)
	if ev.CategoryIDs[0] != NumericID(1) {
		t.Fatal("editing the draft changed the event")
	}
}

func TestDraftMergeKeepsRecord(t *testing.T) {
	t.Parallel()

	base := Event{
		ID:    NumericID(9),
		Title: "Old",
		Extra: map[string]json.RawMessage{"location": json.RawMessage(`"Hall A"`)},
	}
	d := validDraft()
	d.Title = "New"

	got := d.Merge(base)
	if got.ID != base.ID {
		t.Fatalf("id = %v, want %v", got.ID, base.ID)
	}
	if got.Title != "New" {
		t.Fatalf("title = %q, want New", got.Title)
	}
	if base.Title != "Old" {
		t.Fatal("Merge modified base")
	}
	if string(got.Extra["location"]) != `"Hall A"` {
		t.Fatalf("extra = %v, want location kept", got.Extra)
	}
	if got.Image != nil {
		t.Fatalf("image = %v, want nil for empty draft image", got.Image)
	}
}

func TestDraftSetCategory(t *testing.T) {
	t.Parallel()

	var d Draft
	if err := d.SetCategory("3"); err != nil {
		t.Fatalf("SetCategory: %v", err)
	}
	if len(d.CategoryIDs) != 1 || d.CategoryIDs[0] != NumericID(3) {
		t.Fatalf("categoryIds = %v, want [3]", d.CategoryIDs)
	}
	if err := d.SetCategory(""); err != nil {
		t.Fatalf("SetCategory(\"\"): %v", err)
	}
	if d.CategoryIDs == nil || len(d.CategoryIDs) != 0 {
		t.Fatalf("categoryIds = %#v, want empty list", d.CategoryIDs)
	}
	if err := d.SetCategory("music"); err == nil {
		t.Fatal("expected error for non-numeric category")
	}
}

func TestDraftNumericCategories(t *testing.T) {
	t.Parallel()

	d := Draft{CategoryIDs: CategoryIDs{StringID("2"), NumericID(3)}}
	if err := d.NumericCategories(); err != nil {
		t.Fatalf("NumericCategories: %v", err)
	}
	want := CategoryIDs{NumericID(2), NumericID(3)}
	for i := range want {
		if d.CategoryIDs[i] != want[i] {
			t.Fatalf("categoryIds = %v, want %v", d.CategoryIDs, want)
		}
	}

	d = Draft{CategoryIDs: CategoryIDs{StringID("music")}}
	if err := d.NumericCategories(); !IsValidation(err) {
		t.Fatalf("NumericCategories = %v, want ValidationError", err)
	}
}
