package model

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"eventboard/internal/convert"
	"eventboard/internal/datetime"
)

// Draft is the transient form state for a new or edited event. It is kept
// apart from the last confirmed server record and merged into it only after
// the store accepts the submission.
type Draft struct {
	Title       string `validate:"required"`
	Description string
	StartTime   string `validate:"required"`
	EndTime     string `validate:"required"`
	Image       string
	CreatedBy   ID
	CategoryIDs CategoryIDs
}

// DraftFrom builds a draft by copying the event. Category ids are always a
// list in the result: a nil list becomes empty.
func DraftFrom(e Event) Draft {
	d := Draft{
		Title:       e.Title,
		Description: e.Description,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Image:       e.ImageURL(),
		CreatedBy:   e.CreatedBy,
		CategoryIDs: slices.Clone(e.CategoryIDs),
	}
	if d.CategoryIDs == nil {
		d.CategoryIDs = CategoryIDs{}
	}
	return d
}

// Merge applies the draft on top of base and returns the complete record to
// send as a full-replace update. base is not modified.
func (d Draft) Merge(base Event) Event {
	e := base.Clone()
	e.Title = d.Title
	e.Description = d.Description
	e.StartTime = d.StartTime
	e.EndTime = d.EndTime
	if d.Image != "" {
		img := d.Image
		e.Image = &img
	} else {
		e.Image = nil
	}
	e.CreatedBy = d.CreatedBy
	e.CategoryIDs = slices.Clone(d.CategoryIDs)
	if e.CategoryIDs == nil {
		e.CategoryIDs = CategoryIDs{}
	}
	return e
}

// Record turns a new-event draft into an Event without an id.
func (d Draft) Record() Event {
	return d.Merge(Event{})
}

// SetCategory replaces the selection with a single category, the only shape
// the forms produce. An empty value clears the selection.
func (d *Draft) SetCategory(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		d.CategoryIDs = CategoryIDs{}
		return nil
	}
	id, err := ParseNumericID(value)
	if err != nil {
		return err
	}
	d.CategoryIDs = CategoryIDs{id}
	return nil
}

// NumericCategories coerces every category reference to a numeric id.
func (d *Draft) NumericCategories() error {
	out := make(CategoryIDs, 0, len(d.CategoryIDs))
	for _, id := range d.CategoryIDs {
		if id.IsNumeric() {
			out = append(out, id)
			continue
		}
		n, err := ParseNumericID(id.String())
		if err != nil {
			return &ValidationError{Fields: map[string]string{"categoryIds": err.Error()}}
		}
		out = append(out, n)
	}
	d.CategoryIDs = out
	return nil
}

// ValidationError lists draft fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid event: " + strings.Join(parts, "; ")
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

var draftFieldNames = map[string]string{
	"Title":     "title",
	"StartTime": "startTime",
	"EndTime":   "endTime",
}

// Validate checks the draft before it is sent to the store.
func (d Draft) Validate() error {
	fields := map[string]string{}

	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate draft: %w", err)
		}
		for _, fe := range verrs {
			name := draftFieldNames[fe.Field()]
			if name == "" {
				name = fe.Field()
			}
			fields[name] = "is required"
		}
	}

	start, startErr := datetime.Parse(d.StartTime)
	if _, seen := fields["startTime"]; !seen && startErr != nil {
		fields["startTime"] = "is not a valid date and time"
	}
	end, endErr := datetime.Parse(d.EndTime)
	if _, seen := fields["endTime"]; !seen && endErr != nil {
		fields["endTime"] = "is not a valid date and time"
	}
	if startErr == nil && endErr == nil && end.Before(start) {
		fields["endTime"] = "must not be before the start time"
	}
	if d.Image != "" && !validImage(d.Image) {
		fields["image"] = "must be an image data URL"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// ValidateNew checks a draft for a new event. Beyond Validate it requires a
// creator; edits keep whatever creator the stored record has, including none.
func (d Draft) ValidateNew() error {
	fields := map[string]string{}
	if err := d.Validate(); err != nil {
		var ve *ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		maps.Copy(fields, ve.Fields)
	}
	if d.CreatedBy.IsZero() {
		fields["createdBy"] = "is required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// validImage accepts image data URLs and, for records seeded before uploads
// were encoded client-side, plain http(s) links.
func validImage(s string) bool {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return true
	}
	return convert.IsImageDataURL(s)
}
