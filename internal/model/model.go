package model

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
)

// CategoryIDs is the list-shaped category reference of an event. The store
// occasionally holds a bare scalar; decoding normalizes it to a one-element
// list. A nil CategoryIDs means the event carries no categoryIds at all,
// which is distinct from an empty list.
type CategoryIDs []ID

func (c *CategoryIDs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = nil
		return nil
	}
	if data[0] != '[' {
		var id ID
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*c = CategoryIDs{id}
		return nil
	}
	var ids []ID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	if ids == nil {
		ids = []ID{}
	}
	*c = ids
	return nil
}

func (c CategoryIDs) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	return json.Marshal([]ID(c))
}

// Contains reports whether id is present by exact equality.
func (c CategoryIDs) Contains(id ID) bool {
	return slices.Contains(c, id)
}

// Event is the central record served by the event store.
type Event struct {
	ID          ID          `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	StartTime   string      `json:"startTime"`
	EndTime     string      `json:"endTime"`
	Image       *string     `json:"image"`
	CreatedBy   ID          `json:"createdBy"`
	CategoryIDs CategoryIDs `json:"categoryIds"`

	// Extra keeps fields this client does not model so that a full-replace
	// update sends back the complete record.
	Extra map[string]json.RawMessage `json:"-"`
}

var eventFields = []string{"id", "title", "description", "startTime", "endTime", "image", "createdBy", "categoryIds"}

type eventAlias Event

func (e *Event) UnmarshalJSON(data []byte) error {
	var a eventAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range eventFields {
		delete(raw, k)
	}
	if len(raw) > 0 {
		a.Extra = raw
	}
	*e = Event(a)
	return nil
}

func (e Event) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(eventAlias(e))
	if err != nil {
		return nil, err
	}
	if len(e.Extra) == 0 && !e.ID.IsZero() {
		return known, nil
	}
	out := make(map[string]json.RawMessage, len(e.Extra)+len(eventFields))
	maps.Copy(out, e.Extra)
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	maps.Copy(out, fields)
	// Unsaved events leave the id to the store.
	if e.ID.IsZero() {
		delete(out, "id")
	}
	return json.Marshal(out)
}

// Clone returns a deep copy so callers can hold an independent record.
func (e Event) Clone() Event {
	c := e
	if e.Image != nil {
		img := *e.Image
		c.Image = &img
	}
	if e.CategoryIDs != nil {
		c.CategoryIDs = slices.Clone(e.CategoryIDs)
	}
	if e.Extra != nil {
		c.Extra = maps.Clone(e.Extra)
	}
	return c
}

// ImageURL returns the image data URL or "" when the event has none.
func (e Event) ImageURL() string {
	if e.Image == nil {
		return ""
	}
	return *e.Image
}

// User is read-only reference data.
type User struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Category is read-only reference data.
type Category struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// FindUser returns the user with the given id.
func FindUser(users []User, id ID) (User, bool) {
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}
