package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ID is an opaque identifier assigned by the event store. The store may use
// JSON numbers or JSON strings; ID remembers which one it received and
// encodes back the same way.
type ID struct {
	value   string
	numeric bool
}

// NumericID builds a numeric ID.
func NumericID(n int64) ID {
	return ID{value: strconv.FormatInt(n, 10), numeric: true}
}

// StringID builds a string ID. An empty string yields the zero ID.
func StringID(s string) ID {
	if s == "" {
		return ID{}
	}
	return ID{value: s}
}

// ParseNumericID coerces form input into a numeric ID using leading-integer
// semantics: "12" and "12abc" both give 12, "abc" is an error.
func ParseNumericID(s string) (ID, error) {
	n, ok := leadingInt(s)
	if !ok {
		return ID{}, fmt.Errorf("not a numeric id: %q", s)
	}
	return NumericID(n), nil
}

// IsZero reports whether the ID is unset.
func (id ID) IsZero() bool { return id.value == "" }

// IsNumeric reports whether the ID was a JSON number.
func (id ID) IsNumeric() bool { return id.numeric }

// Int returns the numeric value of a numeric ID.
func (id ID) Int() (int64, bool) {
	if !id.numeric {
		return 0, false
	}
	n, err := strconv.ParseInt(id.value, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// String returns the textual form, suitable for URL paths and form values.
func (id ID) String() string { return id.value }

func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ID{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	if _, err := n.Int64(); err != nil {
		return errors.New("id: number is not an integer")
	}
	*id = ID{value: n.String(), numeric: true}
	return nil
}

// leadingInt parses an optional sign followed by decimal digits, ignoring
// leading spaces and anything after the digits.
func leadingInt(s string) (int64, bool) {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n') {
		i++
	}
	start := i
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	digits := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == digits {
		return 0, false
	}
	n, err := strconv.ParseInt(s[start:i], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// LeadingInt exposes the leading-integer parse used for category selectors.
func LeadingInt(s string) (int64, bool) { return leadingInt(s) }
