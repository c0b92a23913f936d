package model

import (
	"fmt"
	"strings"
	"time"
)

// Date is a timestamp whose upstream encoding varies: full RFC 3339 on
// server-generated fields, a bare YYYY-MM-DD on user-entered dates.
type Date struct {
	time.Time
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
}

// UnmarshalJSON accepts any of the upstream date encodings. Empty and null
// decode to the zero value.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("unrecognized date %q", s)
}

// MarshalJSON encodes as RFC 3339, or null for the zero value.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(time.RFC3339) + `"`), nil
}

// Display formats the date for tables, or a dash when unset.
func (d Date) Display() string {
	if d.IsZero() {
		return "—"
	}
	return d.Format("2006-01-02")
}
