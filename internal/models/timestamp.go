package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// timestampLayouts are the layouts the backend is known to emit.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	http.TimeFormat,
	time.RFC1123,
	time.RFC1123Z,
}

// Timestamp is a backend date that tolerates several layouts and null.
// The zero value means "not set".
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// ParseTimestamp parses s with the first matching known layout.
func ParseTimestamp(s string) (Timestamp, error) {
	if s == "" {
		return Timestamp{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// Display renders the timestamp in local time with layout, or fallback when
// unset.
func (t Timestamp) Display(layout, fallback string) string {
	if t.IsZero() {
		return fallback
	}
	return t.Time.Local().Format(layout)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	// an unreadable date leaves the field unset rather than failing the
	// whole collection it arrived in
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		log.WithField("value", string(data)).Warn("Ignoring non-string timestamp")
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		log.WithError(err).Warn("Ignoring unrecognised timestamp")
		*t = Timestamp{}
		return nil
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// Flag is a boolean that also accepts 0/1, as SQLite-backed APIs return.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	switch s {
	case "null", "":
		*f = false
		return nil
	case "true":
		*f = true
		return nil
	case "false":
		*f = false
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("flag: invalid value %s", data)
	}
	*f = n != 0
	return nil
}
