package schemas

import (
	"fmt"
	"strings"
	"time"
)

// isoLayout is the millisecond-precision ISO-8601 layout used on the wire;
// UTC values are written with a "Z" suffix (e.g. 2026-01-15T10:30:00.000Z).
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp is a time.Time that serialises to ISO-8601 with millisecond
// precision instead of Go's default RFC3339Nano, and tolerates a handful of
// timestamp shapes on decode (with/without fractional seconds, with "Z" or a
// numeric offset) for forward compatibility with older producers.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates to millisecond precision, matching what the wire
// format can actually represent, so that Decode(Encode(x)) == x holds.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t.UTC().Truncate(time.Millisecond)}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.UTC().Format(isoLayout) + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*t = Timestamp{}
		return nil
	}
	for _, layout := range []string{isoLayout, time.RFC3339Nano, time.RFC3339} {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = NewTimestamp(parsed)
			return nil
		}
	}
	return fmt.Errorf("timestamp: cannot parse %q", s)
}
