package timestamp

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// StorageLayout is the fixed-width layout written to the database. Stored values
// sort lexicographically in chronological order.
const StorageLayout = "2006-01-02T15:04:05.000000000Z"

// ErrMalformed indicates a stored value that matches none of the accepted layouts.
var ErrMalformed = eris.New("malformed timestamp")

var decodeLayouts = []string{
	StorageLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Encode converts t into its storage representation in UTC.
func Encode(t time.Time) string {
	return t.UTC().Format(StorageLayout)
}

// Decode parses a stored value. Values without a zone are read as UTC.
func Decode(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, eris.Wrap(ErrMalformed, "empty value")
	}

	for _, layout := range decodeLayouts {
		parsed, err := time.ParseInLocation(layout, trimmed, time.UTC)
		if err == nil {
			return parsed.UTC(), nil
		}
	}

	return time.Time{}, eris.Wrapf(ErrMalformed, "decoding %q", trimmed)
}
