// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrInvalidTimestamp is returned for an output timestamp that is
	// neither epoch seconds nor ISO-8601.
	ErrInvalidTimestamp = errors.New("invalid output timestamp")

	// zip stores DOS times, which start in 1980.
	minTimestamp = time.Date(1980, 1, 1, 0, 0, 2, 0, time.UTC)
	maxTimestamp = time.Date(2099, 12, 31, 23, 59, 59, 0, time.UTC)
)

// ParseOutputTimestamp interprets a build output timestamp. Values shorter
// than two characters disable reproducible output and yield the zero time.
// All-digit values are epoch seconds; anything else must be ISO-8601 with an
// offset, e.g. "2024-01-01T00:00:00Z".
func ParseOutputTimestamp(s string) (time.Time, error) {
	if len(s) < 2 {
		return time.Time{}, nil
	}

	var ts time.Time
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		ts = time.Unix(secs, 0).UTC()
	} else {
		parsed, perr := time.Parse(time.RFC3339, s)
		if perr != nil {
			return time.Time{}, fmt.Errorf("%w %q: %w", ErrInvalidTimestamp, s, perr)
		}
		ts = parsed.UTC()
	}

	if ts.Before(minTimestamp) || ts.After(maxTimestamp) {
		return time.Time{}, fmt.Errorf("%w %q: must be between %s and %s",
			ErrInvalidTimestamp, s, minTimestamp.Format(time.RFC3339), maxTimestamp.Format(time.RFC3339))
	}
	return ts.Truncate(time.Second), nil
}
