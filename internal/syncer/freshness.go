package syncer

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// DefaultMaxAge is how old the last sync may be before the CLI suggests
// running one.
const DefaultMaxAge = 24 * time.Hour

// WriteFreshnessMarker writes the current Unix timestamp to path.
func WriteFreshnessMarker(fs afero.Fs, path string) error {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	return afero.WriteFile(fs, path, []byte(ts), 0644)
}

// ReadFreshnessMarker reads the timestamp from path.
// Returns zero time if the file doesn't exist or can't be parsed.
func ReadFreshnessMarker(fs afero.Fs, path string) time.Time {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return time.Time{}
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}

// IsStale returns true if the last sync happened more than maxAge ago, or
// never.
func IsStale(fs afero.Fs, path string, maxAge time.Duration) bool {
	last := ReadFreshnessMarker(fs, path)
	if last.IsZero() {
		return true
	}
	return time.Since(last) > maxAge
}
