// Package sqlite provides the durable store for ClubMesh.
package sqlite

import (
	"fmt"
	"time"
)

// Timestamps are stored as ISO 8601 text. New rows are written in UTC
// with an explicit offset; rows written by older deployments carry no
// offset and are read as UTC.
const (
	timeLayout       = "2006-01-02T15:04:05.999999-07:00"
	legacyTimeLayout = "2006-01-02T15:04:05.999999"
)

// formatTime renders a timestamp for storage. The zero time is stored
// as the empty string.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// parseTime reads a stored timestamp, accepting both the current and
// the legacy offset-less layout.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(legacyTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
