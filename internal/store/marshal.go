package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Timestamps are stored as RFC 3339 UTC text. TEXT columns keep the value
// identical across the cgo and pure Go drivers, which disagree on DATETIME
// column conversion.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// nullable converts an optional string to a driver argument (nil -> NULL).
func nullable(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// optional converts a scanned nullable column to an optional string.
func optional(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
