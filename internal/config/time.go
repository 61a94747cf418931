package config

import (
	"fmt"
	"time"
)

var startLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseStart parses the simulation start instant. Accepts RFC3339,
// "2006-01-02 15:04" and bare dates, all interpreted as UTC when no
// offset is given.
func ParseStart(s string) (time.Time, error) {
	for _, layout := range startLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid start instant %q", s)
}

// ParseDate parses a bare "2006-01-02" date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}
