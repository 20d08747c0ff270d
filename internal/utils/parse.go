package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseHMSTime parses a scheduler walltime string into a duration.
// Accepted forms: "HH:MM:SS", "HH:MM", or plain minutes ("90").
// Hours may exceed 24 (e.g. "168:00:00"). Empty input parses to zero.
func ParseHMSTime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	parts := strings.Split(s, ":")
	var hours, minutes, seconds int64
	var err error

	switch len(parts) {
	case 3:
		if hours, err = strconv.ParseInt(parts[0], 10, 64); err != nil {
			return 0, fmt.Errorf("invalid hours in %q: %w", s, err)
		}
		if minutes, err = strconv.ParseInt(parts[1], 10, 64); err != nil {
			return 0, fmt.Errorf("invalid minutes in %q: %w", s, err)
		}
		if seconds, err = strconv.ParseInt(parts[2], 10, 64); err != nil {
			return 0, fmt.Errorf("invalid seconds in %q: %w", s, err)
		}
	case 2:
		if hours, err = strconv.ParseInt(parts[0], 10, 64); err != nil {
			return 0, fmt.Errorf("invalid hours in %q: %w", s, err)
		}
		if minutes, err = strconv.ParseInt(parts[1], 10, 64); err != nil {
			return 0, fmt.Errorf("invalid minutes in %q: %w", s, err)
		}
	case 1:
		if minutes, err = strconv.ParseInt(parts[0], 10, 64); err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
	default:
		return 0, fmt.Errorf("invalid time format: %s", s)
	}

	return time.Duration(hours*3600+minutes*60+seconds) * time.Second, nil
}

// FormatHMSTime formats a duration as "HH:MM:SS" with hours allowed past 24.
func FormatHMSTime(d time.Duration) string {
	total := int64(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}

// FormatSeconds formats a second count as "HH:MM:SS".
func FormatSeconds(secs int64) string {
	return FormatHMSTime(time.Duration(secs) * time.Second)
}
