package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClock parses a stage time written as "HH:MM:SS", "MM:SS" or either form
// with a fractional seconds part ("01:02:03.45").
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty time")
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("time %q: expected HH:MM:SS or MM:SS", s)
	}

	secs, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil || secs < 0 || secs >= 60 {
		return 0, fmt.Errorf("time %q: invalid seconds", s)
	}
	mins, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil || mins < 0 || mins >= 60 {
		return 0, fmt.Errorf("time %q: invalid minutes", s)
	}
	hours := 0
	if len(parts) == 3 {
		hours, err = strconv.Atoi(parts[0])
		if err != nil || hours < 0 {
			return 0, fmt.Errorf("time %q: invalid hours", s)
		}
	}

	d := time.Duration(hours)*time.Hour +
		time.Duration(mins)*time.Minute +
		time.Duration(secs*float64(time.Second)).Round(time.Millisecond)
	return d, nil
}

// FormatClock renders d as "HH:MM:SS" with milliseconds when present.
func FormatClock(d time.Duration) string {
	d = d.Round(time.Millisecond)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	if ms := d / time.Millisecond; ms > 0 {
		return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
