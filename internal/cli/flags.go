package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tao-dosing-engine/internal/domain"
)

const dateLayout = "2006-01-02"

// parseGuideline returns "" for an empty flag so the configured default applies.
func parseGuideline(s string) (domain.Guideline, error) {
	if s == "" {
		return "", nil
	}
	return domain.ParseGuideline(s)
}

// parseTarget accepts "standard", "high" or "MIN-MAX". An empty value returns the zero
// range, which the service replaces with the configured default.
func parseTarget(s string) (domain.TargetRange, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return domain.TargetRange{}, nil
	case "standard":
		return domain.StandardTarget, nil
	case "high":
		return domain.HighTarget, nil
	}

	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return domain.TargetRange{}, fmt.Errorf("invalid target %q: want standard, high or MIN-MAX", s)
	}
	minINR, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	if err != nil {
		return domain.TargetRange{}, fmt.Errorf("invalid target minimum %q: %w", lo, err)
	}
	maxINR, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err != nil {
		return domain.TargetRange{}, fmt.Errorf("invalid target maximum %q: %w", hi, err)
	}

	target := domain.TargetRange{Min: minINR, Max: maxINR}
	if err := target.Validate(); err != nil {
		return domain.TargetRange{}, err
	}
	return target, nil
}

// parseDate parses a YYYY-MM-DD flag, returning fallback's calendar day when empty.
func parseDate(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return domain.CalendarDay(fallback), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

// parseWindow returns nil when neither bound is given. A missing bound is open-ended
// on that side of the history.
func parseWindow(from, to string) (*domain.DateWindow, error) {
	if from == "" && to == "" {
		return nil, nil
	}

	window := &domain.DateWindow{
		Start: time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(9999, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	var err error
	if from != "" {
		if window.Start, err = parseDate(from, time.Time{}); err != nil {
			return nil, err
		}
	}
	if to != "" {
		if window.End, err = parseDate(to, time.Time{}); err != nil {
			return nil, err
		}
	}
	if !window.Start.Before(window.End) {
		return nil, fmt.Errorf("window start %s must be before end %s", from, to)
	}
	return window, nil
}

// parseWeekday accepts full or three-letter English day names.
func parseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}
