package ttr

import (
	"github.com/tao-dosing-engine/internal/domain"
)

const (
	MinWindowMonths = 1
	MaxWindowMonths = 12

	// trendDeadBand is the TTR change, in percentage points, below which the trend is stable.
	trendDeadBand = 5.0
)

// Rolling computes TTR over consecutive windows of the given length, stepping one month
// at a time back from the last observation. Windows are returned oldest first and only
// windows that start on or after the first observation are produced.
func Rolling(obs []domain.INRObservation, target domain.TargetRange, months int) (*domain.RollingTTR, error) {
	if months < MinWindowMonths || months > MaxWindowMonths {
		return nil, domain.NewValidationError("months", "window length must be between 1 and 12 months", months)
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}

	out := &domain.RollingTTR{Months: months, Trend: domain.TrendInsufficient}
	points := normalize(obs)
	if len(points) < MinObservations {
		return out, nil
	}

	first, last := points[0].day, points[len(points)-1].day
	var windows []domain.TTRWindow
	for step := 0; ; step++ {
		end := last.AddDate(0, -step, 0)
		start := end.AddDate(0, -months, 0)
		if start.Before(first) {
			break
		}
		w := domain.DateWindow{Start: start, End: end}
		r, err := Calculate(obs, target, &w)
		if err != nil {
			return nil, err
		}
		windows = append(windows, domain.TTRWindow{Window: w, Result: *r})
	}

	for i, j := 0, len(windows)-1; i < j; i, j = i+1, j-1 {
		windows[i], windows[j] = windows[j], windows[i]
	}
	out.Windows = windows
	out.Trend = TrendOf(windows)
	return out, nil
}

// TrendOf compares the last two sufficient windows.
func TrendOf(windows []domain.TTRWindow) domain.Trend {
	var scores []float64
	for _, w := range windows {
		if w.Result.Sufficient {
			scores = append(scores, w.Result.Percentage)
		}
	}
	if len(scores) < 2 {
		return domain.TrendInsufficient
	}

	delta := scores[len(scores)-1] - scores[len(scores)-2]
	switch {
	case delta > trendDeadBand:
		return domain.TrendImproving
	case delta < -trendDeadBand:
		return domain.TrendWorsening
	default:
		return domain.TrendStable
	}
}
