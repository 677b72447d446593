// Package ttr computes time in therapeutic range with the Rosendaal linear interpolation
// method, rolling TTR windows and descriptive INR statistics.
package ttr

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tao-dosing-engine/internal/domain"
)

// MinObservations is the smallest history that can be interpolated.
const MinObservations = 2

// rangeEpsilon absorbs float error in interpolated values sitting on a range bound.
const rangeEpsilon = 1e-9

type point struct {
	day time.Time
	inr float64
}

// Calculate returns the TTR of obs against target. When window is nil the whole history
// is scored; otherwise only days in [window.Start, window.End) count, interpolated from
// the latest observation on or before the window start. A history too short to score
// yields Sufficient=false and INSUFFICIENT_DATA quality, not an error.
func Calculate(obs []domain.INRObservation, target domain.TargetRange, window *domain.DateWindow) (*domain.TTRResult, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	points := normalize(obs)
	result := &domain.TTRResult{Target: target, Quality: domain.QualityInsufficient}
	if len(points) == 0 {
		return result, nil
	}

	start, end := points[0].day, points[len(points)-1].day
	if window != nil {
		start, end = domain.CalendarDay(window.Start), domain.CalendarDay(window.End)
		if !start.Before(end) {
			result.StartDate, result.EndDate = start, end
			return result, nil
		}
	}
	result.StartDate, result.EndDate = start, end

	// Statistics and the control count use every raw reading in the window, including
	// same-day repeats that interpolation collapses.
	var inside []float64
	for _, o := range obs {
		if !usable(o) {
			continue
		}
		day := o.Day()
		if !day.Before(start) && (day.Before(end) || (window == nil && day.Equal(end))) {
			inside = append(inside, o.INR)
		}
	}
	applySummary(result, Summarize(inside))
	result.ControlCount = len(inside)

	if len(points) < MinObservations || len(inside) == 0 {
		return result, nil
	}

	first := anchor(points, start)
	for i := first; i < len(points)-1; i++ {
		a, b := points[i], points[i+1]
		span := domain.DaysBetween(a.day, b.day)
		for k := 0; k < span; k++ {
			day := a.day.AddDate(0, 0, k)
			if day.Before(start) {
				continue
			}
			if !day.Before(end) {
				break
			}
			v := a.inr + (b.inr-a.inr)*float64(k)/float64(span)
			switch {
			case v < target.Min-rangeEpsilon:
				result.DaysBelowRange++
			case v > target.Max+rangeEpsilon:
				result.DaysAboveRange++
			default:
				result.DaysInRange++
			}
		}
	}

	result.TotalDays = result.DaysInRange + result.DaysBelowRange + result.DaysAboveRange
	if result.TotalDays == 0 {
		return result, nil
	}

	result.Sufficient = true
	result.Percentage = round(100*float64(result.DaysInRange)/float64(result.TotalDays), 1)
	result.Quality = domain.QualityForPercentage(result.Percentage)
	return result, nil
}

// normalize drops unusable values, orders the history by date and collapses same-day
// duplicates to the later reading.
func normalize(obs []domain.INRObservation) []point {
	sorted := make([]domain.INRObservation, 0, len(obs))
	for _, o := range obs {
		if !usable(o) {
			continue
		}
		sorted = append(sorted, o)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	points := make([]point, 0, len(sorted))
	for _, o := range sorted {
		day := o.Day()
		if n := len(points); n > 0 && points[n-1].day.Equal(day) {
			points[n-1].inr = o.INR
			continue
		}
		points = append(points, point{day: day, inr: o.INR})
	}
	return points
}

func usable(o domain.INRObservation) bool {
	return !o.Date.IsZero() && domain.ValidateINR(o.INR) == nil
}

// anchor returns the index of the latest point on or before start, or 0 when the
// history begins after start.
func anchor(points []point, start time.Time) int {
	idx := 0
	for i, p := range points {
		if p.day.After(start) {
			break
		}
		idx = i
	}
	return idx
}

func applySummary(r *domain.TTRResult, s Summary) {
	r.MeanINR = round(s.Mean, 2)
	r.StdDevINR = round(s.StdDev, 2)
	r.MedianINR = round(s.Median, 2)
	r.MinINR = round(s.Min, 2)
	r.MaxINR = round(s.Max, 2)
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
