package ttr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tao-dosing-engine/internal/domain"
)

var day0 = time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)

func obsAt(days int, inr float64) domain.INRObservation {
	return domain.INRObservation{PatientID: "p1", Date: day0.AddDate(0, 0, days), INR: inr}
}

func TestCalculate_ConstantInRange(t *testing.T) {
	r, err := Calculate([]domain.INRObservation{obsAt(0, 2.5), obsAt(10, 2.5)}, domain.StandardTarget, nil)

	require.NoError(t, err)
	assert.True(t, r.Sufficient)
	assert.Equal(t, 100.0, r.Percentage)
	assert.Equal(t, domain.QualityExcellent, r.Quality)
	assert.Equal(t, 10, r.TotalDays)
	assert.Equal(t, 10, r.DaysInRange)
	assert.Equal(t, 2, r.ControlCount)
}

func TestCalculate_LinearCrossing(t *testing.T) {
	r, err := Calculate([]domain.INRObservation{obsAt(0, 1.5), obsAt(10, 3.5)}, domain.StandardTarget, nil)

	require.NoError(t, err)
	assert.True(t, r.Sufficient)
	assert.Equal(t, 50.0, r.Percentage)
	assert.Equal(t, 5, r.DaysInRange)
	assert.Equal(t, 3, r.DaysBelowRange)
	assert.Equal(t, 2, r.DaysAboveRange)
	assert.Equal(t, domain.QualitySuboptimal, r.Quality)
	assert.Equal(t, 2.5, r.MeanINR)
	assert.Equal(t, 1.5, r.MinINR)
	assert.Equal(t, 3.5, r.MaxINR)
	assert.Equal(t, day0, r.StartDate)
	assert.Equal(t, day0.AddDate(0, 0, 10), r.EndDate)
}

func TestCalculate_InsufficientData(t *testing.T) {
	tests := []struct {
		name   string
		obs    []domain.INRObservation
		window *domain.DateWindow
	}{
		{"no observations", nil, nil},
		{"single observation", []domain.INRObservation{obsAt(0, 2.5)}, nil},
		{"same-day pair", []domain.INRObservation{obsAt(0, 2.5), obsAt(0, 2.8)}, nil},
		{
			"window start after end",
			[]domain.INRObservation{obsAt(0, 2.5), obsAt(10, 2.5)},
			&domain.DateWindow{Start: day0.AddDate(0, 0, 5), End: day0.AddDate(0, 0, 5)},
		},
		{
			"no observation inside the window",
			[]domain.INRObservation{obsAt(0, 2.5), obsAt(30, 2.5)},
			&domain.DateWindow{Start: day0.AddDate(0, 0, 5), End: day0.AddDate(0, 0, 15)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Calculate(tt.obs, domain.StandardTarget, tt.window)

			require.NoError(t, err)
			assert.False(t, r.Sufficient)
			assert.Equal(t, domain.QualityInsufficient, r.Quality)
			assert.Zero(t, r.Percentage)
		})
	}
}

func TestCalculate_SameDayKeepsLaterValue(t *testing.T) {
	early := obsAt(0, 1.2)
	late := obsAt(0, 2.5)
	late.Date = late.Date.Add(3 * time.Hour)

	r, err := Calculate([]domain.INRObservation{late, obsAt(10, 2.5), early}, domain.StandardTarget, nil)

	require.NoError(t, err)
	assert.Equal(t, 100.0, r.Percentage)
	assert.Equal(t, 10, r.TotalDays)
}

func TestCalculate_StatisticsUseRawReadings(t *testing.T) {
	morning := obsAt(0, 2.0)
	morning.Date = morning.Date.Add(9 * time.Hour)
	retest := obsAt(0, 4.0)
	retest.Date = retest.Date.Add(10 * time.Hour)

	r, err := Calculate([]domain.INRObservation{morning, retest, obsAt(10, 2.5)}, domain.StandardTarget, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, r.ControlCount)
	assert.Equal(t, 2.83, r.MeanINR)
	assert.Equal(t, 2.5, r.MedianINR)
	assert.Equal(t, 2.0, r.MinINR)
	assert.Equal(t, 4.0, r.MaxINR)

	// Day 0 interpolates from the later 4.0 reading.
	assert.Equal(t, 10, r.TotalDays)
	assert.Equal(t, 7, r.DaysAboveRange)
	assert.Equal(t, 3, r.DaysInRange)
	assert.Equal(t, 30.0, r.Percentage)
}

func TestCalculate_UnorderedInput(t *testing.T) {
	ordered, err := Calculate([]domain.INRObservation{obsAt(0, 1.5), obsAt(10, 3.5), obsAt(20, 2.5)}, domain.StandardTarget, nil)
	require.NoError(t, err)

	shuffled, err := Calculate([]domain.INRObservation{obsAt(20, 2.5), obsAt(0, 1.5), obsAt(10, 3.5)}, domain.StandardTarget, nil)
	require.NoError(t, err)

	assert.Equal(t, ordered, shuffled)
}

func TestCalculate_Window(t *testing.T) {
	history := []domain.INRObservation{obsAt(0, 2.5), obsAt(10, 2.5), obsAt(20, 1.5)}
	window := &domain.DateWindow{Start: day0.AddDate(0, 0, 12), End: day0.AddDate(0, 0, 21)}

	r, err := Calculate(history, domain.StandardTarget, window)

	require.NoError(t, err)
	assert.True(t, r.Sufficient)
	assert.Equal(t, 8, r.TotalDays)
	assert.Equal(t, 4, r.DaysInRange)
	assert.Equal(t, 4, r.DaysBelowRange)
	assert.Equal(t, 50.0, r.Percentage)
	assert.Equal(t, 1, r.ControlCount)
	assert.Equal(t, window.Start, r.StartDate)
}

func TestCalculate_WindowEndingAfterLastReading(t *testing.T) {
	history := []domain.INRObservation{obsAt(0, 2.5), obsAt(10, 1.2)}
	window := &domain.DateWindow{Start: day0.AddDate(0, 0, 9), End: day0.AddDate(0, 0, 11)}

	r, err := Calculate(history, domain.StandardTarget, window)

	require.NoError(t, err)
	// Segments stop the day before their closing reading, so day 10 is not scored.
	assert.Equal(t, 1, r.TotalDays)
	assert.Equal(t, 1, r.DaysBelowRange)
	assert.Equal(t, 1, r.ControlCount)
	assert.Equal(t, 1.2, r.MeanINR)
}

func TestCalculate_InvalidTarget(t *testing.T) {
	_, err := Calculate([]domain.INRObservation{obsAt(0, 2.5), obsAt(10, 2.5)}, domain.TargetRange{Min: 3, Max: 2}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCalculate_SkipsUnusableValues(t *testing.T) {
	r, err := Calculate([]domain.INRObservation{obsAt(0, 2.5), obsAt(5, 0), obsAt(10, 2.5)}, domain.StandardTarget, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, r.ControlCount)
	assert.Equal(t, 100.0, r.Percentage)
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected Summary
	}{
		{"empty", nil, Summary{}},
		{"single", []float64{2.4}, Summary{Count: 1, Mean: 2.4, Median: 2.4, Min: 2.4, Max: 2.4}},
		{"odd count", []float64{3.0, 1.0, 2.0}, Summary{Count: 3, Mean: 2.0, StdDev: 1.0, Median: 2.0, Min: 1.0, Max: 3.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Summarize(tt.values))
		})
	}

	s := Summarize([]float64{2.0, 3.5, 2.5, 3.0})
	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 2.75, s.Mean, 1e-9)
	assert.InDelta(t, 2.75, s.Median, 1e-9)
	assert.InDelta(t, 0.6455, s.StdDev, 1e-4)
}
