package dosing

import (
	"github.com/shopspring/decimal"
)

const (
	// TabletStrength is the warfarin tablet size the schedules are built on, in mg.
	TabletStrength = 5.0
	// HalfTablet is the smallest administrable dose fraction, in mg.
	HalfTablet = TabletStrength / 2
)

var (
	hundred    = decimal.NewFromInt(100)
	halfTablet = decimal.NewFromFloat(HalfTablet)
)

// RoundToNearest rounds value to the nearest multiple of step, halves away from zero.
// Arithmetic is decimal so that e.g. 41.125 mg never drifts across a rounding boundary.
func RoundToNearest(value, step float64) float64 {
	if step <= 0 {
		return value
	}
	s := decimal.NewFromFloat(step)
	return decimal.NewFromFloat(value).Div(s).Round(0).Mul(s).InexactFloat64()
}

// applyPercentage applies a signed percentage to the prior weekly dose and rounds the
// result once, to half-tablet granularity.
func applyPercentage(weeklyDose, pct float64) float64 {
	factor := hundred.Add(decimal.NewFromFloat(pct)).Div(hundred)
	return decimal.NewFromFloat(weeklyDose).
		Mul(factor).
		Div(halfTablet).
		Round(0).
		Mul(halfTablet).
		InexactFloat64()
}

// loadingDose is the one-time supplement worth fraction of the mean daily dose,
// rounded to half-tablet granularity and never smaller than half a tablet.
func loadingDose(weeklyDose, fraction float64) float64 {
	if fraction <= 0 {
		return 0
	}
	daily := decimal.NewFromFloat(weeklyDose).Div(decimal.NewFromInt(7))
	v := daily.Mul(decimal.NewFromFloat(fraction)).Div(halfTablet).Round(0).Mul(halfTablet)
	if v.LessThan(halfTablet) {
		return HalfTablet
	}
	return v.InexactFloat64()
}
