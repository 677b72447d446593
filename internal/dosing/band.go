// Package dosing implements the INR band classifier, the thrombotic risk evaluator, the
// FCSA and ACCP dose-adjustment policies with their shared bleeding protocol, and the
// weekly schedule synthesizer. Every function is pure and safe for concurrent use.
package dosing

import (
	"github.com/tao-dosing-engine/internal/domain"
)

// BoundaryTable holds the published lower bounds of each out-of-range band for one
// target-range shape. Bounds are inclusive; the next bound up is exclusive.
type BoundaryTable struct {
	Name string

	SubLieveFrom    float64
	SubModeratoFrom float64

	SovraModeratoFrom float64
	SovraElevatoFrom  float64
	SovraGraveFrom    float64
	SovraCriticoFrom  float64
	SovraEstremoFrom  float64
}

// standardBoundaries applies to target ranges with max < 3.5 (e.g. 2.0-3.0).
var standardBoundaries = BoundaryTable{
	Name:              "standard",
	SubLieveFrom:      1.8,
	SubModeratoFrom:   1.5,
	SovraModeratoFrom: 3.5,
	SovraElevatoFrom:  4.0,
	SovraGraveFrom:    5.0,
	SovraCriticoFrom:  6.0,
	SovraEstremoFrom:  10.0,
}

// highBoundaries applies to target ranges with max >= 3.5 (e.g. 2.5-3.5).
var highBoundaries = BoundaryTable{
	Name:              "high",
	SubLieveFrom:      2.3,
	SubModeratoFrom:   2.0,
	SovraModeratoFrom: 4.0,
	SovraElevatoFrom:  4.5,
	SovraGraveFrom:    5.0,
	SovraCriticoFrom:  6.0,
	SovraEstremoFrom:  10.0,
}

// BoundariesFor returns a copy of the boundary table for a target range shape.
func BoundariesFor(target domain.TargetRange) BoundaryTable {
	if target.IsHighShape() {
		return highBoundaries
	}
	return standardBoundaries
}

// ClassifyBand maps an INR value to its severity band relative to target.
// Every real value maps to exactly one band.
func ClassifyBand(inr float64, target domain.TargetRange) domain.INRBand {
	if target.Contains(inr) {
		return domain.BandInRange
	}

	table := BoundariesFor(target)
	if inr < target.Min {
		return table.below(inr)
	}
	return table.above(inr)
}

func (t BoundaryTable) below(inr float64) domain.INRBand {
	switch {
	case inr >= t.SubLieveFrom:
		return domain.BandSubLieve
	case inr >= t.SubModeratoFrom:
		return domain.BandSubModerato
	default:
		return domain.BandSubCritico
	}
}

func (t BoundaryTable) above(inr float64) domain.INRBand {
	switch {
	case inr >= t.SovraEstremoFrom:
		return domain.BandSovraEstremo
	case inr >= t.SovraCriticoFrom:
		return domain.BandSovraCritico
	case inr >= t.SovraGraveFrom:
		return domain.BandSovraGrave
	case inr >= t.SovraElevatoFrom:
		return domain.BandSovraElevato
	case inr >= t.SovraModeratoFrom:
		return domain.BandSovraModerato
	default:
		return domain.BandSovraLieve
	}
}
