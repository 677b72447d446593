// Package domain contains the core entities and enumerations for oral anticoagulation
// (vitamin K antagonist) management: INR bands, guideline families, urgency tiers,
// bleeding context and the TTR quality scale.
//
// References: FCSA-SIMG "Guida alla terapia con anticoagulanti orali";
// Holbrook et al. (2012) Evidence-based management of anticoagulant therapy,
// Chest 141(2 Suppl):e152S-e184S (ACCP 9th ed.);
// Rosendaal et al. (1993) Thromb Haemost 69(3):236-9.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Guideline identifies the guideline family driving dose decisions.
type Guideline string

const (
	GuidelineFCSA Guideline = "FCSA"
	GuidelineACCP Guideline = "ACCP"
)

// IsValid reports whether g is a supported guideline family.
func (g Guideline) IsValid() bool {
	switch g {
	case GuidelineFCSA, GuidelineACCP:
		return true
	default:
		return false
	}
}

func (g Guideline) String() string {
	return string(g)
}

// ParseGuideline accepts the guideline name in any letter case.
func ParseGuideline(s string) (Guideline, error) {
	g := Guideline(strings.ToUpper(strings.TrimSpace(s)))
	if !g.IsValid() {
		return "", NewValidationError("guideline", "must be FCSA or ACCP", s)
	}
	return g, nil
}

// AllGuidelines returns every supported guideline family.
func AllGuidelines() []Guideline {
	return []Guideline{GuidelineFCSA, GuidelineACCP}
}

// INRBand is the clinical severity band of an INR value relative to its target range.
// It is integer-backed so guideline tables can be fixed-size arrays indexed by band.
type INRBand int

const (
	BandInRange INRBand = iota
	BandSubLieve
	BandSubModerato
	BandSubCritico
	BandSovraLieve
	BandSovraModerato
	BandSovraElevato
	BandSovraGrave
	BandSovraCritico
	BandSovraEstremo

	// INRBandCount is the number of bands; guideline tables are sized by it.
	INRBandCount int = iota
)

var bandNames = [INRBandCount]string{
	BandInRange:       "InRange",
	BandSubLieve:      "SubLieve",
	BandSubModerato:   "SubModerato",
	BandSubCritico:    "SubCritico",
	BandSovraLieve:    "SovraLieve",
	BandSovraModerato: "SovraModerato",
	BandSovraElevato:  "SovraElevato",
	BandSovraGrave:    "SovraGrave",
	BandSovraCritico:  "SovraCritico",
	BandSovraEstremo:  "SovraEstremo",
}

// AllBands returns every band in severity order, in-range first.
func AllBands() []INRBand {
	bands := make([]INRBand, INRBandCount)
	for i := range bands {
		bands[i] = INRBand(i)
	}
	return bands
}

// IsValid reports whether b is one of the declared bands.
func (b INRBand) IsValid() bool {
	return b >= 0 && int(b) < INRBandCount
}

func (b INRBand) String() string {
	if !b.IsValid() {
		return fmt.Sprintf("INRBand(%d)", int(b))
	}
	return bandNames[b]
}

// IsSubTherapeutic reports whether the INR is below the target range.
func (b INRBand) IsSubTherapeutic() bool {
	return b >= BandSubLieve && b <= BandSubCritico
}

// IsSupraTherapeutic reports whether the INR is above the target range.
func (b INRBand) IsSupraTherapeutic() bool {
	return b >= BandSovraLieve && b <= BandSovraEstremo
}

// Severity ranks a band within its side of the range: 0 in range, 1..3 below, 1..6 above.
func (b INRBand) Severity() int {
	switch {
	case b.IsSubTherapeutic():
		return int(b - BandSubLieve + 1)
	case b.IsSupraTherapeutic():
		return int(b - BandSovraLieve + 1)
	default:
		return 0
	}
}

// MarshalText encodes the band by name.
func (b INRBand) MarshalText() ([]byte, error) {
	if !b.IsValid() {
		return nil, fmt.Errorf("invalid INR band %d", int(b))
	}
	return []byte(b.String()), nil
}

// UnmarshalText decodes a band from its name.
func (b *INRBand) UnmarshalText(text []byte) error {
	for i, name := range bandNames {
		if name == string(text) {
			*b = INRBand(i)
			return nil
		}
	}
	return fmt.Errorf("unknown INR band %q", string(text))
}

// BleedingType grades an active bleeding event.
type BleedingType string

const (
	BleedingNone            BleedingType = "none"
	BleedingMinor           BleedingType = "minor"
	BleedingMajor           BleedingType = "major"
	BleedingLifeThreatening BleedingType = "life_threatening"
)

// IsValid reports whether t is a known bleeding grade. The empty value is treated as none.
func (t BleedingType) IsValid() bool {
	switch t {
	case "", BleedingNone, BleedingMinor, BleedingMajor, BleedingLifeThreatening:
		return true
	default:
		return false
	}
}

// IsBleeding reports whether t describes an active bleed.
func (t BleedingType) IsBleeding() bool {
	return t != "" && t != BleedingNone
}

func (t BleedingType) String() string {
	if t == "" {
		return string(BleedingNone)
	}
	return string(t)
}

// AllBleedingTypes returns every bleeding grade including none.
func AllBleedingTypes() []BleedingType {
	return []BleedingType{BleedingNone, BleedingMinor, BleedingMajor, BleedingLifeThreatening}
}

// TherapyPhase is the stage of warfarin therapy the patient is in.
type TherapyPhase string

const (
	PhaseInduction     TherapyPhase = "induction"
	PhaseStabilization TherapyPhase = "stabilization"
	PhaseMaintenance   TherapyPhase = "maintenance"
)

// IsValid reports whether p is a known therapy phase.
func (p TherapyPhase) IsValid() bool {
	switch p {
	case PhaseInduction, PhaseStabilization, PhaseMaintenance:
		return true
	default:
		return false
	}
}

func (p TherapyPhase) String() string {
	return string(p)
}

// UrgencyTier tells the clinic how quickly a recommendation must be acted on.
type UrgencyTier string

const (
	UrgencyRoutine   UrgencyTier = "Routine"
	UrgencyUrgente   UrgencyTier = "Urgente"
	UrgencyEmergenza UrgencyTier = "Emergenza"
)

// IsValid reports whether u is a known urgency tier.
func (u UrgencyTier) IsValid() bool {
	switch u {
	case UrgencyRoutine, UrgencyUrgente, UrgencyEmergenza:
		return true
	default:
		return false
	}
}

func (u UrgencyTier) String() string {
	return string(u)
}

// VitaminKRoute is the administration route of a Vitamin K antidote dose.
type VitaminKRoute string

const (
	RouteOral        VitaminKRoute = "oral"
	RouteIntravenous VitaminKRoute = "intravenous"
)

// QualityTier classifies a TTR percentage.
type QualityTier string

const (
	QualityExcellent    QualityTier = "EXCELLENT"
	QualityGood         QualityTier = "GOOD"
	QualityAcceptable   QualityTier = "ACCEPTABLE"
	QualitySuboptimal   QualityTier = "SUBOPTIMAL"
	QualityPoor         QualityTier = "POOR"
	QualityInsufficient QualityTier = "INSUFFICIENT_DATA"
)

// IsValid reports whether q is a known quality tier.
func (q QualityTier) IsValid() bool {
	switch q {
	case QualityExcellent, QualityGood, QualityAcceptable, QualitySuboptimal, QualityPoor, QualityInsufficient:
		return true
	default:
		return false
	}
}

func (q QualityTier) String() string {
	return string(q)
}

// QualityForPercentage maps a TTR percentage to its tier using the fixed cut-points
// 70 / 65 / 60 / 50.
func QualityForPercentage(pct float64) QualityTier {
	switch {
	case pct >= 70:
		return QualityExcellent
	case pct >= 65:
		return QualityGood
	case pct >= 60:
		return QualityAcceptable
	case pct >= 50:
		return QualitySuboptimal
	default:
		return QualityPoor
	}
}

// Trend labels the direction of rolling TTR windows.
type Trend string

const (
	TrendImproving    Trend = "improving"
	TrendStable       Trend = "stable"
	TrendWorsening    Trend = "worsening"
	TrendInsufficient Trend = "insufficient"
)

// Sentinel errors for engine input and data conditions.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInsufficientData = errors.New("insufficient data")
)
