package domain

import (
	"math"
	"time"
)

// MaxPhysiologicalINR is the upper bound accepted for a single INR measurement.
const MaxPhysiologicalINR = 20.0

// HighShapeThreshold is the target maximum from which the high boundary table applies.
const HighShapeThreshold = 3.5

// INRObservation is a single lab INR result with the therapy context in effect at the time.
// Observations are immutable once recorded.
type INRObservation struct {
	ID         string       `json:"id" db:"id"`
	PatientID  string       `json:"patient_id" db:"patient_id"`
	Date       time.Time    `json:"date" db:"observed_on"`
	INR        float64      `json:"inr" db:"inr"`
	WeeklyDose float64      `json:"weekly_dose_mg" db:"weekly_dose_mg"`
	Compliant  bool         `json:"compliant" db:"compliant"`
	Phase      TherapyPhase `json:"phase" db:"phase"`
}

// Day returns the observation date truncated to its UTC calendar day.
func (o INRObservation) Day() time.Time {
	return CalendarDay(o.Date)
}

// CalendarDay truncates t to midnight UTC of its own calendar date.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(CalendarDay(b).Sub(CalendarDay(a)).Hours() / 24))
}

// Validate checks a stored observation before it enters a history.
func (o *INRObservation) Validate() error {
	if o.PatientID == "" {
		return NewValidationError("patient_id", "patient ID is required", o.PatientID)
	}
	if o.Date.IsZero() {
		return NewValidationError("date", "observation date is required", o.Date)
	}
	if err := ValidateINR(o.INR); err != nil {
		return err
	}
	if o.WeeklyDose < 0 {
		return NewValidationError("weekly_dose_mg", "weekly dose cannot be negative", o.WeeklyDose)
	}
	if o.Phase != "" && !o.Phase.IsValid() {
		return NewValidationError("phase", "unknown therapy phase", o.Phase)
	}
	return nil
}

// ValidateINR rejects values outside the physiological range (0, 20].
func ValidateINR(inr float64) error {
	if math.IsNaN(inr) || inr <= 0 || inr > MaxPhysiologicalINR {
		return NewValidationError("inr", "INR must be greater than 0 and at most 20", inr)
	}
	return nil
}

// TargetRange is the therapeutic INR interval for a patient or indication.
type TargetRange struct {
	Min float64 `json:"min" mapstructure:"min"`
	Max float64 `json:"max" mapstructure:"max"`
}

// Canonical target ranges.
var (
	StandardTarget = TargetRange{Min: 2.0, Max: 3.0}
	HighTarget     = TargetRange{Min: 2.5, Max: 3.5}
)

// Validate rejects inverted or degenerate ranges.
func (r TargetRange) Validate() error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || r.Min <= 0 {
		return NewValidationError("target_min", "target minimum must be positive", r.Min)
	}
	if r.Min >= r.Max {
		return NewValidationError("target_range", "target minimum must be lower than maximum", r)
	}
	return nil
}

// IsHighShape reports whether the range uses the high boundary table (max >= 3.5).
func (r TargetRange) IsHighShape() bool {
	return r.Max >= HighShapeThreshold
}

// Contains reports whether inr lies inside the closed range.
func (r TargetRange) Contains(inr float64) bool {
	return inr >= r.Min && inr <= r.Max
}

// BleedingContext describes an active bleed at the time of evaluation.
type BleedingContext struct {
	Type BleedingType `json:"type"`
	Site string       `json:"site,omitempty"`
}

// RiskInputs are the thrombotic risk factors supplied by the caller.
type RiskInputs struct {
	MechanicalValve bool `json:"mechanical_valve"`
	// DaysSinceThromboembolism is nil when the patient never had an event.
	DaysSinceThromboembolism *int `json:"days_since_thromboembolism,omitempty"`
	CHA2DS2VASc              int  `json:"cha2ds2_vasc"`
}

// EvaluationRequest carries everything a guideline policy needs for one INR result.
type EvaluationRequest struct {
	INR               float64         `json:"inr"`
	Target            TargetRange     `json:"target"`
	CurrentWeeklyDose float64         `json:"current_weekly_dose_mg"`
	Phase             TherapyPhase    `json:"phase"`
	Compliant         bool            `json:"compliant"`
	SlowMetabolizer   bool            `json:"slow_metabolizer"`
	Bleeding          BleedingContext `json:"bleeding"`
	Risk              RiskInputs      `json:"risk"`
	// RecentTTR is the TTR percentage of recent history, when known.
	RecentTTR *float64 `json:"recent_ttr,omitempty"`
}

// Validate rejects invalid inputs before banding.
func (r *EvaluationRequest) Validate() error {
	if err := ValidateINR(r.INR); err != nil {
		return err
	}
	if err := r.Target.Validate(); err != nil {
		return err
	}
	if math.IsNaN(r.CurrentWeeklyDose) || r.CurrentWeeklyDose <= 0 {
		return NewValidationError("current_weekly_dose_mg", "current weekly dose must be positive", r.CurrentWeeklyDose)
	}
	if !r.Phase.IsValid() {
		return NewValidationError("phase", "unknown therapy phase", r.Phase)
	}
	if !r.Bleeding.Type.IsValid() {
		return NewValidationError("bleeding.type", "unknown bleeding type", r.Bleeding.Type)
	}
	if r.Risk.CHA2DS2VASc < 0 || r.Risk.CHA2DS2VASc > 9 {
		return NewValidationError("risk.cha2ds2_vasc", "CHA2DS2-VASc score must be between 0 and 9", r.Risk.CHA2DS2VASc)
	}
	if r.Risk.DaysSinceThromboembolism != nil && *r.Risk.DaysSinceThromboembolism < 0 {
		return NewValidationError("risk.days_since_thromboembolism", "cannot be negative", *r.Risk.DaysSinceThromboembolism)
	}
	if r.RecentTTR != nil && (*r.RecentTTR < 0 || *r.RecentTTR > 100) {
		return NewValidationError("recent_ttr", "TTR must be a percentage", *r.RecentTTR)
	}
	return nil
}

// VitaminKDose is an antidote prescription.
type VitaminKDose struct {
	Milligrams float64       `json:"mg"`
	Route      VitaminKRoute `json:"route"`
}

// DoseRecommendation is the outcome of one guideline evaluation. It is created fresh per
// evaluation and never persisted by the engine.
type DoseRecommendation struct {
	Guideline           Guideline `json:"guideline"`
	Band                INRBand   `json:"band"`
	HighThromboticRisk  bool      `json:"high_thrombotic_risk"`
	CurrentWeeklyDose   float64   `json:"current_weekly_dose_mg"`
	SuggestedWeeklyDose float64   `json:"suggested_weekly_dose_mg"`
	// PercentageAdjustment is the signed percentage applied to the prior weekly dose.
	PercentageAdjustment float64 `json:"percentage_adjustment"`
	// LoadingSupplement is a one-time extra dose for today, in mg.
	LoadingSupplement    float64       `json:"loading_supplement_mg,omitempty"`
	DoseSuspensions      int           `json:"dose_suspensions"`
	TherapySuspended     bool          `json:"therapy_suspended"`
	NextControlDays      int           `json:"next_control_days"`
	Urgency              UrgencyTier   `json:"urgency"`
	NeedsEBPM            bool          `json:"needs_ebpm"`
	VitaminK             *VitaminKDose `json:"vitamin_k,omitempty"`
	NeedsPCC             bool          `json:"needs_pcc"`
	NeedsHospitalization bool          `json:"needs_hospitalization"`
	NeedsIntensiveCare   bool          `json:"needs_intensive_care"`
	Rationale            string        `json:"rationale"`
	Warnings             []string      `json:"warnings,omitempty"`
}

// NeedsVitaminK reports whether an antidote dose is part of the recommendation.
func (r *DoseRecommendation) NeedsVitaminK() bool {
	return r.VitaminK != nil
}

// LogFields returns structured logging fields for audit trails.
func (r *DoseRecommendation) LogFields() map[string]any {
	return map[string]any{
		"guideline":         r.Guideline.String(),
		"band":              r.Band.String(),
		"current_dose_mg":   r.CurrentWeeklyDose,
		"suggested_dose_mg": r.SuggestedWeeklyDose,
		"adjustment_pct":    r.PercentageAdjustment,
		"loading_mg":        r.LoadingSupplement,
		"next_control":      r.NextControlDays,
		"urgency":           r.Urgency.String(),
		"ebpm":              r.NeedsEBPM,
		"vitamin_k":         r.NeedsVitaminK(),
		"suspended":         r.TherapySuspended,
	}
}

// DailyDose is one day of a weekly plan.
type DailyDose struct {
	Day time.Weekday `json:"day"`
	// Dose is the recurring dose for this weekday.
	Dose float64 `json:"dose_mg"`
	// Loading is the one-time supplement taken on this day only.
	Loading float64 `json:"loading_mg,omitempty"`
	Tablets string  `json:"tablets"`
}

// Total returns the amount to take on this day in the current week.
func (d DailyDose) Total() float64 {
	return d.Dose + d.Loading
}

// WeeklyDoseSchedule is a day-granular administration plan, Monday first.
type WeeklyDoseSchedule struct {
	// WeeklyDose is the recurring weekly total, rounded to half-tablet granularity.
	WeeklyDose        float64      `json:"weekly_dose_mg"`
	LoadingSupplement float64      `json:"loading_supplement_mg,omitempty"`
	ReportedTotal     float64      `json:"reported_total_mg"`
	Days              [7]DailyDose `json:"days"`
	Pattern           string       `json:"pattern"`
}

// RecurringTotal sums the recurring daily doses, excluding any loading supplement.
func (s *WeeklyDoseSchedule) RecurringTotal() float64 {
	var sum float64
	for _, d := range s.Days {
		sum += d.Dose
	}
	return sum
}

// DateWindow bounds a TTR calculation to [Start, End).
type DateWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// TTRResult is the Rosendaal time-in-therapeutic-range score for a history.
type TTRResult struct {
	Sufficient     bool        `json:"sufficient"`
	Target         TargetRange `json:"target"`
	Percentage     float64     `json:"percentage"`
	DaysInRange    int         `json:"days_in_range"`
	DaysBelowRange int         `json:"days_below_range"`
	DaysAboveRange int         `json:"days_above_range"`
	TotalDays      int         `json:"total_days"`
	Quality        QualityTier `json:"quality"`
	MeanINR        float64     `json:"mean_inr"`
	StdDevINR      float64     `json:"stddev_inr"`
	MedianINR      float64     `json:"median_inr"`
	MinINR         float64     `json:"min_inr"`
	MaxINR         float64     `json:"max_inr"`
	StartDate      time.Time   `json:"start_date"`
	EndDate        time.Time   `json:"end_date"`
	ControlCount   int         `json:"control_count"`
}

// TTRWindow is one window of a rolling TTR series.
type TTRWindow struct {
	Window DateWindow `json:"window"`
	Result TTRResult  `json:"result"`
}

// RollingTTR is a series of TTR windows of equal length.
type RollingTTR struct {
	Months  int         `json:"months"`
	Windows []TTRWindow `json:"windows"`
	Trend   Trend       `json:"trend"`
}
