package dosing

import (
	"fmt"
	"strings"

	"github.com/tao-dosing-engine/internal/domain"
)

// StableTTRThreshold is the recent TTR from which a maintenance patient qualifies for the
// guideline's extended re-check interval.
const StableTTRThreshold = 70.0

// nonCompliantMaxControlDays caps the re-check interval when adherence is in doubt.
const nonCompliantMaxControlDays = 7

// bandRule is one row of a guideline table.
type bandRule struct {
	// percent is the signed weekly-dose change for standard metabolizers.
	percent float64
	// slowPercent replaces percent for slow metabolizers on sub-therapeutic bands.
	slowPercent float64
	// loadingFraction is the share of the mean daily dose given once, today.
	loadingFraction float64
	suspensions     int
	controlDays     int
	urgency         domain.UrgencyTier
	vitaminK        domain.VitaminKDose
	rationale       string
}

// controlSchedule holds the in-range re-check interval per therapy phase.
type controlSchedule struct {
	induction         int
	stabilization     int
	maintenance       int
	stableMaintenance int
}

func (c controlSchedule) days(phase domain.TherapyPhase, recentTTR *float64) int {
	switch phase {
	case domain.PhaseInduction:
		return c.induction
	case domain.PhaseStabilization:
		return c.stabilization
	default:
		if recentTTR != nil && *recentTTR >= StableTTRThreshold {
			return c.stableMaintenance
		}
		return c.maintenance
	}
}

// guidelineTable is the complete, immutable decision table of one guideline family.
type guidelineTable struct {
	guideline domain.Guideline
	rules     [domain.INRBandCount]bandRule
	inRange   controlSchedule
	// bridgingFrom is the least severe sub-therapeutic band that triggers EBPM in
	// high-risk patients.
	bridgingFrom domain.INRBand
	// annotate adds guideline-specific warnings after the table outcome is applied.
	annotate func(req domain.EvaluationRequest, rec *domain.DoseRecommendation)
}

func (t *guidelineTable) evaluate(req domain.EvaluationRequest) (*domain.DoseRecommendation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	band := ClassifyBand(req.INR, req.Target)
	rec := &domain.DoseRecommendation{
		Guideline:          t.guideline,
		Band:               band,
		HighThromboticRisk: EvaluateThromboticRisk(req.Risk),
		CurrentWeeklyDose:  req.CurrentWeeklyDose,
	}

	if routesToBleeding(req.Bleeding.Type, band) {
		applyBleeding(req, rec)
		return rec, nil
	}

	switch {
	case band == domain.BandInRange:
		t.applyInRange(req, rec)
	case band.IsSubTherapeutic():
		t.applySubTherapeutic(req, rec)
	default:
		t.applySupraTherapeutic(req, rec)
	}

	if req.Bleeding.Type == domain.BleedingMinor {
		rec.Warnings = append(rec.Warnings, minorBleedingWarning(req.Bleeding))
	}
	enforceMinimumDose(rec)
	return rec, nil
}

func (t *guidelineTable) applyInRange(req domain.EvaluationRequest, rec *domain.DoseRecommendation) {
	rule := t.rules[domain.BandInRange]
	rec.SuggestedWeeklyDose = req.CurrentWeeklyDose
	rec.NextControlDays = t.inRange.days(req.Phase, req.RecentTTR)
	rec.Urgency = rule.urgency
	rec.Rationale = describe(req, rec.Band, rule.rationale)

	if !req.Compliant {
		rec.Warnings = append(rec.Warnings, "in-range INR reported with missed doses: reinforce adherence")
		rec.NextControlDays = min(rec.NextControlDays, 2*nonCompliantMaxControlDays)
	}
}

func (t *guidelineTable) applySubTherapeutic(req domain.EvaluationRequest, rec *domain.DoseRecommendation) {
	rule := t.rules[rec.Band]

	pct := rule.percent
	if req.SlowMetabolizer {
		pct = rule.slowPercent
	}
	rationale := rule.rationale
	if !req.Compliant {
		pct = 0
		rationale += " Weekly dose kept unchanged because missed doses explain the low INR."
		rec.Warnings = append(rec.Warnings, "poor adherence reported: verify intake before any dose increase")
	}

	rec.PercentageAdjustment = pct
	rec.SuggestedWeeklyDose = applyPercentage(req.CurrentWeeklyDose, pct)
	rec.LoadingSupplement = loadingDose(req.CurrentWeeklyDose, rule.loadingFraction)
	rec.NextControlDays = rule.controlDays
	rec.Urgency = rule.urgency
	if !req.Compliant {
		rec.NextControlDays = min(rec.NextControlDays, nonCompliantMaxControlDays)
	}

	if rec.HighThromboticRisk && rec.Band.Severity() >= t.bridgingFrom.Severity() {
		rec.NeedsEBPM = true
		rec.Urgency = domain.UrgencyUrgente
		rationale += " High thrombotic risk: start LMWH bridging until INR is back in range."
	}
	rec.Rationale = describe(req, rec.Band, rationale)
}

func (t *guidelineTable) applySupraTherapeutic(req domain.EvaluationRequest, rec *domain.DoseRecommendation) {
	rule := t.rules[rec.Band]

	rec.PercentageAdjustment = rule.percent
	rec.SuggestedWeeklyDose = applyPercentage(req.CurrentWeeklyDose, rule.percent)
	rec.DoseSuspensions = rule.suspensions
	rec.NextControlDays = rule.controlDays
	rec.Urgency = rule.urgency
	if rule.vitaminK.Milligrams > 0 {
		vk := rule.vitaminK
		rec.VitaminK = &vk
	}
	rec.Rationale = describe(req, rec.Band, rule.rationale)

	if !req.Compliant {
		rec.Warnings = append(rec.Warnings, "irregular intake reported: check for extra or doubled doses")
	}
	if t.annotate != nil {
		t.annotate(req, rec)
	}
}

// enforceMinimumDose keeps an active therapy at or above half a tablet per week.
func enforceMinimumDose(rec *domain.DoseRecommendation) {
	if rec.TherapySuspended || rec.SuggestedWeeklyDose >= HalfTablet {
		return
	}
	rec.SuggestedWeeklyDose = HalfTablet
	rec.Warnings = append(rec.Warnings,
		fmt.Sprintf("suggested weekly dose raised to the %.1f mg minimum", HalfTablet))
}

func describe(req domain.EvaluationRequest, band domain.INRBand, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INR %.2f (target %.1f-%.1f) is %s.", req.INR, req.Target.Min, req.Target.Max, band)
	if text != "" {
		b.WriteString(" ")
		b.WriteString(strings.TrimSpace(text))
	}
	return b.String()
}

// validate reports the first incomplete row of the table.
func (t *guidelineTable) validate() error {
	for _, band := range domain.AllBands() {
		rule := t.rules[band]
		if strings.TrimSpace(rule.rationale) == "" {
			return fmt.Errorf("%s: band %s has no rationale", t.guideline, band)
		}
		if !rule.urgency.IsValid() {
			return fmt.Errorf("%s: band %s has no urgency", t.guideline, band)
		}
		if band != domain.BandInRange && rule.controlDays <= 0 {
			return fmt.Errorf("%s: band %s has no control interval", t.guideline, band)
		}
		if band.IsSubTherapeutic() && rule.percent <= 0 {
			return fmt.Errorf("%s: band %s must increase the dose", t.guideline, band)
		}
		if band.IsSupraTherapeutic() && rule.percent >= 0 {
			return fmt.Errorf("%s: band %s must decrease the dose", t.guideline, band)
		}
	}
	if t.inRange.induction <= 0 || t.inRange.stabilization <= 0 ||
		t.inRange.maintenance <= 0 || t.inRange.stableMaintenance <= 0 {
		return fmt.Errorf("%s: in-range control schedule is incomplete", t.guideline)
	}
	if !t.bridgingFrom.IsSubTherapeutic() {
		return fmt.Errorf("%s: bridging threshold %s is not sub-therapeutic", t.guideline, t.bridgingFrom)
	}
	return nil
}

// FCSAPolicy applies the FCSA-SIMG recommendations.
type FCSAPolicy struct{}

// Guideline implements domain.DosingPolicy.
func (FCSAPolicy) Guideline() domain.Guideline { return domain.GuidelineFCSA }

// Evaluate implements domain.DosingPolicy.
func (FCSAPolicy) Evaluate(req domain.EvaluationRequest) (*domain.DoseRecommendation, error) {
	return fcsaTable.evaluate(req)
}

// ACCPPolicy applies the ACCP 9th edition recommendations.
type ACCPPolicy struct{}

// Guideline implements domain.DosingPolicy.
func (ACCPPolicy) Guideline() domain.Guideline { return domain.GuidelineACCP }

// Evaluate implements domain.DosingPolicy.
func (ACCPPolicy) Evaluate(req domain.EvaluationRequest) (*domain.DoseRecommendation, error) {
	return accpTable.evaluate(req)
}

// EvaluateFCSA evaluates req under the FCSA guideline.
func EvaluateFCSA(req domain.EvaluationRequest) (*domain.DoseRecommendation, error) {
	return FCSAPolicy{}.Evaluate(req)
}

// EvaluateACCP evaluates req under the ACCP guideline.
func EvaluateACCP(req domain.EvaluationRequest) (*domain.DoseRecommendation, error) {
	return ACCPPolicy{}.Evaluate(req)
}

// PolicyFor returns the policy of a guideline family.
func PolicyFor(g domain.Guideline) (domain.DosingPolicy, error) {
	switch g {
	case domain.GuidelineFCSA:
		return FCSAPolicy{}, nil
	case domain.GuidelineACCP:
		return ACCPPolicy{}, nil
	default:
		return nil, domain.NewValidationError("guideline", "must be FCSA or ACCP", g)
	}
}
