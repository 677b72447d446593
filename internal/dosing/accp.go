package dosing

import (
	"fmt"

	"github.com/tao-dosing-engine/internal/domain"
)

// accpVeryHighINR is the INR from which ACCP recommends closer scrutiny even though
// routine Vitamin K is still withheld.
const accpVeryHighINR = 8.0

// accpTable follows Holbrook et al., ACCP 9th ed. Adjustments are smaller, stable
// maintenance intervals longer, and routine Vitamin K is withheld below INR 10.
var accpTable = &guidelineTable{
	guideline: domain.GuidelineACCP,
	rules: [domain.INRBandCount]bandRule{
		domain.BandInRange: {
			urgency:   domain.UrgencyRoutine,
			rationale: "Keep the current weekly dose.",
		},
		domain.BandSubLieve: {
			percent: 5, slowPercent: 2.5, loadingFraction: 0.5,
			controlDays: 14, urgency: domain.UrgencyRoutine,
			rationale: "Slightly low: a single low value rarely needs more than a small increase.",
		},
		domain.BandSubModerato: {
			percent: 7.5, slowPercent: 5, loadingFraction: 0.5,
			controlDays: 10, urgency: domain.UrgencyRoutine,
			rationale: "Moderately low: modest weekly increase with a half-day loading supplement today.",
		},
		domain.BandSubCritico: {
			percent: 10, slowPercent: 7.5, loadingFraction: 1,
			controlDays: 7, urgency: domain.UrgencyRoutine,
			rationale: "Markedly low: increase the weekly dose with a full-day loading supplement today.",
		},
		domain.BandSovraLieve: {
			percent: -5, controlDays: 14, urgency: domain.UrgencyRoutine,
			rationale: "Slightly high: continue with a small weekly reduction.",
		},
		domain.BandSovraModerato: {
			percent: -5, controlDays: 10, urgency: domain.UrgencyRoutine,
			rationale: "Moderately high: small weekly reduction.",
		},
		domain.BandSovraElevato: {
			percent: -7.5, suspensions: 1, controlDays: 7, urgency: domain.UrgencyRoutine,
			rationale: "High: hold one dose, then resume at a reduced weekly dose.",
		},
		domain.BandSovraGrave: {
			percent: -10, suspensions: 1, controlDays: 5, urgency: domain.UrgencyRoutine,
			rationale: "Very high: hold one dose and reduce the weekly dose.",
		},
		domain.BandSovraCritico: {
			percent: -15, suspensions: 2, controlDays: 2, urgency: domain.UrgencyUrgente,
			rationale: "Between 6 and 10 without bleeding: hold two doses; routine Vitamin K is not recommended.",
		},
		domain.BandSovraEstremo: {
			percent: -15, suspensions: 2, controlDays: 1, urgency: domain.UrgencyUrgente,
			vitaminK:  domain.VitaminKDose{Milligrams: 2.5, Route: domain.RouteOral},
			rationale: "Over 10 without bleeding: hold two doses and give oral Vitamin K.",
		},
	},
	inRange: controlSchedule{
		induction:         7,
		stabilization:     14,
		maintenance:       28,
		stableMaintenance: 84,
	},
	bridgingFrom: domain.BandSubCritico,
	annotate: func(req domain.EvaluationRequest, rec *domain.DoseRecommendation) {
		if rec.Band == domain.BandSovraCritico && req.INR >= accpVeryHighINR {
			rec.Warnings = append(rec.Warnings, fmt.Sprintf(
				"INR %.1f is close to the Vitamin K threshold: recheck within %d days", req.INR, rec.NextControlDays))
		}
	},
}
