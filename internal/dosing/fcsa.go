package dosing

import (
	"github.com/tao-dosing-engine/internal/domain"
)

// fcsaTable follows the FCSA-SIMG practical guide. FCSA bridges moderate sub-therapeutic
// INRs in high-risk patients and gives oral Vitamin K from INR 6.
var fcsaTable = &guidelineTable{
	guideline: domain.GuidelineFCSA,
	rules: [domain.INRBandCount]bandRule{
		domain.BandInRange: {
			urgency:   domain.UrgencyRoutine,
			rationale: "Keep the current weekly dose.",
		},
		domain.BandSubLieve: {
			percent: 7.5, slowPercent: 5, loadingFraction: 0.5,
			controlDays: 10, urgency: domain.UrgencyRoutine,
			rationale: "Slightly low: small weekly increase with a half-day loading supplement today.",
		},
		domain.BandSubModerato: {
			percent: 10, slowPercent: 7.5, loadingFraction: 0.5,
			controlDays: 7, urgency: domain.UrgencyRoutine,
			rationale: "Moderately low: increase the weekly dose with a half-day loading supplement today.",
		},
		domain.BandSubCritico: {
			percent: 17.5, slowPercent: 12.5, loadingFraction: 1,
			controlDays: 6, urgency: domain.UrgencyRoutine,
			rationale: "Markedly low: substantial weekly increase with a full-day loading supplement today.",
		},
		domain.BandSovraLieve: {
			percent: -5, controlDays: 7, urgency: domain.UrgencyRoutine,
			rationale: "Slightly high: small weekly reduction, no dose held.",
		},
		domain.BandSovraModerato: {
			percent: -7.5, controlDays: 7, urgency: domain.UrgencyRoutine,
			rationale: "Moderately high: reduce the weekly dose.",
		},
		domain.BandSovraElevato: {
			percent: -10, suspensions: 1, controlDays: 5, urgency: domain.UrgencyRoutine,
			rationale: "High: hold one dose, then resume at a reduced weekly dose.",
		},
		domain.BandSovraGrave: {
			percent: -15, suspensions: 1, controlDays: 3, urgency: domain.UrgencyUrgente,
			rationale: "Very high: hold one dose and reduce the weekly dose; recheck within days.",
		},
		domain.BandSovraCritico: {
			percent: -20, suspensions: 1, controlDays: 1, urgency: domain.UrgencyUrgente,
			vitaminK:  domain.VitaminKDose{Milligrams: 2.5, Route: domain.RouteOral},
			rationale: "Over 6 without bleeding: hold one dose, give oral Vitamin K and recheck tomorrow.",
		},
		domain.BandSovraEstremo: {
			percent: -25, suspensions: 2, controlDays: 1, urgency: domain.UrgencyUrgente,
			vitaminK:  domain.VitaminKDose{Milligrams: 5, Route: domain.RouteOral},
			rationale: "Over 10 without bleeding: hold two doses, give oral Vitamin K and recheck tomorrow.",
		},
	},
	inRange: controlSchedule{
		induction:         7,
		stabilization:     14,
		maintenance:       28,
		stableMaintenance: 42,
	},
	bridgingFrom: domain.BandSubModerato,
	annotate: func(req domain.EvaluationRequest, rec *domain.DoseRecommendation) {
		if rec.Band == domain.BandSovraEstremo {
			rec.Warnings = append(rec.Warnings, "INR of 10 or more: assess for occult bleeding")
		}
	},
}
