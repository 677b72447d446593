package dosing

import (
	"fmt"

	"github.com/tao-dosing-engine/internal/domain"
)

// bleedingProtocol is the guideline-independent management of one bleeding grade.
type bleedingProtocol struct {
	// anyINR routes the bleed here whatever the band; otherwise only when over range.
	anyINR          bool
	percent         float64
	suspensions     int
	suspendTherapy  bool
	vitaminK        domain.VitaminKDose
	vitaminKExtreme float64
	pcc             bool
	hospitalization bool
	intensiveCare   bool
	controlDays     int
	urgency         domain.UrgencyTier
	rationale       string
}

var bleedingProtocols = map[domain.BleedingType]bleedingProtocol{
	domain.BleedingMinor: {
		percent:         -10,
		suspensions:     1,
		vitaminK:        domain.VitaminKDose{Milligrams: 2.5, Route: domain.RouteOral},
		vitaminKExtreme: 5,
		controlDays:     1,
		urgency:         domain.UrgencyUrgente,
		rationale:       "Minor bleeding with high INR: hold one dose, give oral Vitamin K, reduce the weekly dose and recheck tomorrow.",
	},
	domain.BleedingMajor: {
		anyINR:          true,
		suspendTherapy:  true,
		vitaminK:        domain.VitaminKDose{Milligrams: 10, Route: domain.RouteIntravenous},
		pcc:             true,
		hospitalization: true,
		urgency:         domain.UrgencyEmergenza,
		rationale:       "Major bleeding: hospital admission, suspend warfarin, IV Vitamin K 10 mg and prothrombin complex concentrate (fresh frozen plasma if unavailable).",
	},
	domain.BleedingLifeThreatening: {
		anyINR:          true,
		suspendTherapy:  true,
		vitaminK:        domain.VitaminKDose{Milligrams: 10, Route: domain.RouteIntravenous},
		pcc:             true,
		hospitalization: true,
		intensiveCare:   true,
		urgency:         domain.UrgencyEmergenza,
		rationale:       "Life-threatening bleeding: intensive care protocol, immediate prothrombin complex concentrate, IV Vitamin K 10 mg, warfarin suspended.",
	},
}

func routesToBleeding(t domain.BleedingType, band domain.INRBand) bool {
	p, ok := bleedingProtocols[t]
	return ok && (p.anyINR || band.IsSupraTherapeutic())
}

// EvaluateBleeding applies the bleeding protocol shared by every guideline family,
// bypassing the routing that lets minor bleeds in range fall through to the guideline table.
func EvaluateBleeding(g domain.Guideline, req domain.EvaluationRequest) (*domain.DoseRecommendation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !g.IsValid() {
		return nil, domain.NewValidationError("guideline", "must be FCSA or ACCP", g)
	}
	if !req.Bleeding.Type.IsBleeding() {
		return nil, domain.NewValidationError("bleeding.type", "no active bleeding to manage", req.Bleeding.Type)
	}

	rec := &domain.DoseRecommendation{
		Guideline:          g,
		Band:               ClassifyBand(req.INR, req.Target),
		HighThromboticRisk: EvaluateThromboticRisk(req.Risk),
		CurrentWeeklyDose:  req.CurrentWeeklyDose,
	}
	applyBleeding(req, rec)
	return rec, nil
}

func applyBleeding(req domain.EvaluationRequest, rec *domain.DoseRecommendation) {
	p := bleedingProtocols[req.Bleeding.Type]

	vk := p.vitaminK
	if p.vitaminKExtreme > 0 && rec.Band == domain.BandSovraEstremo {
		vk.Milligrams = p.vitaminKExtreme
	}
	rec.VitaminK = &vk
	rec.NeedsPCC = p.pcc
	rec.NeedsHospitalization = p.hospitalization
	rec.NeedsIntensiveCare = p.intensiveCare
	rec.Urgency = p.urgency
	rec.NextControlDays = p.controlDays

	if p.suspendTherapy {
		rec.TherapySuspended = true
		rec.SuggestedWeeklyDose = req.CurrentWeeklyDose
		rec.Warnings = append(rec.Warnings,
			"warfarin suspended: resume only after bleeding control and clinical reassessment")
		if rec.HighThromboticRisk {
			rec.Warnings = append(rec.Warnings,
				"high thrombotic risk: plan anticoagulation restart with the specialist once haemostasis is secured")
		}
	} else {
		rec.PercentageAdjustment = p.percent
		rec.DoseSuspensions = p.suspensions
		rec.SuggestedWeeklyDose = applyPercentage(req.CurrentWeeklyDose, p.percent)
		enforceMinimumDose(rec)
	}

	text := p.rationale
	if req.Bleeding.Site != "" {
		text = fmt.Sprintf("%s Bleeding site: %s.", text, req.Bleeding.Site)
	}
	rec.Rationale = describe(req, rec.Band, text)
}

func minorBleedingWarning(b domain.BleedingContext) string {
	if b.Site != "" {
		return fmt.Sprintf("minor bleeding (%s) with INR not above range: look for a local cause", b.Site)
	}
	return "minor bleeding with INR not above range: look for a local cause"
}
