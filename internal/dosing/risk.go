package dosing

import (
	"github.com/tao-dosing-engine/internal/domain"
)

const (
	// RecentThromboembolismDays is how long after an event the patient stays high risk.
	RecentThromboembolismDays = 90
	// HighRiskCHA2DS2VASc is the score from which stroke risk counts as high.
	HighRiskCHA2DS2VASc = 5
)

// EvaluateThromboticRisk reports whether the patient is at high thrombotic risk:
// a mechanical valve, a thromboembolism in the last 90 days, or CHA2DS2-VASc >= 5.
func EvaluateThromboticRisk(r domain.RiskInputs) bool {
	if r.MechanicalValve {
		return true
	}
	if r.DaysSinceThromboembolism != nil && *r.DaysSinceThromboembolism <= RecentThromboembolismDays {
		return true
	}
	return r.CHA2DS2VASc >= HighRiskCHA2DS2VASc
}
