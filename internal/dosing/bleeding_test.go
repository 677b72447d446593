package dosing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tao-dosing-engine/internal/domain"
)

func TestEvaluate_MajorBleedingAtAnyINR(t *testing.T) {
	for _, g := range domain.AllGuidelines() {
		for _, inr := range []float64{1.4, 2.5, 4.5, 12} {
			req := request(inr, 35)
			req.Bleeding = domain.BleedingContext{Type: domain.BleedingMajor, Site: "gastrointestinal"}

			p, err := PolicyFor(g)
			require.NoError(t, err)
			rec, err := p.Evaluate(req)
			require.NoError(t, err)

			require.NotNil(t, rec.VitaminK, "%s INR %.1f", g, inr)
			assert.Equal(t, 10.0, rec.VitaminK.Milligrams)
			assert.Equal(t, domain.RouteIntravenous, rec.VitaminK.Route)
			assert.True(t, rec.NeedsPCC)
			assert.True(t, rec.NeedsHospitalization)
			assert.False(t, rec.NeedsIntensiveCare)
			assert.True(t, rec.TherapySuspended)
			assert.Equal(t, domain.UrgencyEmergenza, rec.Urgency)
			assert.Contains(t, rec.Rationale, "gastrointestinal")
		}
	}
}

func TestEvaluate_LifeThreateningBleeding(t *testing.T) {
	req := request(3.2, 35)
	req.Bleeding = domain.BleedingContext{Type: domain.BleedingLifeThreatening, Site: "intracranial"}

	rec, err := EvaluateACCP(req)

	require.NoError(t, err)
	assert.True(t, rec.NeedsIntensiveCare)
	assert.True(t, rec.NeedsPCC)
	assert.True(t, rec.TherapySuspended)
	assert.Equal(t, domain.UrgencyEmergenza, rec.Urgency)
}

func TestEvaluate_MinorBleeding(t *testing.T) {
	t.Run("over range routes to the bleeding protocol", func(t *testing.T) {
		req := request(4.5, 35)
		req.Bleeding = domain.BleedingContext{Type: domain.BleedingMinor, Site: "epistaxis"}

		for _, p := range []domain.DosingPolicy{FCSAPolicy{}, ACCPPolicy{}} {
			rec, err := p.Evaluate(req)
			require.NoError(t, err)
			assert.Equal(t, -10.0, rec.PercentageAdjustment)
			assert.Equal(t, 32.5, rec.SuggestedWeeklyDose)
			assert.Equal(t, 1, rec.DoseSuspensions)
			assert.Equal(t, 1, rec.NextControlDays)
			assert.Equal(t, domain.UrgencyUrgente, rec.Urgency)
			require.NotNil(t, rec.VitaminK)
			assert.Equal(t, 2.5, rec.VitaminK.Milligrams)
			assert.Equal(t, domain.RouteOral, rec.VitaminK.Route)
			assert.False(t, rec.TherapySuspended)
		}
	})

	t.Run("extreme INR doubles oral Vitamin K", func(t *testing.T) {
		req := request(10.5, 35)
		req.Bleeding = domain.BleedingContext{Type: domain.BleedingMinor}

		rec, err := EvaluateFCSA(req)
		require.NoError(t, err)
		require.NotNil(t, rec.VitaminK)
		assert.Equal(t, 5.0, rec.VitaminK.Milligrams)
	})

	t.Run("in range keeps the guideline outcome with a warning", func(t *testing.T) {
		req := request(2.5, 35)
		req.Bleeding = domain.BleedingContext{Type: domain.BleedingMinor, Site: "gums"}

		rec, err := EvaluateFCSA(req)
		require.NoError(t, err)
		assert.Equal(t, domain.BandInRange, rec.Band)
		assert.Nil(t, rec.VitaminK)
		assert.Equal(t, 35.0, rec.SuggestedWeeklyDose)
		require.Len(t, rec.Warnings, 1)
		assert.Contains(t, rec.Warnings[0], "gums")
	})
}

func TestEvaluateBleeding(t *testing.T) {
	req := request(2.5, 35)
	req.Bleeding = domain.BleedingContext{Type: domain.BleedingMinor}

	rec, err := EvaluateBleeding(domain.GuidelineACCP, req)
	require.NoError(t, err)
	assert.Equal(t, domain.GuidelineACCP, rec.Guideline)
	assert.True(t, rec.NeedsVitaminK())

	req.Bleeding.Type = domain.BleedingNone
	_, err = EvaluateBleeding(domain.GuidelineACCP, req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBleedingProtocols_CoverEveryBleed(t *testing.T) {
	for _, bt := range domain.AllBleedingTypes() {
		_, ok := bleedingProtocols[bt]
		assert.Equal(t, bt.IsBleeding(), ok, bt.String())
	}
}
