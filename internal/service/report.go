package service

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/tao-dosing-engine/internal/domain"
	"github.com/tao-dosing-engine/internal/ttr"
)

// PatientScore is one row of a cohort report.
type PatientScore struct {
	PatientID string           `json:"patient_id"`
	Result    domain.TTRResult `json:"result"`
}

// CohortSummary aggregates the TTR of every patient with recorded history.
type CohortSummary struct {
	Target     domain.TargetRange         `json:"target"`
	Window     *domain.DateWindow         `json:"window,omitempty"`
	Patients   []PatientScore             `json:"patients"`
	Scored     int                        `json:"scored"`
	MeanTTR    float64                    `json:"mean_ttr"`
	MedianTTR  float64                    `json:"median_ttr"`
	ByQuality  map[domain.QualityTier]int `json:"by_quality"`
	BelowSixty []string                   `json:"below_sixty,omitempty"`
}

// CohortReport scores every patient concurrently, with at most concurrency histories
// loaded at once. Patients are reported in ID order.
func (s *AnticoagulationService) CohortReport(ctx context.Context, target domain.TargetRange, window *domain.DateWindow, concurrency int) (*CohortSummary, error) {
	ctx, span := tracer.Start(ctx, "AnticoagulationService.CohortReport")
	defer span.End()

	if s.history == nil {
		return nil, fail(span, domain.NewEngineError(domain.ErrCodeConfiguration, "no history store configured", "", nil))
	}
	if target == (domain.TargetRange{}) {
		target = s.config.DefaultTarget
	}
	if err := target.Validate(); err != nil {
		return nil, fail(span, invalidInput(err))
	}
	if concurrency < 1 {
		concurrency = 1
	}

	patients, err := s.history.ListPatients(ctx)
	if err != nil {
		return nil, fail(span, domain.NewEngineError(domain.ErrCodeStorage, "failed to list patients", "", err))
	}
	sort.Strings(patients)

	scores := make([]PatientScore, len(patients))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, id := range patients {
		g.Go(func() error {
			obs, err := s.loadHistory(gctx, id)
			if err != nil {
				return err
			}
			r, err := ttr.Calculate(obs, target, window)
			if err != nil {
				return err
			}
			scores[i] = PatientScore{PatientID: id, Result: *r}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fail(span, err)
	}

	summary := summarizeCohort(target, window, scores)
	span.SetAttributes(
		attribute.Int("cohort.patients", len(patients)),
		attribute.Int("cohort.scored", summary.Scored),
	)
	s.logger.WithFields(logrus.Fields{
		"patients": len(patients),
		"scored":   summary.Scored,
		"mean_ttr": summary.MeanTTR,
		"workers":  concurrency,
	}).Info("Cohort TTR report generated")

	return summary, nil
}

func summarizeCohort(target domain.TargetRange, window *domain.DateWindow, scores []PatientScore) *CohortSummary {
	summary := &CohortSummary{
		Target:    target,
		Window:    window,
		Patients:  scores,
		ByQuality: make(map[domain.QualityTier]int),
	}

	var pcts []float64
	for _, p := range scores {
		summary.ByQuality[p.Result.Quality]++
		if !p.Result.Sufficient {
			continue
		}
		pcts = append(pcts, p.Result.Percentage)
		if p.Result.Percentage < 60 {
			summary.BelowSixty = append(summary.BelowSixty, p.PatientID)
		}
	}

	stats := ttr.Summarize(pcts)
	summary.Scored = stats.Count
	summary.MeanTTR = roundTenth(stats.Mean)
	summary.MedianTTR = roundTenth(stats.Median)
	return summary
}

func roundTenth(v float64) float64 {
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}
