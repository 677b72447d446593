// Package service composes the dosing engine with the observation history: it fills in
// the recent TTR, selects the guideline policy, renders the weekly schedule and records
// every decision in the structured log.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tao-dosing-engine/internal/domain"
	"github.com/tao-dosing-engine/internal/dosing"
	"github.com/tao-dosing-engine/internal/ttr"
)

var tracer = otel.Tracer("tao-engine/service")

// AnticoagulationService evaluates INR results against a patient's history.
type AnticoagulationService struct {
	logger  *logrus.Logger
	history domain.HistoryRepository
	config  domain.EngineConfig
}

// Assessment is the full answer to one INR result.
type Assessment struct {
	PatientID      string                     `json:"patient_id,omitempty"`
	EvaluatedOn    time.Time                  `json:"evaluated_on"`
	Recommendation *domain.DoseRecommendation `json:"recommendation"`
	// Schedule is nil when therapy is suspended.
	Schedule *domain.WeeklyDoseSchedule `json:"schedule,omitempty"`
	// TTR is the recent-history score used for the re-check interval, when available.
	TTR *domain.TTRResult `json:"ttr,omitempty"`
}

// NewAnticoagulationService creates a new service. history may be nil when no patient
// history is available; evaluations then rely on the request alone.
func NewAnticoagulationService(
	logger *logrus.Logger,
	history domain.HistoryRepository,
	config domain.EngineConfig,
) *AnticoagulationService {
	return &AnticoagulationService{
		logger:  logger,
		history: history,
		config:  config,
	}
}

// Evaluate runs the guideline policy on req and renders the resulting schedule. An empty
// guideline or zero target falls back to the configured defaults. When req carries no
// RecentTTR and patientID has history, the TTR over the configured lookback is used.
func (s *AnticoagulationService) Evaluate(
	ctx context.Context,
	patientID string,
	req domain.EvaluationRequest,
	guideline domain.Guideline,
	today time.Time,
) (*Assessment, error) {
	if guideline == "" {
		g, err := domain.ParseGuideline(s.config.DefaultGuideline)
		if err != nil {
			return nil, domain.NewEngineError(domain.ErrCodeConfiguration, "invalid default guideline", s.config.DefaultGuideline, err)
		}
		guideline = g
	}
	if req.Target == (domain.TargetRange{}) {
		req.Target = s.config.DefaultTarget
	}
	today = domain.CalendarDay(today)

	ctx, span := tracer.Start(ctx, "AnticoagulationService.Evaluate",
		trace.WithAttributes(
			attribute.String("patient.id", patientID),
			attribute.String("guideline", guideline.String()),
			attribute.Float64("inr", req.INR),
		),
	)
	defer span.End()

	s.logger.WithFields(logrus.Fields{
		"patient_id": patientID,
		"guideline":  guideline,
		"inr":        req.INR,
		"target_min": req.Target.Min,
		"target_max": req.Target.Max,
		"dose_mg":    req.CurrentWeeklyDose,
		"phase":      req.Phase,
		"bleeding":   req.Bleeding.Type.String(),
	}).Debug("Evaluating INR result")

	assessment := &Assessment{PatientID: patientID, EvaluatedOn: today}

	if req.RecentTTR == nil && patientID != "" && s.history != nil && req.Target.Validate() == nil {
		recent, err := s.recentTTR(ctx, patientID, req.Target, today)
		if err != nil {
			return nil, fail(span, err)
		}
		assessment.TTR = recent
		if recent.Sufficient {
			pct := recent.Percentage
			req.RecentTTR = &pct
		}
	}

	policy, err := dosing.PolicyFor(guideline)
	if err != nil {
		return nil, fail(span, domain.NewEngineError(domain.ErrCodeInvalidInput, "unsupported guideline", guideline.String(), err))
	}
	rec, err := policy.Evaluate(req)
	if err != nil {
		return nil, fail(span, invalidInput(err))
	}
	assessment.Recommendation = rec

	schedule, err := dosing.ScheduleFor(rec, today.Weekday())
	if err != nil {
		return nil, fail(span, invalidInput(err))
	}
	assessment.Schedule = schedule

	span.SetAttributes(
		attribute.String("inr.band", rec.Band.String()),
		attribute.String("urgency", rec.Urgency.String()),
	)

	entry := s.logger.WithFields(logrus.Fields(rec.LogFields())).WithField("patient_id", patientID)
	entry.Info("Dose recommendation issued")
	for _, w := range rec.Warnings {
		entry.WithField("warning", w).Warn("Guideline warning")
	}

	return assessment, nil
}

// recentTTR scores the lookback window ending today (inclusive).
func (s *AnticoagulationService) recentTTR(ctx context.Context, patientID string, target domain.TargetRange, today time.Time) (*domain.TTRResult, error) {
	obs, err := s.loadHistory(ctx, patientID)
	if err != nil {
		return nil, err
	}

	months := s.config.TTRLookbackMonths
	if months <= 0 {
		months = 6
	}
	window := &domain.DateWindow{Start: today.AddDate(0, -months, 0), End: today.AddDate(0, 0, 1)}
	return ttr.Calculate(obs, target, window)
}

func (s *AnticoagulationService) loadHistory(ctx context.Context, patientID string) ([]domain.INRObservation, error) {
	if s.history == nil {
		return nil, domain.NewEngineError(domain.ErrCodeConfiguration, "no history store configured", patientID, nil)
	}

	obs, err := s.history.ListByPatient(ctx, patientID)
	if err != nil {
		s.logger.WithError(err).WithField("patient_id", patientID).Error("Failed to load INR history")
		return nil, domain.NewEngineError(domain.ErrCodeStorage, "failed to load INR history", patientID, err)
	}
	return obs, nil
}

// RecordObservation validates and stores a new INR result.
func (s *AnticoagulationService) RecordObservation(ctx context.Context, obs *domain.INRObservation) error {
	ctx, span := tracer.Start(ctx, "AnticoagulationService.RecordObservation")
	defer span.End()

	if s.history == nil {
		return fail(span, domain.NewEngineError(domain.ErrCodeConfiguration, "no history store configured", "", nil))
	}
	if obs == nil {
		return fail(span, invalidInput(domain.NewValidationError("observation", "observation is required", nil)))
	}
	if err := obs.Validate(); err != nil {
		return fail(span, invalidInput(err))
	}

	if err := s.history.Save(ctx, obs); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return fail(span, invalidInput(err))
		}
		return fail(span, domain.NewEngineError(domain.ErrCodeStorage, "failed to save observation", obs.PatientID, err))
	}

	s.logger.WithFields(logrus.Fields{
		"patient_id": obs.PatientID,
		"id":         obs.ID,
		"date":       obs.Day().Format("2006-01-02"),
		"inr":        obs.INR,
	}).Info("INR observation recorded")
	return nil
}

// PatientTTR scores a patient's history. A zero target uses the configured default and a
// nil window scores the whole history.
func (s *AnticoagulationService) PatientTTR(ctx context.Context, patientID string, target domain.TargetRange, window *domain.DateWindow) (*domain.TTRResult, error) {
	ctx, span := tracer.Start(ctx, "AnticoagulationService.PatientTTR",
		trace.WithAttributes(attribute.String("patient.id", patientID)))
	defer span.End()

	if target == (domain.TargetRange{}) {
		target = s.config.DefaultTarget
	}

	obs, err := s.loadHistory(ctx, patientID)
	if err != nil {
		return nil, fail(span, err)
	}

	result, err := ttr.Calculate(obs, target, window)
	if err != nil {
		return nil, fail(span, invalidInput(err))
	}

	s.logger.WithFields(logrus.Fields{
		"patient_id": patientID,
		"ttr":        result.Percentage,
		"quality":    result.Quality,
		"controls":   result.ControlCount,
	}).Debug("TTR calculated")
	return result, nil
}

// PatientRollingTTR computes rolling TTR windows. months <= 0 uses the configured length.
func (s *AnticoagulationService) PatientRollingTTR(ctx context.Context, patientID string, target domain.TargetRange, months int) (*domain.RollingTTR, error) {
	ctx, span := tracer.Start(ctx, "AnticoagulationService.PatientRollingTTR",
		trace.WithAttributes(attribute.String("patient.id", patientID)))
	defer span.End()

	if target == (domain.TargetRange{}) {
		target = s.config.DefaultTarget
	}
	if months <= 0 {
		months = s.config.RollingWindowMonths
	}

	obs, err := s.loadHistory(ctx, patientID)
	if err != nil {
		return nil, fail(span, err)
	}

	rolling, err := ttr.Rolling(obs, target, months)
	if err != nil {
		return nil, fail(span, invalidInput(err))
	}

	s.logger.WithFields(logrus.Fields{
		"patient_id": patientID,
		"months":     months,
		"windows":    len(rolling.Windows),
		"trend":      rolling.Trend,
	}).Debug("Rolling TTR calculated")
	return rolling, nil
}

func invalidInput(err error) error {
	var engineErr *domain.EngineError
	if errors.As(err, &engineErr) {
		return err
	}
	return domain.NewEngineError(domain.ErrCodeInvalidInput, "invalid input", err.Error(), err)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
