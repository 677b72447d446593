package domain

import (
	"context"
)

// DosingPolicy maps an evaluation request to a recommendation for one guideline family.
type DosingPolicy interface {
	Guideline() Guideline
	Evaluate(req EvaluationRequest) (*DoseRecommendation, error)
}

// HistoryProvider supplies the INR observation history of a patient, ordered by date.
type HistoryProvider interface {
	ListByPatient(ctx context.Context, patientID string) ([]INRObservation, error)
}

// HistoryRecorder stores new observations.
type HistoryRecorder interface {
	Save(ctx context.Context, obs *INRObservation) error
}

// HistoryRepository is the persistence collaborator used by the engine service.
type HistoryRepository interface {
	HistoryProvider
	HistoryRecorder
	ListPatients(ctx context.Context) ([]string, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetEngineConfig() *EngineConfig
	GetStorageConfig() *StorageConfig
	Reload() error
	Validate() error
}
