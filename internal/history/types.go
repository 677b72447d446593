// Package history stores INR observation histories. The engine itself never persists
// anything; this package is the persistence collaborator that feeds it.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/tao-dosing-engine/internal/domain"
)

// ExportVersion is the current JSON export format version.
const ExportVersion = "1.0"

// Store defines the interface for observation history storage.
type Store interface {
	// Save validates and appends an observation. An empty ID is assigned a UUID.
	// Observations are immutable; saving an existing ID fails.
	Save(ctx context.Context, obs *domain.INRObservation) error

	// Get returns one observation, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.INRObservation, error)

	// ListByPatient returns a patient's history ordered by date, then insertion order.
	ListByPatient(ctx context.Context, patientID string) ([]domain.INRObservation, error)

	// ListPatients returns every patient ID with at least one observation.
	ListPatients(ctx context.Context) ([]string, error)

	// Count returns the total number of observations.
	Count(ctx context.Context) (int64, error)

	// Delete removes an observation recorded in error.
	Delete(ctx context.Context, id string) error

	// ExportJSON writes every observation to writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON loads an export, skipping IDs that already exist.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version      string                  `json:"version"`
	ExportedAt   time.Time               `json:"exported_at"`
	Count        int                     `json:"count"`
	Observations []domain.INRObservation `json:"observations"`
}

// prepare validates obs and normalizes it for storage.
func prepare(obs *domain.INRObservation) error {
	if obs == nil {
		return domain.NewValidationError("observation", "observation is required", nil)
	}
	if err := obs.Validate(); err != nil {
		return err
	}
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	} else if _, err := uuid.Parse(obs.ID); err != nil {
		return domain.NewValidationError("id", "observation ID must be a UUID", obs.ID)
	}
	obs.Date = obs.Day()
	return nil
}

func writeExport(writer io.Writer, all []domain.INRObservation) error {
	export := &Export{
		Version:      ExportVersion,
		ExportedAt:   time.Now().UTC(),
		Count:        len(all),
		Observations: all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ReadExport decodes an export written by ExportJSON, rejecting other format versions.
func ReadExport(reader io.Reader) (*Export, error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	if export.Version != ExportVersion {
		return nil, fmt.Errorf("unsupported export version %q", export.Version)
	}
	return &export, nil
}
