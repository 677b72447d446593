package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"

	"github.com/tao-dosing-engine/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL history store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

const pgInsert = `
	INSERT INTO inr_observations (
		id, patient_id, observed_on, inr, weekly_dose_mg, compliant, phase, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

func insertArgs(obs *domain.INRObservation) []interface{} {
	return []interface{}{
		obs.ID,
		obs.PatientID,
		obs.Date,
		obs.INR,
		obs.WeeklyDose,
		obs.Compliant,
		string(obs.Phase),
		time.Now().UTC(),
	}
}

// Save appends a validated observation.
func (s *PostgresStore) Save(ctx context.Context, obs *domain.INRObservation) error {
	if err := prepare(obs); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, pgInsert, insertArgs(obs)...); err != nil {
		return fmt.Errorf("failed to save observation: %w", err)
	}
	return nil
}

func scanPgObservation(s scanner) (*domain.INRObservation, error) {
	obs := &domain.INRObservation{}
	var phase string

	err := s.Scan(
		&obs.ID, &obs.PatientID, &obs.Date, &obs.INR,
		&obs.WeeklyDose, &obs.Compliant, &phase,
	)
	if err != nil {
		return nil, err
	}

	obs.Date = domain.CalendarDay(obs.Date)
	obs.Phase = domain.TherapyPhase(phase)
	return obs, nil
}

// Get returns one observation by ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.INRObservation, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM inr_observations WHERE id = $1", id)

	obs, err := scanPgObservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("observation %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get observation: %w", err)
	}
	return obs, nil
}

// ListByPatient returns a patient's history in chronological order.
func (s *PostgresStore) ListByPatient(ctx context.Context, patientID string) ([]domain.INRObservation, error) {
	return s.query(ctx, `
		SELECT `+selectColumns+`
		FROM inr_observations
		WHERE patient_id = $1
		ORDER BY observed_on, created_at
	`, patientID)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...interface{}) ([]domain.INRObservation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list observations: %w", err)
	}
	defer rows.Close()

	var result []domain.INRObservation
	for rows.Next() {
		obs, err := scanPgObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, *obs)
	}

	return result, rows.Err()
}

// ListPatients returns every patient with recorded observations.
func (s *PostgresStore) ListPatients(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT patient_id FROM inr_observations ORDER BY patient_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Count returns the total number of observations.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM inr_observations").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count observations: %w", err)
	}
	return count, nil
}

// Delete removes an observation by ID.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM inr_observations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete observation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("observation %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ExportJSON exports all observations to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.query(ctx, `
		SELECT `+selectColumns+`
		FROM inr_observations
		ORDER BY patient_id, observed_on, created_at
	`)
	if err != nil {
		return err
	}
	return writeExport(writer, all)
}

// ImportJSON imports observations from a JSON reader.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	export, err := ReadExport(reader)
	if err != nil {
		return 0, 0, err
	}

	for i := range export.Observations {
		obs := &export.Observations[i]
		if err := prepare(obs); err != nil {
			return imported, skipped, fmt.Errorf("observation %d: %w", i, err)
		}

		res, err := s.db.ExecContext(ctx, pgInsert+" ON CONFLICT (id) DO NOTHING", insertArgs(obs)...)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			skipped++
			continue
		}
		imported++
	}

	return imported, skipped, nil
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
