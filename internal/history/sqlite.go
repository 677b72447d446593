package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tao-dosing-engine/internal/domain"
)

// dayLayout is how calendar days are stored in SQLite TEXT columns.
const dayLayout = "2006-01-02"

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite history store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanObservation scans a row into an INRObservation.
func scanObservation(s scanner) (*domain.INRObservation, error) {
	obs := &domain.INRObservation{}
	var day, phase string

	err := s.Scan(
		&obs.ID, &obs.PatientID, &day, &obs.INR,
		&obs.WeeklyDose, &obs.Compliant, &phase,
	)
	if err != nil {
		return nil, err
	}

	obs.Date, err = time.Parse(dayLayout, day)
	if err != nil {
		return nil, fmt.Errorf("invalid observation date %q: %w", day, err)
	}
	obs.Phase = domain.TherapyPhase(phase)
	return obs, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS inr_observations (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		observed_on TEXT NOT NULL,
		inr REAL NOT NULL CHECK (inr > 0 AND inr <= 20),
		weekly_dose_mg REAL NOT NULL DEFAULT 0,
		compliant INTEGER NOT NULL DEFAULT 1,
		phase TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_inr_observations_patient ON inr_observations(patient_id, observed_on);
	`

	_, err := db.Exec(schema)
	return err
}

const selectColumns = `id, patient_id, observed_on, inr, weekly_dose_mg, compliant, phase`

// Save appends a validated observation.
func (s *SQLiteStore) Save(ctx context.Context, obs *domain.INRObservation) error {
	if err := prepare(obs); err != nil {
		return err
	}
	if _, err := s.insert(ctx, "INSERT", obs); err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return nil
}

// insert writes obs with the given INSERT verb and reports the number of rows written.
func (s *SQLiteStore) insert(ctx context.Context, verb string, obs *domain.INRObservation) (int64, error) {
	res, err := s.db.ExecContext(ctx, verb+` INTO inr_observations (
			id, patient_id, observed_on, inr, weekly_dose_mg, compliant, phase
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		obs.ID,
		obs.PatientID,
		obs.Date.Format(dayLayout),
		obs.INR,
		obs.WeeklyDose,
		obs.Compliant,
		string(obs.Phase),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Get returns one observation by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.INRObservation, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM inr_observations WHERE id = ?", id)

	obs, err := scanObservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("observation %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return obs, nil
}

// ListByPatient returns a patient's history in chronological order.
func (s *SQLiteStore) ListByPatient(ctx context.Context, patientID string) ([]domain.INRObservation, error) {
	return s.query(ctx, `
		SELECT `+selectColumns+`
		FROM inr_observations
		WHERE patient_id = ?
		ORDER BY observed_on, rowid
	`, patientID)
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...interface{}) ([]domain.INRObservation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []domain.INRObservation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, *obs)
	}
	return result, rows.Err()
}

// ListPatients returns every patient with recorded observations.
func (s *SQLiteStore) ListPatients(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT patient_id FROM inr_observations ORDER BY patient_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
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
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM inr_observations").Scan(&count)
	return count, err
}

// Delete removes an observation by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM inr_observations WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("observation %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ExportJSON exports all observations to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.query(ctx, `
		SELECT `+selectColumns+`
		FROM inr_observations
		ORDER BY patient_id, observed_on, rowid
	`)
	if err != nil {
		return fmt.Errorf("failed to list observations: %w", err)
	}
	return writeExport(writer, all)
}

// ImportJSON imports observations from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	export, err := ReadExport(reader)
	if err != nil {
		return 0, 0, err
	}

	for i := range export.Observations {
		obs := &export.Observations[i]
		if err := prepare(obs); err != nil {
			return imported, skipped, fmt.Errorf("observation %d: %w", i, err)
		}

		n, err := s.insert(ctx, "INSERT OR IGNORE", obs)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		if n == 0 {
			skipped++
			continue
		}
		imported++
	}

	return imported, skipped, nil
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
