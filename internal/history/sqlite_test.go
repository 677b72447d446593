package history

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tao-dosing-engine/internal/domain"
)

func observation(patientID string, day int, inr float64) *domain.INRObservation {
	return &domain.INRObservation{
		PatientID:  patientID,
		Date:       time.Date(2025, time.May, 1, 10, 30, 0, 0, time.UTC).AddDate(0, 0, day),
		INR:        inr,
		WeeklyDose: 35,
		Compliant:  true,
		Phase:      domain.PhaseMaintenance,
	}
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "history-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "nested", "history.db")

	store, err := NewSQLiteStore(dbPath)

	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
	assert.Equal(t, dbPath, store.Path())
}

func TestSQLiteStore_Save(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	obs := observation("patient-1", 0, 2.4)

	err := store.Save(ctx, obs)

	require.NoError(t, err)
	_, err = uuid.Parse(obs.ID)
	assert.NoError(t, err, "ID should be a UUID")
	assert.Equal(t, time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC), obs.Date, "date is stored as a calendar day")

	got, err := store.Get(ctx, obs.ID)
	require.NoError(t, err)
	assert.Equal(t, *obs, *got)
}

func TestSQLiteStore_Save_RejectsInvalid(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	tests := []struct {
		name string
		obs  *domain.INRObservation
	}{
		{"nil", nil},
		{"missing patient", observation("", 0, 2.5)},
		{"INR out of range", observation("patient-1", 0, 25)},
		{"bad ID", &domain.INRObservation{ID: "not-a-uuid", PatientID: "p", Date: time.Now(), INR: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Save(ctx, tt.obs)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSQLiteStore_Save_DuplicateID(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	obs := observation("patient-1", 0, 2.4)
	require.NoError(t, store.Save(ctx, obs))

	again := observation("patient-1", 1, 2.6)
	again.ID = obs.ID
	assert.Error(t, store.Save(ctx, again), "observations are immutable")
}

func TestSQLiteStore_Get_NotFound(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	_, err := store.Get(context.Background(), uuid.NewString())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteStore_ListByPatient(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, observation("patient-1", 14, 3.1)))
	require.NoError(t, store.Save(ctx, observation("patient-1", 0, 2.2)))
	require.NoError(t, store.Save(ctx, observation("patient-2", 3, 1.9)))
	require.NoError(t, store.Save(ctx, observation("patient-1", 7, 2.7)))
	require.NoError(t, store.Save(ctx, observation("patient-1", 7, 2.9)))

	history, err := store.ListByPatient(ctx, "patient-1")

	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, []float64{2.2, 2.7, 2.9, 3.1}, []float64{history[0].INR, history[1].INR, history[2].INR, history[3].INR},
		"ordered by date, same-day readings in insertion order")

	empty, err := store.ListByPatient(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteStore_ListPatients(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, observation("patient-b", 0, 2.5)))
	require.NoError(t, store.Save(ctx, observation("patient-a", 0, 2.5)))
	require.NoError(t, store.Save(ctx, observation("patient-b", 7, 2.5)))

	patients, err := store.ListPatients(ctx)

	require.NoError(t, err)
	assert.Equal(t, []string{"patient-a", "patient-b"}, patients)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	obs := observation("patient-1", 0, 2.4)
	require.NoError(t, store.Save(ctx, obs))

	require.NoError(t, store.Delete(ctx, obs.ID))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.ErrorIs(t, store.Delete(ctx, obs.ID), domain.ErrNotFound)
}

func TestSQLiteStore_ExportJSON(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, observation("patient-1", 0, 2.4)))
	require.NoError(t, store.Save(ctx, observation("patient-1", 7, 2.8)))

	var buf bytes.Buffer
	err := store.ExportJSON(ctx, &buf)
	require.NoError(t, err)

	var export Export
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, ExportVersion, export.Version)
	assert.Equal(t, 2, export.Count)
	assert.Len(t, export.Observations, 2)
	assert.False(t, export.ExportedAt.IsZero())
}

func TestSQLiteStore_ImportJSON_SkipDuplicates(t *testing.T) {
	source := createTestStore(t)
	defer source.Close()

	ctx := context.Background()
	require.NoError(t, source.Save(ctx, observation("patient-1", 0, 2.4)))
	require.NoError(t, source.Save(ctx, observation("patient-1", 7, 2.8)))
	require.NoError(t, source.Save(ctx, observation("patient-2", 7, 3.3)))

	var buf bytes.Buffer
	require.NoError(t, source.ExportJSON(ctx, &buf))
	payload := buf.Bytes()

	target := createTestStore(t)
	defer target.Close()

	imported, skipped, err := target.ImportJSON(ctx, bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 3, imported)
	assert.Equal(t, 0, skipped)

	imported, skipped, err = target.ImportJSON(ctx, bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 0, imported)
	assert.Equal(t, 3, skipped)

	history, err := target.ListByPatient(ctx, "patient-1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestSQLiteStore_ImportJSON_BadPayload(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	_, _, err := store.ImportJSON(ctx, bytes.NewReader([]byte("{not json")))
	assert.Error(t, err)

	_, _, err = store.ImportJSON(ctx, bytes.NewReader([]byte(`{"version":"9.9","observations":[]}`)))
	assert.ErrorContains(t, err, "unsupported export version")
}

// createTestStore creates a temporary SQLite store for testing.
func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "history-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := NewSQLiteStore(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	return store
}
