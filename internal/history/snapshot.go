package history

import (
	"context"
	"sort"

	"github.com/tao-dosing-engine/internal/domain"
)

// Snapshot is a read-only, in-memory history built from an export. It lets the engine
// score a file without opening a store.
type Snapshot struct {
	byPatient map[string][]domain.INRObservation
}

// NewSnapshot groups observations by patient, ordered by date.
func NewSnapshot(observations []domain.INRObservation) *Snapshot {
	byPatient := make(map[string][]domain.INRObservation)
	for _, o := range observations {
		byPatient[o.PatientID] = append(byPatient[o.PatientID], o)
	}
	for _, obs := range byPatient {
		sort.SliceStable(obs, func(i, j int) bool {
			return obs[i].Day().Before(obs[j].Day())
		})
	}
	return &Snapshot{byPatient: byPatient}
}

// ListByPatient returns a copy of the patient's history.
func (s *Snapshot) ListByPatient(ctx context.Context, patientID string) ([]domain.INRObservation, error) {
	obs := s.byPatient[patientID]
	out := make([]domain.INRObservation, len(obs))
	copy(out, obs)
	return out, nil
}

// ListPatients returns the patient IDs in the snapshot.
func (s *Snapshot) ListPatients(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(s.byPatient))
	for id := range s.byPatient {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Save always fails: snapshots are read-only.
func (s *Snapshot) Save(ctx context.Context, obs *domain.INRObservation) error {
	return domain.NewEngineError(domain.ErrCodeConfiguration, "snapshot history is read-only", "", nil)
}
