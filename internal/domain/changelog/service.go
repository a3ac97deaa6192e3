package changelog

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Zaqwedo/denta-crm/internal/domain/patient"
)

// Service records and serves the field-level audit trail. It satisfies the
// patient service's AuditTrail dependency.
type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// RecordChanges writes one entry per tracked field that differs between old
// and updated. Called inside the same transaction as the row update.
func (s *Service) RecordChanges(ctx context.Context, old, updated *patient.Record, changedBy string) error {
	entries := Diff(old, updated)
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		e.ChangedByEmail = changedBy
	}
	return s.repo.Insert(ctx, entries)
}

// ApplyLatestOldValues sets each tracked field on rec back to the old value
// of its most recent change. Fields with no recorded history are untouched.
func (s *Service) ApplyLatestOldValues(ctx context.Context, rec *patient.Record) (int, error) {
	latest, err := s.repo.LatestPerField(ctx, rec.ID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, f := range trackedFields {
		entry, ok := latest[f.label]
		if !ok {
			continue
		}
		f.set(rec, entry.OldValue)
		n++
	}
	return n, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}
