package changelog

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Insert(ctx context.Context, entries []*Entry) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error)
	// LatestPerField returns, for each field ever changed on the patient,
	// the most recent entry.
	LatestPerField(ctx context.Context, patientID uuid.UUID) (map[string]*Entry, error)
}
