package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	List(ctx context.Context, scope Scope, limit, offset int) ([]*Record, int, error)
	ListAll(ctx context.Context, scope Scope) ([]*Record, error)
	Update(ctx context.Context, r *Record) error
	UpdateIdentityFields(ctx context.Context, ids []uuid.UUID, fullName string, birthDate, emoji, notes *string) error
	DeleteByID(ctx context.Context, id uuid.UUID) error

	InsertArchive(ctx context.Context, a *Archived) error
	ArchivedByOriginalID(ctx context.Context, originalID uuid.UUID) ([]*Archived, error)
	ListArchived(ctx context.Context, limit, offset int) ([]*Archived, int, error)
	DeleteArchivedByID(ctx context.Context, id uuid.UUID) error

	// RunInTx executes fn with every repository call inside one transaction.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
