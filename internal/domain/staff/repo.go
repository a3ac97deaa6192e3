package staff

import "context"

type Repository interface {
	GetByEmail(ctx context.Context, email string) (*Access, error)
	List(ctx context.Context) ([]*Access, error)
	Upsert(ctx context.Context, a *Access) error
	Delete(ctx context.Context, email string) error
}
