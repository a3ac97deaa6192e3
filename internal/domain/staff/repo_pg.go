package staff

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Zaqwedo/denta-crm/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const accessCols = `email, doctors, nurses, updated_at`

func scanAccess(row pgx.Row) (*Access, error) {
	var a Access
	err := row.Scan(&a.Email, &a.Doctors, &a.Nurses, &a.UpdatedAt)
	return &a, err
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*Access, error) {
	return scanAccess(r.conn(ctx).QueryRow(ctx,
		`SELECT `+accessCols+` FROM staff_access WHERE email = $1`, email))
}

func (r *repoPG) List(ctx context.Context) ([]*Access, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+accessCols+` FROM staff_access ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Access
	for rows.Next() {
		a, err := scanAccess(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) Upsert(ctx context.Context, a *Access) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO staff_access (email, doctors, nurses)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET doctors = $2, nurses = $3, updated_at = NOW()`,
		a.Email, a.Doctors, a.Nurses)
	return err
}

func (r *repoPG) Delete(ctx context.Context, email string) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM staff_access WHERE email = $1`, email)
	return err
}
