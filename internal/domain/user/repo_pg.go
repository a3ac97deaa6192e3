package user

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

const accountCols = `email, full_name, role, password_hash, pin_hash, credential_secret, provider, created_at, updated_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.Email, &a.FullName, &a.Role, &a.PasswordHash, &a.PinHash,
		&a.CredentialSecret, &a.Provider, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return scanAccount(r.conn(ctx).QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE email = $1`, email))
}

func (r *repoPG) List(ctx context.Context) ([]*Account, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+accountCols+` FROM accounts ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) Insert(ctx context.Context, a *Account) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO accounts (email, full_name, role, password_hash, pin_hash, credential_secret, provider)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.Email, a.FullName, a.Role, a.PasswordHash, a.PinHash, a.CredentialSecret, a.Provider)
	return err
}

func (r *repoPG) Update(ctx context.Context, a *Account) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE accounts SET full_name=$2, role=$3, password_hash=$4, pin_hash=$5,
			credential_secret=$6, provider=$7, updated_at=NOW()
		WHERE email = $1`,
		a.Email, a.FullName, a.Role, a.PasswordHash, a.PinHash, a.CredentialSecret, a.Provider)
	return err
}

func (r *repoPG) Delete(ctx context.Context, email string) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM accounts WHERE email = $1`, email)
	return err
}
