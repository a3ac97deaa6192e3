package dedup

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

func (r *repoPG) InsertIgnoredPair(ctx context.Context, keyA, keyB string) error {
	// key_a sorts before key_b so each pair has one canonical row.
	if keyB < keyA {
		keyA, keyB = keyB, keyA
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO ignored_pairs (key_a, key_b) VALUES ($1, $2)
		ON CONFLICT (key_a, key_b) DO NOTHING`, keyA, keyB)
	return err
}

func (r *repoPG) IgnoredTags(ctx context.Context) (map[string]bool, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT key_a, key_b FROM ignored_pairs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var a, b string
		if err := rows.Scan(&a, &b); err != nil {
			return nil, err
		}
		out[PairTag(a, b)] = true
	}
	return out, rows.Err()
}
