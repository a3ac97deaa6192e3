package changelog

import (
	"context"

	"github.com/google/uuid"
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

const entryCols = `id, patient_id, field_name, old_value, new_value, changed_by_email, changed_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.PatientID, &e.FieldName, &e.OldValue, &e.NewValue, &e.ChangedByEmail, &e.ChangedAt)
	return &e, err
}

func (r *repoPG) Insert(ctx context.Context, entries []*Entry) error {
	conn := r.conn(ctx)
	for _, e := range entries {
		e.ID = uuid.New()
		_, err := conn.Exec(ctx, `
			INSERT INTO patient_changes (id, patient_id, field_name, old_value, new_value, changed_by_email)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			e.ID, e.PatientID, e.FieldName, e.OldValue, e.NewValue, e.ChangedByEmail)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient_changes WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+entryCols+` FROM patient_changes WHERE patient_id = $1 ORDER BY changed_at DESC, field_name LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *repoPG) LatestPerField(ctx context.Context, patientID uuid.UUID) (map[string]*Entry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT DISTINCT ON (field_name) `+entryCols+`
		FROM patient_changes
		WHERE patient_id = $1
		ORDER BY field_name, changed_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]*Entry)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out[e.FieldName] = e
	}
	return out, rows.Err()
}
