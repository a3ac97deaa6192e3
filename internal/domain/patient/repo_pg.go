package patient

import (
	"context"
	"fmt"

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

func (r *repoPG) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.RunInTx(ctx, r.pool, fn)
}

const recordCols = `id, full_name, phone, birth_date, appointment_date, appointment_time,
	status, doctor, nurse, teeth, comments, emoji, notes,
	created_by_email, created_at, updated_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.FullName, &rec.Phone, &rec.BirthDate, &rec.AppointmentDate, &rec.AppointmentTime,
		&rec.Status, &rec.Doctor, &rec.Nurse, &rec.Teeth, &rec.Comments, &rec.Emoji, &rec.Notes,
		&rec.CreatedByEmail, &rec.CreatedAt, &rec.UpdatedAt)
	return &rec, err
}

func (r *repoPG) Create(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, full_name, phone, birth_date, appointment_date, appointment_time,
			status, doctor, nurse, teeth, comments, emoji, notes, created_by_email)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		rec.ID, rec.FullName, rec.Phone, rec.BirthDate, rec.AppointmentDate, rec.AppointmentTime,
		rec.Status, rec.Doctor, rec.Nurse, rec.Teeth, rec.Comments, rec.Emoji, rec.Notes, rec.CreatedByEmail)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	return scanRecord(r.conn(ctx).QueryRow(ctx, `SELECT `+recordCols+` FROM patients WHERE id = $1`, id))
}

// scopeClause renders the row-level visibility predicate. Restricted callers
// only see rows whose doctor or nurse is on their whitelist; the filter is a
// server-side predicate, never a client-side one.
func scopeClause(scope Scope, argIdx int) (string, []interface{}) {
	if scope.AllowAll {
		return "", nil
	}
	clause := fmt.Sprintf("(doctor = ANY($%d) OR nurse = ANY($%d))", argIdx, argIdx+1)
	return clause, []interface{}{scope.Doctors, scope.Nurses}
}

func (r *repoPG) List(ctx context.Context, scope Scope, limit, offset int) ([]*Record, int, error) {
	where := ""
	var args []interface{}
	if clause, scopeArgs := scopeClause(scope, 1); clause != "" {
		where = "WHERE " + clause
		args = scopeArgs
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf(`SELECT %s FROM patients %s ORDER BY appointment_date DESC NULLS LAST, created_at DESC LIMIT $%d OFFSET $%d`,
		recordCols, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListAll(ctx context.Context, scope Scope) ([]*Record, error) {
	where := ""
	var args []interface{}
	if clause, scopeArgs := scopeClause(scope, 1); clause != "" {
		where = "WHERE " + clause
		args = scopeArgs
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+recordCols+` FROM patients `+where+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, rec *Record) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET full_name=$2, phone=$3, birth_date=$4, appointment_date=$5, appointment_time=$6,
			status=$7, doctor=$8, nurse=$9, teeth=$10, comments=$11, emoji=$12, notes=$13, updated_at=NOW()
		WHERE id = $1`,
		rec.ID, rec.FullName, rec.Phone, rec.BirthDate, rec.AppointmentDate, rec.AppointmentTime,
		rec.Status, rec.Doctor, rec.Nurse, rec.Teeth, rec.Comments, rec.Emoji, rec.Notes)
	return err
}

// UpdateIdentityFields rewrites the person-identity fields on every listed
// record in one statement, used by merge. The chosen final values are applied
// uniformly even to the surviving identity's own visits.
func (r *repoPG) UpdateIdentityFields(ctx context.Context, ids []uuid.UUID, fullName string, birthDate, emoji, notes *string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET full_name=$2, birth_date=$3, emoji=$4, notes=$5, updated_at=NOW()
		WHERE id = ANY($1)`,
		ids, fullName, birthDate, emoji, notes)
	return err
}

func (r *repoPG) DeleteByID(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	return err
}

const archivedCols = `id, original_id, full_name, phone, birth_date, appointment_date, appointment_time,
	status, doctor, nurse, teeth, comments, created_by_email, deleted_by_email, deleted_at`

func scanArchived(row pgx.Row) (*Archived, error) {
	var a Archived
	err := row.Scan(&a.ID, &a.OriginalID, &a.FullName, &a.Phone, &a.BirthDate, &a.AppointmentDate, &a.AppointmentTime,
		&a.Status, &a.Doctor, &a.Nurse, &a.Teeth, &a.Comments, &a.CreatedByEmail, &a.DeletedByEmail, &a.DeletedAt)
	return &a, err
}

func (r *repoPG) InsertArchive(ctx context.Context, a *Archived) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO deleted_patients (id, original_id, full_name, phone, birth_date, appointment_date,
			appointment_time, status, doctor, nurse, teeth, comments, created_by_email, deleted_by_email)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		a.ID, a.OriginalID, a.FullName, a.Phone, a.BirthDate, a.AppointmentDate,
		a.AppointmentTime, a.Status, a.Doctor, a.Nurse, a.Teeth, a.Comments, a.CreatedByEmail, a.DeletedByEmail)
	return err
}

func (r *repoPG) ArchivedByOriginalID(ctx context.Context, originalID uuid.UUID) ([]*Archived, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+archivedCols+` FROM deleted_patients WHERE original_id = $1 ORDER BY deleted_at DESC`, originalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Archived
	for rows.Next() {
		a, err := scanArchived(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) ListArchived(ctx context.Context, limit, offset int) ([]*Archived, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM deleted_patients`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+archivedCols+` FROM deleted_patients ORDER BY deleted_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Archived
	for rows.Next() {
		a, err := scanArchived(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) DeleteArchivedByID(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM deleted_patients WHERE id = $1`, id)
	return err
}
