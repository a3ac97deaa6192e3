package patient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type fakeRepo struct {
	records  map[uuid.UUID]*Record
	archived []*Archived
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[uuid.UUID]*Record)}
}

func (f *fakeRepo) Create(_ context.Context, r *Record) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	// Mirror the store's column defaults.
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	cp := *r
	f.records[r.ID] = &cp
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*Record, error) {
	r, ok := f.records[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRepo) List(_ context.Context, scope Scope, limit, offset int) ([]*Record, int, error) {
	var out []*Record
	for _, r := range f.records {
		if scope.Allows(r.Doctor, r.Nurse) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (f *fakeRepo) ListAll(ctx context.Context, scope Scope) ([]*Record, error) {
	items, _, err := f.List(ctx, scope, 0, 0)
	return items, err
}

func (f *fakeRepo) Update(_ context.Context, r *Record) error {
	if _, ok := f.records[r.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *r
	cp.UpdatedAt = time.Now()
	f.records[r.ID] = &cp
	return nil
}

func (f *fakeRepo) UpdateIdentityFields(_ context.Context, ids []uuid.UUID, fullName string, birthDate, emoji, notes *string) error {
	for _, id := range ids {
		if r, ok := f.records[id]; ok {
			r.FullName = fullName
			r.BirthDate = birthDate
			r.Emoji = emoji
			r.Notes = notes
		}
	}
	return nil
}

func (f *fakeRepo) DeleteByID(_ context.Context, id uuid.UUID) error {
	delete(f.records, id)
	return nil
}

func (f *fakeRepo) InsertArchive(_ context.Context, a *Archived) error {
	a.ID = uuid.New()
	if a.DeletedAt.IsZero() {
		a.DeletedAt = time.Now()
	}
	cp := *a
	f.archived = append(f.archived, &cp)
	return nil
}

func (f *fakeRepo) ArchivedByOriginalID(_ context.Context, originalID uuid.UUID) ([]*Archived, error) {
	var out []*Archived
	for _, a := range f.archived {
		if a.OriginalID == originalID {
			cp := *a
			out = append(out, &cp)
		}
	}
	// Most recent deletion first, as the store orders it.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].DeletedAt.After(out[i].DeletedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) ListArchived(_ context.Context, limit, offset int) ([]*Archived, int, error) {
	return f.archived, len(f.archived), nil
}

func (f *fakeRepo) DeleteArchivedByID(_ context.Context, id uuid.UUID) error {
	var kept []*Archived
	for _, a := range f.archived {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	f.archived = kept
	return nil
}

func (f *fakeRepo) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeAudit struct {
	recorded  int
	oldValues map[string]string // field label -> old value applied on revert
}

func (f *fakeAudit) RecordChanges(_ context.Context, old, updated *Record, _ string) error {
	f.recorded++
	return nil
}

func (f *fakeAudit) ApplyLatestOldValues(_ context.Context, rec *Record) (int, error) {
	n := 0
	if v, ok := f.oldValues["name"]; ok {
		rec.FullName = v
		n++
	}
	if v, ok := f.oldValues["doctor"]; ok {
		rec.Doctor = &v
		n++
	}
	return n, nil
}

func newTestService() (*Service, *fakeRepo, *fakeAudit) {
	repo := newFakeRepo()
	audit := &fakeAudit{oldValues: map[string]string{}}
	return NewService(repo, audit, zerolog.Nop()), repo, audit
}

func strptr(s string) *string { return &s }

func TestCreate_RequiresName(t *testing.T) {
	svc, _, _ := newTestService()
	err := svc.Create(context.Background(), &Record{FullName: "   "}, "a@b.c")
	if !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
}

func TestCreate_DefaultsStatus(t *testing.T) {
	svc, repo, _ := newTestService()
	rec := &Record{FullName: "Иванов Иван"}
	if err := svc.Create(context.Background(), rec, "desk@clinic.local"); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	stored := repo.records[rec.ID]
	if stored.Status != StatusWaiting {
		t.Errorf("expected default status waiting, got %s", stored.Status)
	}
	if stored.CreatedByEmail == nil || *stored.CreatedByEmail != "desk@clinic.local" {
		t.Error("expected creator email to be recorded")
	}
}

func TestGet_EnforcesScope(t *testing.T) {
	svc, repo, _ := newTestService()
	rec := &Record{FullName: "Петрова Анна", Status: StatusWaiting, Doctor: strptr("Сидоров")}
	repo.Create(context.Background(), rec)

	visible := Scope{Doctors: []string{"Сидоров"}}
	if _, err := svc.Get(context.Background(), visible, rec.ID); err != nil {
		t.Errorf("record should be visible to whitelisted doctor scope: %v", err)
	}

	hidden := Scope{Doctors: []string{"Козлов"}}
	if _, err := svc.Get(context.Background(), hidden, rec.ID); !errors.Is(err, ErrNotVisible) {
		t.Errorf("expected ErrNotVisible, got %v", err)
	}

	if _, err := svc.Get(context.Background(), AdminScope(), rec.ID); err != nil {
		t.Errorf("admin scope should see every record: %v", err)
	}
}

func TestUpdate_RecordsAudit(t *testing.T) {
	svc, repo, audit := newTestService()
	rec := &Record{FullName: "Иванов Иван", Status: StatusWaiting}
	repo.Create(context.Background(), rec)

	updated := *rec
	updated.FullName = "Иванов Иван Петрович"
	updated.Status = StatusConfirmed

	if _, err := svc.Update(context.Background(), AdminScope(), &updated, "admin@clinic.local"); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if audit.recorded != 1 {
		t.Errorf("expected one audit call, got %d", audit.recorded)
	}
	if repo.records[rec.ID].FullName != "Иванов Иван Петрович" {
		t.Error("update not applied to store")
	}
}

func TestUpdate_PreservesCreationMetadata(t *testing.T) {
	svc, repo, _ := newTestService()
	rec := &Record{FullName: "Иванов", Status: StatusWaiting, CreatedByEmail: strptr("desk@clinic.local")}
	repo.Create(context.Background(), rec)

	updated := Record{ID: rec.ID, FullName: "Иванов", Status: StatusConfirmed}
	out, err := svc.Update(context.Background(), AdminScope(), &updated, "admin@clinic.local")
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if out.CreatedByEmail == nil || *out.CreatedByEmail != "desk@clinic.local" {
		t.Error("expected creator email to survive update")
	}
}

func TestRevert_AppliesLatestOldValues(t *testing.T) {
	svc, repo, audit := newTestService()
	rec := &Record{FullName: "Новое Имя", Status: StatusWaiting, Doctor: strptr("Сидоров")}
	repo.Create(context.Background(), rec)
	audit.oldValues["name"] = "Старое Имя"
	audit.oldValues["doctor"] = "Петров"

	out, n, err := svc.Revert(context.Background(), AdminScope(), rec.ID, "admin@clinic.local")
	if err != nil {
		t.Fatalf("Revert() error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 fields reverted, got %d", n)
	}
	if out.FullName != "Старое Имя" {
		t.Errorf("expected name rolled back, got %q", out.FullName)
	}
	if out.Doctor == nil || *out.Doctor != "Петров" {
		t.Error("expected doctor rolled back")
	}
	if audit.recorded != 1 {
		t.Error("revert should itself be audited as an update")
	}
}

func TestRevert_NoHistoryIsNoop(t *testing.T) {
	svc, repo, audit := newTestService()
	rec := &Record{FullName: "Иванов", Status: StatusWaiting}
	repo.Create(context.Background(), rec)

	_, n, err := svc.Revert(context.Background(), AdminScope(), rec.ID, "admin@clinic.local")
	if err != nil {
		t.Fatalf("Revert() error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 fields reverted, got %d", n)
	}
	if audit.recorded != 0 {
		t.Error("noop revert should not write audit entries")
	}
}

func TestArchiveAndRemove_StripsPersonalAnnotations(t *testing.T) {
	svc, repo, _ := newTestService()
	rec := &Record{
		FullName: "Иванов Иван",
		Status:   StatusCompleted,
		Emoji:    strptr("⭐"),
		Notes:    strptr("постоянный клиент"),
	}
	repo.Create(context.Background(), rec)

	if err := svc.ArchiveAndRemove(context.Background(), AdminScope(), rec.ID, "admin@clinic.local"); err != nil {
		t.Fatalf("ArchiveAndRemove() error: %v", err)
	}
	if _, ok := repo.records[rec.ID]; ok {
		t.Error("live row should be deleted")
	}
	if len(repo.archived) != 1 {
		t.Fatalf("expected 1 archive row, got %d", len(repo.archived))
	}
	a := repo.archived[0]
	if a.OriginalID != rec.ID {
		t.Error("archive row should preserve the original id")
	}
	if a.DeletedByEmail != "admin@clinic.local" {
		t.Errorf("expected deleter email recorded, got %q", a.DeletedByEmail)
	}
}

func TestRestore_RoundTrip(t *testing.T) {
	svc, repo, _ := newTestService()
	rec := &Record{FullName: "Иванов Иван", Status: StatusCancelled, Phone: strptr("+7 999 123-45-67")}
	repo.Create(context.Background(), rec)
	originalID := rec.ID

	if err := svc.ArchiveAndRemove(context.Background(), AdminScope(), originalID, "admin@clinic.local"); err != nil {
		t.Fatalf("ArchiveAndRemove() error: %v", err)
	}
	beforeRestore := time.Now()

	restored, err := svc.Restore(context.Background(), originalID)
	if err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if restored.UpdatedAt.Before(beforeRestore) {
		t.Error("restored row should carry a fresh updated_at")
	}
	if restored.ID != originalID {
		t.Errorf("restore should reuse the original id, got %s", restored.ID)
	}
	if restored.FullName != "Иванов Иван" || restored.Status != StatusCancelled {
		t.Error("restored record lost field values")
	}
	if restored.Phone == nil || *restored.Phone != "+7 999 123-45-67" {
		t.Error("restored record lost phone")
	}
	if len(repo.archived) != 0 {
		t.Error("archive row should be removed after restore")
	}
	if _, ok := repo.records[originalID]; !ok {
		t.Error("restored row missing from live table")
	}
}

func TestRestore_NoArchiveRow(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Restore(context.Background(), uuid.New()); !errors.Is(err, ErrNoArchive) {
		t.Fatalf("expected ErrNoArchive, got %v", err)
	}
}

func TestRestore_PicksMostRecentArchiveRow(t *testing.T) {
	svc, repo, _ := newTestService()
	originalID := uuid.New()

	older := &Archived{OriginalID: originalID, FullName: "Старая Версия", Status: StatusWaiting,
		DeletedByEmail: "a@b.c", DeletedAt: time.Now().Add(-time.Hour)}
	newer := &Archived{OriginalID: originalID, FullName: "Новая Версия", Status: StatusConfirmed,
		DeletedByEmail: "a@b.c", DeletedAt: time.Now()}
	repo.InsertArchive(context.Background(), older)
	repo.InsertArchive(context.Background(), newer)

	restored, err := svc.Restore(context.Background(), originalID)
	if err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if restored.FullName != "Новая Версия" {
		t.Errorf("expected most recent archive row restored, got %q", restored.FullName)
	}
	if len(repo.archived) != 1 {
		t.Errorf("only the restored archive row should be removed, %d left", len(repo.archived))
	}
}
