package changelog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Zaqwedo/denta-crm/internal/domain/patient"
	"github.com/Zaqwedo/denta-crm/internal/platform/auth"
)

type fakeReader struct {
	records map[uuid.UUID]*patient.Record
}

func (f *fakeReader) Get(_ context.Context, scope patient.Scope, id uuid.UUID) (*patient.Record, error) {
	r, ok := f.records[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if !scope.Allows(r.Doctor, r.Nurse) {
		return nil, patient.ErrNotVisible
	}
	return r, nil
}

type fakeScopes struct {
	byEmail map[string]patient.Scope
}

func (f *fakeScopes) ScopeFor(_ context.Context, email, role string) (patient.Scope, error) {
	if role == auth.RoleAdmin {
		return patient.AdminScope(), nil
	}
	return f.byEmail[email], nil
}

func getChanges(t *testing.T, h *Handler, id uuid.UUID, email, role string) int {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/patients/"+id.String()+"/changes", nil)
	ctx := context.WithValue(req.Context(), auth.CallerEmailKey, email)
	ctx = context.WithValue(ctx, auth.CallerRoleKey, role)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	err := h.ListChanges(c)
	if err == nil {
		return rec.Code
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T: %v", err, err)
	}
	return httpErr.Code
}

func TestListChanges_EnforcesScope(t *testing.T) {
	rec := &patient.Record{ID: uuid.New(), FullName: "Петрова Анна", Status: patient.StatusWaiting, Doctor: strptr("Сидоров")}

	repo := &fakeRepo{}
	svc := NewService(repo, zerolog.Nop())
	old := *rec
	updated := *rec
	updated.Doctor = strptr("Козлов")
	if err := svc.RecordChanges(context.Background(), &old, &updated, "a@b.c"); err != nil {
		t.Fatal(err)
	}

	reader := &fakeReader{records: map[uuid.UUID]*patient.Record{rec.ID: rec}}
	scopes := &fakeScopes{byEmail: map[string]patient.Scope{
		"assigned@clinic.local": {Doctors: []string{"Сидоров"}},
		"other@clinic.local":    {Doctors: []string{"Иванов"}},
	}}
	h := NewHandler(svc, reader, scopes)

	if code := getChanges(t, h, rec.ID, "assigned@clinic.local", auth.RoleStaff); code != http.StatusOK {
		t.Errorf("whitelisted staff should read the change log, got %d", code)
	}
	if code := getChanges(t, h, rec.ID, "other@clinic.local", auth.RoleStaff); code != http.StatusNotFound {
		t.Errorf("out-of-scope patient history must read as not found, got %d", code)
	}
	if code := getChanges(t, h, rec.ID, "admin@clinic.local", auth.RoleAdmin); code != http.StatusOK {
		t.Errorf("admin should read any change log, got %d", code)
	}
}

func TestListChanges_ArchivedPatient(t *testing.T) {
	// No live row: history of an archived patient stays reachable for admins
	// but reads as not found for restricted staff.
	archivedID := uuid.New()

	repo := &fakeRepo{}
	repo.Insert(context.Background(), []*Entry{{
		PatientID: archivedID, FieldName: FieldStatus,
		OldValue: strptr("waiting"), NewValue: strptr("completed"), ChangedByEmail: "a@b.c",
	}})
	svc := NewService(repo, zerolog.Nop())

	reader := &fakeReader{records: map[uuid.UUID]*patient.Record{}}
	scopes := &fakeScopes{byEmail: map[string]patient.Scope{
		"staff@clinic.local": {Doctors: []string{"Сидоров"}},
	}}
	h := NewHandler(svc, reader, scopes)

	if code := getChanges(t, h, archivedID, "admin@clinic.local", auth.RoleAdmin); code != http.StatusOK {
		t.Errorf("admin should read archived patient history, got %d", code)
	}
	if code := getChanges(t, h, archivedID, "staff@clinic.local", auth.RoleStaff); code != http.StatusNotFound {
		t.Errorf("restricted staff should not read archived patient history, got %d", code)
	}
}
