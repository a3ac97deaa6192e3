package staff

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/Zaqwedo/denta-crm/internal/platform/auth"
)

type fakeRepo struct {
	access map[string]*Access
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{access: make(map[string]*Access)}
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (*Access, error) {
	a, ok := f.access[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return a, nil
}

func (f *fakeRepo) List(_ context.Context) ([]*Access, error) {
	var out []*Access
	for _, a := range f.access {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeRepo) Upsert(_ context.Context, a *Access) error {
	f.access[a.Email] = a
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, email string) error {
	delete(f.access, email)
	return nil
}

func TestScopeFor_Admin(t *testing.T) {
	svc := NewService(newFakeRepo(), zerolog.Nop())
	scope, err := svc.ScopeFor(context.Background(), "boss@clinic.local", auth.RoleAdmin)
	if err != nil {
		t.Fatalf("ScopeFor() error: %v", err)
	}
	if !scope.AllowAll {
		t.Error("admin scope should see all rows")
	}
}

func TestScopeFor_Whitelisted(t *testing.T) {
	repo := newFakeRepo()
	repo.access["nurse@clinic.local"] = &Access{
		Email:   "nurse@clinic.local",
		Doctors: []string{"Сидоров"},
		Nurses:  []string{"Иванова"},
	}
	svc := NewService(repo, zerolog.Nop())

	scope, err := svc.ScopeFor(context.Background(), "nurse@clinic.local", auth.RoleStaff)
	if err != nil {
		t.Fatalf("ScopeFor() error: %v", err)
	}
	if scope.AllowAll {
		t.Error("staff scope must not see all rows")
	}
	if len(scope.Doctors) != 1 || scope.Doctors[0] != "Сидоров" {
		t.Errorf("unexpected doctor whitelist: %v", scope.Doctors)
	}
	if len(scope.Nurses) != 1 || scope.Nurses[0] != "Иванова" {
		t.Errorf("unexpected nurse whitelist: %v", scope.Nurses)
	}
}

func TestScopeFor_MissingEntrySeesNothing(t *testing.T) {
	svc := NewService(newFakeRepo(), zerolog.Nop())
	scope, err := svc.ScopeFor(context.Background(), "new@clinic.local", auth.RoleStaff)
	if err != nil {
		t.Fatalf("ScopeFor() error: %v", err)
	}
	if !scope.Empty() {
		t.Error("staff without a whitelist entry should see nothing")
	}
}

func TestUpsert_NormalizesEmail(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, zerolog.Nop())

	a := &Access{Email: "  Nurse@Clinic.Local "}
	if err := svc.Upsert(context.Background(), a); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	if _, ok := repo.access["nurse@clinic.local"]; !ok {
		t.Error("expected email lowercased and trimmed")
	}
	if a.Doctors == nil || a.Nurses == nil {
		t.Error("expected nil whitelists replaced with empty slices")
	}
}

func TestUpsert_RequiresEmail(t *testing.T) {
	svc := NewService(newFakeRepo(), zerolog.Nop())
	if err := svc.Upsert(context.Background(), &Access{Email: "  "}); !errors.Is(err, ErrEmailRequired) {
		t.Fatalf("expected ErrEmailRequired, got %v", err)
	}
}
