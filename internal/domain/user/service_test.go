package user

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/Zaqwedo/denta-crm/internal/platform/auth"
)

type fakeRepo struct {
	accounts map[string]*Account
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{accounts: make(map[string]*Account)}
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (*Account, error) {
	a, ok := f.accounts[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return a, nil
}

func (f *fakeRepo) List(_ context.Context) ([]*Account, error) {
	var out []*Account
	for _, a := range f.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeRepo) Insert(_ context.Context, a *Account) error {
	f.accounts[a.Email] = a
	return nil
}

func (f *fakeRepo) Update(_ context.Context, a *Account) error {
	f.accounts[a.Email] = a
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, email string) error {
	delete(f.accounts, email)
	return nil
}

func newTestService() (*Service, *fakeRepo) {
	repo := newFakeRepo()
	return NewService(repo, zerolog.Nop()), repo
}

func TestAuthenticate_RoundTrip(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Create(context.Background(), "Doctor@Clinic.Local", "Др. Сидоров", auth.RoleStaff, "s3cret-pass"); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	a, err := svc.Authenticate(context.Background(), "doctor@clinic.local", "s3cret-pass")
	if err != nil {
		t.Fatalf("Authenticate() error: %v", err)
	}
	if a.Email != "doctor@clinic.local" {
		t.Errorf("expected normalized email, got %s", a.Email)
	}

	if _, err := svc.Authenticate(context.Background(), "doctor@clinic.local", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "nobody@clinic.local", "s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown account, got %v", err)
	}
}

func TestAuthenticate_PasswordlessAccount(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Create(context.Background(), "oauth@clinic.local", "", auth.RoleStaff, ""); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "oauth@clinic.local", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("account without a password must not authenticate, got %v", err)
	}
}

func TestPIN_SetAndAuthenticate(t *testing.T) {
	svc, _ := newTestService()
	svc.Create(context.Background(), "desk@clinic.local", "", auth.RoleStaff, "")

	if err := svc.SetPIN(context.Background(), "desk@clinic.local", "123"); !errors.Is(err, ErrWeakPIN) {
		t.Errorf("expected ErrWeakPIN for a 3-digit pin, got %v", err)
	}
	if err := svc.SetPIN(context.Background(), "desk@clinic.local", "4321"); err != nil {
		t.Fatalf("SetPIN() error: %v", err)
	}

	if _, err := svc.AuthenticatePIN(context.Background(), "desk@clinic.local", "4321"); err != nil {
		t.Errorf("AuthenticatePIN() error: %v", err)
	}
	if _, err := svc.AuthenticatePIN(context.Background(), "desk@clinic.local", "0000"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for wrong pin, got %v", err)
	}
}

func TestUpsertFromOAuth_CreatesThenRefreshes(t *testing.T) {
	svc, repo := newTestService()

	a, err := svc.UpsertFromOAuth(context.Background(), auth.Profile{
		Email: "New@Clinic.Local", Name: "Новый Сотрудник", Provider: "yandex",
	})
	if err != nil {
		t.Fatalf("UpsertFromOAuth() error: %v", err)
	}
	if a.Role != auth.RoleStaff {
		t.Errorf("first-time oauth account should be staff, got %s", a.Role)
	}
	if a.Provider == nil || *a.Provider != "yandex" {
		t.Error("expected provider recorded")
	}

	// Second sign-in through a different provider updates in place.
	a2, err := svc.UpsertFromOAuth(context.Background(), auth.Profile{
		Email: "new@clinic.local", Name: "Новый Сотрудник", Provider: "google",
	})
	if err != nil {
		t.Fatalf("UpsertFromOAuth() error: %v", err)
	}
	if *a2.Provider != "google" {
		t.Errorf("expected provider refreshed, got %s", *a2.Provider)
	}
	if len(repo.accounts) != 1 {
		t.Errorf("expected 1 account, got %d", len(repo.accounts))
	}
}

func TestCredentialSecret(t *testing.T) {
	svc, _ := newTestService()
	svc.Create(context.Background(), "bio@clinic.local", "", auth.RoleStaff, "")

	if _, err := svc.CredentialSecret(context.Background(), "bio@clinic.local"); !errors.Is(err, ErrNoCredential) {
		t.Errorf("expected ErrNoCredential before registration, got %v", err)
	}
	if err := svc.RegisterCredential(context.Background(), "bio@clinic.local", "device-secret"); err != nil {
		t.Fatalf("RegisterCredential() error: %v", err)
	}
	secret, err := svc.CredentialSecret(context.Background(), "bio@clinic.local")
	if err != nil {
		t.Fatalf("CredentialSecret() error: %v", err)
	}
	if secret != "device-secret" {
		t.Errorf("unexpected secret %q", secret)
	}
}

func TestCreate_DefaultsRole(t *testing.T) {
	svc, _ := newTestService()
	a, err := svc.Create(context.Background(), "x@clinic.local", "", "superuser", "pw")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if a.Role != auth.RoleStaff {
		t.Errorf("unknown role should fall back to staff, got %s", a.Role)
	}
}
