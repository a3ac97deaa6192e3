package user

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Zaqwedo/denta-crm/internal/platform/auth"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailRequired      = errors.New("account email must not be empty")
	ErrWeakPIN            = errors.New("pin must be at least 4 digits")
	ErrNoCredential       = errors.New("no biometric credential registered")
)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPIN(pin string) string {
	sum := sha256.Sum256([]byte(pin))
	return hex.EncodeToString(sum[:])
}

// Create registers an account with a bcrypt password. Used by the seed
// command and the admin account endpoints.
func (s *Service) Create(ctx context.Context, email, fullName, role, password string) (*Account, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if role != auth.RoleAdmin && role != auth.RoleStaff {
		role = auth.RoleStaff
	}

	a := &Account{Email: email, FullName: fullName, Role: role}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		h := string(hash)
		a.PasswordHash = &h
	}
	if err := s.repo.Insert(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Authenticate verifies an email/password pair. Unknown accounts and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	a, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if a.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(*a.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return a, nil
}

// AuthenticatePIN verifies the short front-desk PIN.
func (s *Service) AuthenticatePIN(ctx context.Context, email, pin string) (*Account, error) {
	a, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if a.PinHash == nil {
		return nil, ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(*a.PinHash), []byte(hashPIN(pin))) != 1 {
		return nil, ErrInvalidCredentials
	}
	return a, nil
}

// SetPIN stores a new PIN hash for the account.
func (s *Service) SetPIN(ctx context.Context, email, pin string) error {
	if len(pin) < 4 {
		return ErrWeakPIN
	}
	a, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	h := hashPIN(pin)
	a.PinHash = &h
	return s.repo.Update(ctx, a)
}

// RegisterCredential stores the biometric credential secret established at
// registration time, replacing any previous one.
func (s *Service) RegisterCredential(ctx context.Context, email, secret string) error {
	a, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	a.CredentialSecret = &secret
	return s.repo.Update(ctx, a)
}

// CredentialSecret returns the registered biometric secret for the account.
func (s *Service) CredentialSecret(ctx context.Context, email string) (string, error) {
	a, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNoCredential
		}
		return "", err
	}
	if a.CredentialSecret == nil {
		return "", ErrNoCredential
	}
	return *a.CredentialSecret, nil
}

// UpsertFromOAuth creates or refreshes the account backing an OAuth sign-in.
// First-time OAuth users come in as staff; an admin promotes them later.
func (s *Service) UpsertFromOAuth(ctx context.Context, p auth.Profile) (*Account, error) {
	email := normalizeEmail(p.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	a, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		a = &Account{Email: email, FullName: p.Name, Role: auth.RoleStaff, Provider: &p.Provider}
		if err := s.repo.Insert(ctx, a); err != nil {
			return nil, err
		}
		s.log.Info().Str("email", email).Str("provider", p.Provider).Msg("created account from oauth sign-in")
		return a, nil
	}

	a.Provider = &p.Provider
	if p.Name != "" {
		a.FullName = p.Name
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return s.repo.GetByEmail(ctx, normalizeEmail(email))
}

func (s *Service) List(ctx context.Context) ([]*Account, error) {
	return s.repo.List(ctx)
}

func (s *Service) Delete(ctx context.Context, email string) error {
	return s.repo.Delete(ctx, normalizeEmail(email))
}
