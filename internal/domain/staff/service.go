package staff

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/Zaqwedo/denta-crm/internal/domain/patient"
	"github.com/Zaqwedo/denta-crm/internal/platform/auth"
)

var ErrEmailRequired = errors.New("staff email must not be empty")

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// ScopeFor resolves the caller's row visibility. Admins see everything;
// staff see rows assigned to whitelisted doctors or nurses; staff with no
// whitelist entry see nothing.
func (s *Service) ScopeFor(ctx context.Context, email, role string) (patient.Scope, error) {
	if role == auth.RoleAdmin {
		return patient.AdminScope(), nil
	}
	access, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return patient.Scope{}, nil
		}
		return patient.Scope{}, err
	}
	return patient.Scope{Doctors: access.Doctors, Nurses: access.Nurses}, nil
}

func (s *Service) Get(ctx context.Context, email string) (*Access, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *Service) List(ctx context.Context) ([]*Access, error) {
	return s.repo.List(ctx)
}

func (s *Service) Upsert(ctx context.Context, a *Access) error {
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	if a.Email == "" {
		return ErrEmailRequired
	}
	if a.Doctors == nil {
		a.Doctors = []string{}
	}
	if a.Nurses == nil {
		a.Nurses = []string{}
	}
	return s.repo.Upsert(ctx, a)
}

func (s *Service) Delete(ctx context.Context, email string) error {
	return s.repo.Delete(ctx, email)
}
