package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNameRequired  = errors.New("patient name must not be empty")
	ErrInvalidStatus = errors.New("unknown appointment status")
	ErrNotVisible    = errors.New("record is outside the caller's scope")
	ErrNoArchive     = errors.New("no archived record for this id")
)

// AuditTrail records field-level changes and serves revert. Implemented by
// the changelog service; declared here so this package never imports it.
type AuditTrail interface {
	// RecordChanges persists one entry per tracked field that differs
	// between old and updated.
	RecordChanges(ctx context.Context, old, updated *Record, changedBy string) error
	// ApplyLatestOldValues mutates rec in place, setting every tracked
	// field back to its most recently recorded old value. Returns the
	// number of fields touched.
	ApplyLatestOldValues(ctx context.Context, rec *Record) (int, error)
}

type Service struct {
	repo  Repository
	audit AuditTrail
	log   zerolog.Logger
}

func NewService(repo Repository, audit AuditTrail, log zerolog.Logger) *Service {
	return &Service{repo: repo, audit: audit, log: log}
}

func (s *Service) Create(ctx context.Context, rec *Record, createdBy string) error {
	rec.FullName = strings.TrimSpace(rec.FullName)
	if rec.FullName == "" {
		return ErrNameRequired
	}
	if rec.Status == "" {
		rec.Status = StatusWaiting
	}
	if !rec.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, rec.Status)
	}
	if createdBy != "" {
		rec.CreatedByEmail = &createdBy
	}
	return s.repo.Create(ctx, rec)
}

func (s *Service) Get(ctx context.Context, scope Scope, id uuid.UUID) (*Record, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(rec.Doctor, rec.Nurse) {
		return nil, ErrNotVisible
	}
	return rec, nil
}

func (s *Service) List(ctx context.Context, scope Scope, limit, offset int) ([]*Record, int, error) {
	return s.repo.List(ctx, scope, limit, offset)
}

// Update replaces the record's editable fields and writes one audit entry
// per field that actually changed. The row update and the audit entries
// commit together or not at all.
func (s *Service) Update(ctx context.Context, scope Scope, rec *Record, changedBy string) (*Record, error) {
	rec.FullName = strings.TrimSpace(rec.FullName)
	if rec.FullName == "" {
		return nil, ErrNameRequired
	}
	if !rec.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, rec.Status)
	}

	old, err := s.repo.GetByID(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(old.Doctor, old.Nurse) {
		return nil, ErrNotVisible
	}
	rec.CreatedByEmail = old.CreatedByEmail
	rec.CreatedAt = old.CreatedAt

	err = s.repo.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, rec); err != nil {
			return err
		}
		return s.audit.RecordChanges(ctx, old, rec, changedBy)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Revert rolls every tracked field back to the most recently recorded old
// value in the audit trail. The rollback itself is an ordinary update, so it
// leaves its own audit entries and can in turn be reverted.
func (s *Service) Revert(ctx context.Context, scope Scope, id uuid.UUID, changedBy string) (*Record, int, error) {
	rec, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, 0, err
	}

	reverted := *rec
	n, err := s.audit.ApplyLatestOldValues(ctx, &reverted)
	if err != nil {
		return nil, 0, err
	}
	if n == 0 {
		return rec, 0, nil
	}

	updated, err := s.Update(ctx, scope, &reverted, changedBy)
	if err != nil {
		return nil, 0, err
	}
	return updated, n, nil
}

// ArchiveAndRemove moves a record into the archive and deletes the live row
// in one transaction. Personal annotations (emoji, notes) stay behind; they
// belong to the person-level identity, not the archived visit.
func (s *Service) ArchiveAndRemove(ctx context.Context, scope Scope, id uuid.UUID, deletedBy string) error {
	rec, err := s.Get(ctx, scope, id)
	if err != nil {
		return err
	}

	archived := &Archived{
		OriginalID:      rec.ID,
		FullName:        rec.FullName,
		Phone:           rec.Phone,
		BirthDate:       rec.BirthDate,
		AppointmentDate: rec.AppointmentDate,
		AppointmentTime: rec.AppointmentTime,
		Status:          rec.Status,
		Doctor:          rec.Doctor,
		Nurse:           rec.Nurse,
		Teeth:           rec.Teeth,
		Comments:        rec.Comments,
		CreatedByEmail:  rec.CreatedByEmail,
		DeletedByEmail:  deletedBy,
	}

	return s.repo.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.InsertArchive(ctx, archived); err != nil {
			return err
		}
		return s.repo.DeleteByID(ctx, rec.ID)
	})
}

// Restore reinserts an archived record under its original id and removes the
// archive row. A record deleted and restored repeatedly can leave several
// archive rows for one original id; the most recent deletion wins and the
// anomaly is logged.
func (s *Service) Restore(ctx context.Context, originalID uuid.UUID) (*Record, error) {
	archived, err := s.repo.ArchivedByOriginalID(ctx, originalID)
	if err != nil {
		return nil, err
	}
	if len(archived) == 0 {
		return nil, ErrNoArchive
	}
	if len(archived) > 1 {
		s.log.Warn().
			Str("original_id", originalID.String()).
			Int("archive_rows", len(archived)).
			Msg("multiple archive rows for one record, restoring the most recent")
	}
	latest := archived[0]

	rec := &Record{
		ID:              latest.OriginalID,
		FullName:        latest.FullName,
		Phone:           latest.Phone,
		BirthDate:       latest.BirthDate,
		AppointmentDate: latest.AppointmentDate,
		AppointmentTime: latest.AppointmentTime,
		Status:          latest.Status,
		Doctor:          latest.Doctor,
		Nurse:           latest.Nurse,
		Teeth:           latest.Teeth,
		Comments:        latest.Comments,
		CreatedByEmail:  latest.CreatedByEmail,
	}

	err = s.repo.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, rec); err != nil {
			return err
		}
		return s.repo.DeleteArchivedByID(ctx, latest.ID)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) ListArchived(ctx context.Context, limit, offset int) ([]*Archived, int, error) {
	return s.repo.ListArchived(ctx, limit, offset)
}
