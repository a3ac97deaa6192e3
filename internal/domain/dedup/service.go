package dedup

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Zaqwedo/denta-crm/internal/domain/patient"
)

var (
	ErrNameRequired  = errors.New("merged name must not be empty")
	ErrTooFewToMerge = errors.New("merge needs at least two matching identities")
	ErrSamePair      = errors.New("cannot ignore an identity against itself")
	ErrKeysRequired  = errors.New("identity keys must not be empty")
)

// MergePreview is returned before a merge so the desk can resolve conflicts
// between the identities' person-level fields.
type MergePreview struct {
	Identities []*Identity     `json:"identities"`
	Conflicts  []FieldConflict `json:"conflicts,omitempty"`
}

// FieldConflict lists the distinct values one person-level field takes
// across the identities being merged.
type FieldConflict struct {
	Field  string   `json:"field"`
	Values []string `json:"values"`
}

// MergeRequest carries the identities to merge and the final values chosen
// for the person-level fields.
type MergeRequest struct {
	Keys      []string `json:"keys"`
	FullName  string   `json:"full_name"`
	BirthDate *string  `json:"birth_date,omitempty"`
	Emoji     *string  `json:"emoji,omitempty"`
	Notes     *string  `json:"notes,omitempty"`
}

type Service struct {
	repo     Repository
	patients patient.Repository
	log      zerolog.Logger
}

func NewService(repo Repository, patients patient.Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, patients: patients, log: log}
}

// Duplicates rebuilds identities from the rows the caller can see and
// returns the suspected duplicate groups.
func (s *Service) Duplicates(ctx context.Context, scope patient.Scope) ([]*Group, error) {
	records, err := s.patients.ListAll(ctx, scope)
	if err != nil {
		return nil, err
	}
	ignored, err := s.repo.IgnoredTags(ctx)
	if err != nil {
		return nil, err
	}
	return FindPotentialDuplicates(BuildIdentities(records), ignored), nil
}

// StartMerge resolves the requested identity keys against current rows and
// reports any person-level field conflicts the desk has to settle.
func (s *Service) StartMerge(ctx context.Context, scope patient.Scope, keys []string) (*MergePreview, error) {
	identities, err := s.resolveIdentities(ctx, scope, keys)
	if err != nil {
		return nil, err
	}
	return &MergePreview{
		Identities: identities,
		Conflicts:  findConflicts(identities),
	}, nil
}

// Merge rewrites the identity fields on every visit row of every matched
// identity to the chosen final values, in one transaction.
func (s *Service) Merge(ctx context.Context, scope patient.Scope, req MergeRequest) (int, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		return 0, ErrNameRequired
	}
	identities, err := s.resolveIdentities(ctx, scope, req.Keys)
	if err != nil {
		return 0, err
	}

	var ids []uuid.UUID
	for _, id := range identities {
		for _, rec := range id.Records {
			ids = append(ids, rec.ID)
		}
	}

	err = s.patients.RunInTx(ctx, func(ctx context.Context) error {
		return s.patients.UpdateIdentityFields(ctx, ids, req.FullName, req.BirthDate, req.Emoji, req.Notes)
	})
	if err != nil {
		return 0, err
	}

	s.log.Info().
		Int("identities", len(identities)).
		Int("records", len(ids)).
		Str("final_name", req.FullName).
		Msg("merged duplicate identities")
	return len(ids), nil
}

// Ignore marks a pair of identities as not-a-duplicate so future scans stop
// suggesting them.
func (s *Service) Ignore(ctx context.Context, keyA, keyB string) error {
	keyA, keyB = strings.TrimSpace(keyA), strings.TrimSpace(keyB)
	if keyA == "" || keyB == "" {
		return ErrKeysRequired
	}
	if keyA == keyB {
		return ErrSamePair
	}
	return s.repo.InsertIgnoredPair(ctx, keyA, keyB)
}

func (s *Service) resolveIdentities(ctx context.Context, scope patient.Scope, keys []string) ([]*Identity, error) {
	if len(keys) < 2 {
		return nil, ErrTooFewToMerge
	}
	records, err := s.patients.ListAll(ctx, scope)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}
	var matched []*Identity
	for _, id := range BuildIdentities(records) {
		if wanted[id.Key] {
			matched = append(matched, id)
		}
	}
	if len(matched) < 2 {
		return nil, ErrTooFewToMerge
	}
	return matched, nil
}

// findConflicts collects the distinct values each person-level field takes
// across the identities. A field with more than one distinct non-empty
// value needs an explicit choice before merging.
func findConflicts(identities []*Identity) []FieldConflict {
	collect := func(field string, get func(*Identity) []string) *FieldConflict {
		var values []string
		seen := make(map[string]bool)
		for _, id := range identities {
			for _, v := range get(id) {
				v = strings.TrimSpace(v)
				if v == "" || seen[v] {
					continue
				}
				seen[v] = true
				values = append(values, v)
			}
		}
		if len(values) < 2 {
			return nil
		}
		return &FieldConflict{Field: field, Values: values}
	}

	var out []FieldConflict
	if c := collect("full_name", func(id *Identity) []string { return []string{id.Name} }); c != nil {
		out = append(out, *c)
	}
	if c := collect("birth_date", func(id *Identity) []string { return []string{id.BirthDate} }); c != nil {
		out = append(out, *c)
	}
	if c := collect("emoji", identityValues(func(r rowFields) *string { return r.emoji })); c != nil {
		out = append(out, *c)
	}
	if c := collect("notes", identityValues(func(r rowFields) *string { return r.notes })); c != nil {
		out = append(out, *c)
	}
	return out
}

type rowFields struct {
	emoji *string
	notes *string
}

func identityValues(pick func(rowFields) *string) func(*Identity) []string {
	return func(id *Identity) []string {
		var out []string
		for _, rec := range id.Records {
			if v := pick(rowFields{emoji: rec.Emoji, notes: rec.Notes}); v != nil {
				out = append(out, *v)
			}
		}
		return out
	}
}
