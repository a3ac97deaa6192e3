package dedup

import (
	"sort"
	"strings"

	"github.com/Zaqwedo/denta-crm/internal/domain/patient"
)

// Identity is a person derived from visit rows: every row sharing a
// normalized name and birth date belongs to one identity.
type Identity struct {
	Key       string            `json:"key"`
	Name      string            `json:"name"` // representative display name, as entered
	BirthDate string            `json:"birth_date,omitempty"`
	Records   []*patient.Record `json:"records"`
	Phones    []string          `json:"phones,omitempty"` // normalized, deduplicated
}

// IdentityKey composes the grouping key from a raw name and birth date.
func IdentityKey(fullName string, birthDate *string) string {
	birth := ""
	if birthDate != nil {
		birth = strings.TrimSpace(*birthDate)
	}
	return NormalizeName(fullName) + "|" + birth
}

// BuildIdentities folds visit rows into identities, sorted by key.
func BuildIdentities(records []*patient.Record) []*Identity {
	byKey := make(map[string]*Identity)
	for _, rec := range records {
		key := IdentityKey(rec.FullName, rec.BirthDate)
		id, ok := byKey[key]
		if !ok {
			birth := ""
			if rec.BirthDate != nil {
				birth = strings.TrimSpace(*rec.BirthDate)
			}
			id = &Identity{Key: key, Name: rec.FullName, BirthDate: birth}
			byKey[key] = id
		}
		id.Records = append(id.Records, rec)
		if rec.Phone != nil {
			if p := NormalizePhone(*rec.Phone); p != "" && !contains(id.Phones, p) {
				id.Phones = append(id.Phones, p)
			}
		}
	}

	out := make([]*Identity, 0, len(byKey))
	for _, id := range byKey {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// PairTag is the order-independent tag for an ignored identity pair.
func PairTag(keyA, keyB string) string {
	if keyB < keyA {
		keyA, keyB = keyB, keyA
	}
	return keyA + ":::" + keyB
}
