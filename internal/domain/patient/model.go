package patient

import (
	"time"

	"github.com/google/uuid"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Record maps to the patients table. One row per appointment/visit, not per
// person; a person is the derived grouping over rows sharing a name and
// birth date (see the dedup package).
type Record struct {
	ID              uuid.UUID `db:"id" json:"id"`
	FullName        string    `db:"full_name" json:"full_name"`
	Phone           *string   `db:"phone" json:"phone,omitempty"`
	BirthDate       *string   `db:"birth_date" json:"birth_date,omitempty"` // free text, as entered at the desk
	AppointmentDate *string   `db:"appointment_date" json:"appointment_date,omitempty"`
	AppointmentTime *string   `db:"appointment_time" json:"appointment_time,omitempty"`
	Status          Status    `db:"status" json:"status"`
	Doctor          *string   `db:"doctor" json:"doctor,omitempty"`
	Nurse           *string   `db:"nurse" json:"nurse,omitempty"`
	Teeth           *string   `db:"teeth" json:"teeth,omitempty"`
	Comments        *string   `db:"comments" json:"comments,omitempty"`
	Emoji           *string   `db:"emoji" json:"emoji,omitempty"`
	Notes           *string   `db:"notes" json:"notes,omitempty"`
	CreatedByEmail  *string   `db:"created_by_email" json:"created_by_email,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Archived maps to the deleted_patients table. Soft-deleted rows are moved
// here; OriginalID preserves the live row's id so restore can reinsert it
// unchanged. A record deleted, restored and deleted again produces several
// archive rows for the same OriginalID, so uniqueness is not enforced.
type Archived struct {
	ID              uuid.UUID `db:"id" json:"id"`
	OriginalID      uuid.UUID `db:"original_id" json:"original_id"`
	FullName        string    `db:"full_name" json:"full_name"`
	Phone           *string   `db:"phone" json:"phone,omitempty"`
	BirthDate       *string   `db:"birth_date" json:"birth_date,omitempty"`
	AppointmentDate *string   `db:"appointment_date" json:"appointment_date,omitempty"`
	AppointmentTime *string   `db:"appointment_time" json:"appointment_time,omitempty"`
	Status          Status    `db:"status" json:"status"`
	Doctor          *string   `db:"doctor" json:"doctor,omitempty"`
	Nurse           *string   `db:"nurse" json:"nurse,omitempty"`
	Teeth           *string   `db:"teeth" json:"teeth,omitempty"`
	Comments        *string   `db:"comments" json:"comments,omitempty"`
	CreatedByEmail  *string   `db:"created_by_email" json:"created_by_email,omitempty"`
	DeletedByEmail  string    `db:"deleted_by_email" json:"deleted_by_email"`
	DeletedAt       time.Time `db:"deleted_at" json:"deleted_at"`
}

// Scope is the caller's visibility over patient rows, resolved from the
// whitelist tables before any store call. It is passed explicitly into every
// read and write instead of being read ambiently from the session.
type Scope struct {
	AllowAll bool
	Doctors  []string
	Nurses   []string
}

// AdminScope sees every row.
func AdminScope() Scope {
	return Scope{AllowAll: true}
}

// Empty reports whether the scope grants no visibility at all.
func (s Scope) Empty() bool {
	return !s.AllowAll && len(s.Doctors) == 0 && len(s.Nurses) == 0
}

// Allows reports whether a row with the given doctor and nurse assignments is
// visible under this scope.
func (s Scope) Allows(doctor, nurse *string) bool {
	if s.AllowAll {
		return true
	}
	if doctor != nil {
		for _, d := range s.Doctors {
			if d == *doctor {
				return true
			}
		}
	}
	if nurse != nil {
		for _, n := range s.Nurses {
			if n == *nurse {
				return true
			}
		}
	}
	return false
}
