package changelog

import (
	"time"

	"github.com/google/uuid"
)

// Entry maps to the patient_changes table. One row per changed field per
// edit; the human-readable field label is stored as written so the history
// view needs no translation step.
type Entry struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	FieldName      string    `db:"field_name" json:"field_name"`
	OldValue       *string   `db:"old_value" json:"old_value"`
	NewValue       *string   `db:"new_value" json:"new_value"`
	ChangedByEmail string    `db:"changed_by_email" json:"changed_by_email"`
	ChangedAt      time.Time `db:"changed_at" json:"changed_at"`
}
