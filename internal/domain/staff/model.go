package staff

import "time"

// Access maps to the staff_access table: per-employee whitelists of the
// doctors and nurses whose patient rows that employee may see.
type Access struct {
	Email     string    `db:"email" json:"email"`
	Doctors   []string  `db:"doctors" json:"doctors"`
	Nurses    []string  `db:"nurses" json:"nurses"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
