package user

import "time"

// Account maps to the accounts table. An account can carry several
// credentials at once: a password, a short PIN for the front desk tablet, a
// biometric credential secret, or none at all when the account only ever
// signs in through an OAuth provider.
type Account struct {
	Email            string    `db:"email" json:"email"`
	FullName         string    `db:"full_name" json:"full_name"`
	Role             string    `db:"role" json:"role"`
	PasswordHash     *string   `db:"password_hash" json:"-"`
	PinHash          *string   `db:"pin_hash" json:"-"`
	CredentialSecret *string   `db:"credential_secret" json:"-"`
	Provider         *string   `db:"provider" json:"provider,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
