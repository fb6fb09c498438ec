package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the account model. Emails are compared byte for byte; the
// directory makes no attempt to fold case.
type Account struct {
	bun.BaseModel         `bun:"table:accounts,alias:acc"`
	ID                    uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role                  UserRole   `bun:"role,notnull" json:"role,omitempty"`
	FirstName             string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName              string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	Email                 string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone                 string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash          string     `bun:"password_hash" json:"-"`
	ConfirmationToken     *string    `bun:"confirmation_token,nullzero" json:"-"`
	ConfirmationExpiresAt *time.Time `bun:"confirmation_expires_at,nullzero" json:"-"`
	Confirmed             bool       `bun:"is_confirmed" json:"is_confirmed"`
	CreatedAt             *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt             *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt             *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// SetConfirmation writes the confirmation token and its expiry together.
// The two fields are both set or both nil, never one without the other.
func (a *Account) SetConfirmation(token string, expiresAt time.Time) *Account {
	a.ConfirmationToken = &token
	a.ConfirmationExpiresAt = &expiresAt
	return a
}

// ConfirmationExpired reports whether the pending confirmation window has
// closed. Accounts without a token are treated as expired.
func (a *Account) ConfirmationExpired(now time.Time) bool {
	if a.ConfirmationToken == nil || a.ConfirmationExpiresAt == nil {
		return true
	}
	return a.ConfirmationExpiresAt.Before(now)
}

// Car is a protected account resource
type Car struct {
	bun.BaseModel `bun:"table:cars,alias:car"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Manufacturer  string     `bun:"manufacturer,notnull" json:"manufacturer,omitempty"`
	Model         string     `bun:"model,notnull" json:"model,omitempty"`
	Price         float64    `bun:"price" json:"price,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}
