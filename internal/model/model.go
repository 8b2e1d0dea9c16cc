// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Account is a single PIN credential holder (a kiosk or tablet operator).
// Services receive a snapshot and hand back an updated snapshot; only the
// repository holds a durable reference.
type Account struct {
	ID             uuid.UUID  // PK
	DeviceKey      string     // unique caller-facing identifier
	CredentialHash []byte     // bcrypt output; nil before first enrollment, never plaintext
	FailedAttempts int        // consecutive failures since last success
	LockedUntil    *time.Time // nil means not locked
	LastActivity   *time.Time // set only on successful authentication
	CreatedAt      time.Time
}

// Locked reports whether the account is under an active lockout at now.
func (a Account) Locked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// Policy collects the tunable authentication parameters. It is passed
// explicitly into every call; there is no process-wide mutable default.
type Policy struct {
	PINLength       int           // minimum PIN length
	MaxAttempts     int           // failures tolerated before lockout
	LockoutDuration time.Duration // how long a lock stays armed
	SessionTimeout  time.Duration // inactivity window for session liveness
	HashCost        int           // bcrypt cost factor
}

// DefaultPolicy returns the standard deployment parameters.
func DefaultPolicy() Policy {
	return Policy{
		PINLength:       4,
		MaxAttempts:     3,
		LockoutDuration: 15 * time.Minute,
		SessionTimeout:  60 * time.Minute,
		HashCost:        12,
	}
}

// Session collects an issued access token for an authenticated account.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}
