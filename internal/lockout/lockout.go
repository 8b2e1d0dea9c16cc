// Package lockout implements the authentication attempt state machine.
//
// The engine is pure: it maps (account snapshot, submitted PIN, now, policy)
// to a decision and an updated snapshot. Persisting the snapshot, and
// serializing concurrent attempts for the same account, is the caller's job.
package lockout

import (
	"time"

	"github.com/akovalyov/kiosk-auth/internal/crypto"
	"github.com/akovalyov/kiosk-auth/internal/model"
)

// Decision is the outcome of a single authentication attempt.
type Decision int

const (
	// Accepted means the submitted PIN matched the stored credential.
	Accepted Decision = iota
	// InvalidPIN means the PIN did not match (or no credential exists).
	InvalidPIN
	// AccountLocked means the attempt was refused without considering the PIN.
	AccountLocked
)

func (d Decision) String() string {
	switch d {
	case Accepted:
		return "accepted"
	case InvalidPIN:
		return "invalid pin"
	case AccountLocked:
		return "account locked"
	default:
		return "unknown"
	}
}

// Attempt evaluates one submitted PIN against an account snapshot and returns
// the decision plus the snapshot to persist.
//
// An active lock wins over everything, including a correct PIN, and leaves
// the state untouched, so repeated calls under the same lock are idempotent.
// An expired lock resets the attempt budget to zero used attempts. Once
// FailedAttempts reaches the policy threshold the lock is (re)armed before
// any hash comparison is spent; both outcomes of that branch are equally
// "account locked", so skipping the comparison leaks nothing.
func Attempt(acct model.Account, pin string, h crypto.Hasher, now time.Time, pol model.Policy) (Decision, model.Account) {
	if acct.Locked(now) {
		return AccountLocked, acct
	}
	if acct.LockedUntil != nil {
		// Expired lock: the attempt budget starts over.
		acct.LockedUntil = nil
		acct.FailedAttempts = 0
	}

	if acct.FailedAttempts >= pol.MaxAttempts {
		until := now.Add(pol.LockoutDuration)
		acct.LockedUntil = &until
		return AccountLocked, acct
	}

	if h.Verify(pin, acct.CredentialHash) {
		acct.FailedAttempts = 0
		acct.LockedUntil = nil
		ts := now
		acct.LastActivity = &ts
		return Accepted, acct
	}

	acct.FailedAttempts++
	return InvalidPIN, acct
}

// RetryAfter returns how long the caller should wait before the next attempt
// can succeed, zero if the account is not locked at now.
func RetryAfter(acct model.Account, now time.Time) time.Duration {
	if acct.LockedUntil == nil || !now.Before(*acct.LockedUntil) {
		return 0
	}
	return acct.LockedUntil.Sub(now)
}
