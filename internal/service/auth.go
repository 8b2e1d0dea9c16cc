// Package service contains the application service for PIN authentication.
package service

import (
	"context"
	"errors"
	"time"

	pkgcrypto "github.com/akovalyov/kiosk-auth/internal/crypto"
	"github.com/akovalyov/kiosk-auth/internal/errs"
	"github.com/akovalyov/kiosk-auth/internal/lockout"
	"github.com/akovalyov/kiosk-auth/internal/model"
	"github.com/akovalyov/kiosk-auth/internal/repository"
	"github.com/akovalyov/kiosk-auth/internal/session"
	"github.com/akovalyov/kiosk-auth/internal/strength"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// casRetries bounds how many times an authentication attempt is redone after
// an optimistic concurrency conflict before giving up.
const casRetries = 3

// RejectionError reports why a candidate PIN failed enrollment checks.
type RejectionError struct{ Reason strength.Reason }

func (e *RejectionError) Error() string { return "pin rejected: " + e.Reason.String() }

// AuthService defines enrollment, authentication and session operations.
type AuthService interface {
	// Enroll validates PIN strength, hashes it, and creates the account.
	Enroll(ctx context.Context, deviceKey, pin string) (accountID string, err error)
	// ReEnroll replaces an existing account's credential after a strength check.
	ReEnroll(ctx context.Context, deviceKey, pin string) error
	// Authenticate runs one lockout-governed attempt and persists the outcome.
	Authenticate(ctx context.Context, deviceKey, pin string) (model.Session, model.Account, error)
	// CheckSession reports whether the account's session is still live.
	CheckSession(ctx context.Context, deviceKey string) (bool, error)
	// ValidateToken verifies an issued access token and returns its subject.
	ValidateToken(token string) (uuid.UUID, error)
}

type AuthServiceImpl struct {
	accounts repository.AccountRepository
	hasher   pkgcrypto.Hasher
	pol      model.Policy
	signKey  []byte
	now      func() time.Time
}

// NewAuthService constructs AuthService with required dependencies. The clock
// is injected so state transitions are deterministic under test.
func NewAuthService(accounts repository.AccountRepository, hasher pkgcrypto.Hasher, pol model.Policy, signKey []byte, now func() time.Time) *AuthServiceImpl {
	if now == nil {
		now = time.Now
	}
	return &AuthServiceImpl{accounts: accounts, hasher: hasher, pol: pol, signKey: signKey, now: now}
}

// Enroll validates the candidate PIN and creates an account with fresh hash
// material. Rejected PINs never reach the hasher.
func (s *AuthServiceImpl) Enroll(ctx context.Context, deviceKey, pin string) (string, error) {
	if deviceKey == "" {
		return "", errors.New("empty device key")
	}
	if r := strength.Classify(pin, s.pol.PINLength); !r.Accepted() {
		return "", &RejectionError{Reason: r}
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	hash, err := s.hasher.Hash(pin)
	if err != nil {
		// Entropy failure: abort, never store a weak or empty credential.
		return "", err
	}
	a := &model.Account{ID: uid, DeviceKey: deviceKey, CredentialHash: hash}
	if err := s.accounts.Create(ctx, a); err != nil {
		return "", err
	}
	return uid.String(), nil
}

// ReEnroll replaces the credential of an existing account and clears its
// security state.
func (s *AuthServiceImpl) ReEnroll(ctx context.Context, deviceKey, pin string) error {
	if r := strength.Classify(pin, s.pol.PINLength); !r.Accepted() {
		return &RejectionError{Reason: r}
	}
	a, _, err := s.accounts.GetByKey(ctx, deviceKey)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(pin)
	if err != nil {
		return err
	}
	return s.accounts.SetCredential(ctx, a.ID, hash)
}

// Authenticate performs one load-compute-swap attempt cycle. A version
// conflict means a concurrent attempt won the race; the whole cycle is redone
// so no failed attempt is ever lost or double-counted.
//
// An unknown device key pays the same hash comparison as a wrong PIN and
// surfaces the same error, so account existence leaks through neither the
// return value nor timing.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, deviceKey, pin string) (model.Session, model.Account, error) {
	for i := 0; i < casRetries; i++ {
		a, ver, err := s.accounts.GetByKey(ctx, deviceKey)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				_ = s.hasher.Verify(pin, nil)
				return model.Session{}, model.Account{}, errs.ErrUnauthorized
			}
			return model.Session{}, model.Account{}, err
		}

		dec, next := lockout.Attempt(*a, pin, s.hasher, s.now(), s.pol)

		if err := s.accounts.UpdateState(ctx, a.ID, ver, &next); err != nil {
			if errors.Is(err, errs.ErrVersionConflict) {
				continue
			}
			return model.Session{}, model.Account{}, err
		}

		switch dec {
		case lockout.Accepted:
			sess, err := s.issueSession(next.ID)
			if err != nil {
				return model.Session{}, model.Account{}, err
			}
			return sess, next, nil
		case lockout.AccountLocked:
			return model.Session{}, next, errs.ErrAccountLocked
		default:
			return model.Session{}, next, errs.ErrUnauthorized
		}
	}
	return model.Session{}, model.Account{}, errs.ErrVersionConflict
}

// CheckSession reports session liveness for the account's last activity.
// An unknown account simply has no live session.
func (s *AuthServiceImpl) CheckSession(ctx context.Context, deviceKey string) (bool, error) {
	a, _, err := s.accounts.GetByKey(ctx, deviceKey)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return session.IsValid(a.LastActivity, s.pol.SessionTimeout, s.now()), nil
}

// issueSession creates a signed HS256 JWT whose lifetime matches the session
// timeout policy.
func (s *AuthServiceImpl) issueSession(accountID uuid.UUID) (model.Session, error) {
	now := s.now()
	exp := now.Add(s.pol.SessionTimeout)
	claims := jwt.RegisteredClaims{
		Subject:   accountID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	if err != nil {
		return model.Session{}, err
	}
	return model.Session{AccessToken: signed, ExpiresAt: exp}, nil
}

// ValidateToken verifies an HS256 access token and returns the account ID it
// was issued for.
func (s *AuthServiceImpl) ValidateToken(token string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.signKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return uuid.Nil, errs.ErrUnauthorized
	}

	v := jwt.NewValidator(jwt.WithLeeway(30*time.Second), jwt.WithTimeFunc(s.now))
	if err := v.Validate(&claims); err != nil {
		return uuid.Nil, errs.ErrUnauthorized
	}

	id, err := uuid.FromString(claims.Subject)
	if err != nil {
		return uuid.Nil, errs.ErrUnauthorized
	}
	return id, nil
}
