// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/akovalyov/kiosk-auth/internal/model"
	"github.com/gofrs/uuid/v5"
)

// AccountRepository provides access to PIN credential accounts.
//
// State mutations go through UpdateState with an expected version, so
// concurrent attempts for the same account serialize via optimistic
// concurrency: a conflict means "reload and redo the whole attempt", never a
// silent skip.
type AccountRepository interface {
	// Create inserts a new account.
	Create(ctx context.Context, a *model.Account) error
	// GetByKey loads an account snapshot and its current version by device key.
	GetByKey(ctx context.Context, deviceKey string) (*model.Account, int64, error)
	// UpdateState persists the security fields (attempt counter, lock expiry,
	// last activity) if the stored version still equals expectedVersion.
	// Returns errs.ErrVersionConflict otherwise.
	UpdateState(ctx context.Context, id uuid.UUID, expectedVersion int64, a *model.Account) error
	// SetCredential replaces the stored hash material and resets the security
	// state, for re-enrollment.
	SetCredential(ctx context.Context, id uuid.UUID, hash []byte) error
}
