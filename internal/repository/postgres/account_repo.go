package postgres

import (
	"context"
	"errors"

	"github.com/akovalyov/kiosk-auth/internal/errs"
	"github.com/akovalyov/kiosk-auth/internal/model"
	"github.com/gofrs/uuid/v5"
)

// AccountRepo implements AccountRepository using PostgreSQL.
type AccountRepo struct{ db *DB }

// NewAccountRepo constructs an account repository.
func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{db: db} }

// Create inserts a new account row.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	const q = `
INSERT INTO accounts (id, device_key, credential_hash)
VALUES ($1, $2, $3)`
	_, err := r.db.Pool.Exec(ctx, q, a.ID, a.DeviceKey, a.CredentialHash)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByKey selects an account snapshot plus version by device key.
func (r *AccountRepo) GetByKey(ctx context.Context, deviceKey string) (*model.Account, int64, error) {
	const q = `
SELECT id, device_key, credential_hash, failed_attempts, locked_until, last_activity, version, created_at
FROM accounts WHERE device_key=$1`
	row := r.db.Pool.QueryRow(ctx, q, deviceKey)
	var a model.Account
	var ver int64
	if err := row.Scan(&a.ID, &a.DeviceKey, &a.CredentialHash, &a.FailedAttempts,
		&a.LockedUntil, &a.LastActivity, &ver, &a.CreatedAt); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, 0, err
		}
		return nil, 0, errs.ErrNotFound
	}
	return &a, ver, nil
}

// UpdateState writes the security fields under optimistic concurrency.
func (r *AccountRepo) UpdateState(ctx context.Context, id uuid.UUID, expectedVersion int64, a *model.Account) error {
	const q = `
UPDATE accounts
SET failed_attempts=$3, locked_until=$4, last_activity=$5, version=version+1
WHERE id=$1 AND version=$2`
	tag, err := r.db.Pool.Exec(ctx, q, id, expectedVersion, a.FailedAttempts, a.LockedUntil, a.LastActivity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrVersionConflict
	}
	return nil
}

// SetCredential replaces hash material and resets the security state.
func (r *AccountRepo) SetCredential(ctx context.Context, id uuid.UUID, hash []byte) error {
	const q = `
UPDATE accounts
SET credential_hash=$2, failed_attempts=0, locked_until=NULL, version=version+1
WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
