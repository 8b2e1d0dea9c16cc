package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/akovalyov/kiosk-auth/internal/errs"
	"github.com/akovalyov/kiosk-auth/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func TestAccountRepo_Create_OK_and_DuplicateKey(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()
	a := &model.Account{
		ID:             uuid.Must(uuid.NewV4()),
		DeviceKey:      "kiosk-7",
		CredentialHash: []byte("h"),
	}

	// OK
	mock.ExpectExec(`INSERT INTO accounts \(id, device_key, credential_hash\) VALUES \(\$1, \$2, \$3\)`).
		WithArgs(a.ID, a.DeviceKey, a.CredentialHash).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, a))

	// Unique violation on device_key
	mock.ExpectExec(`INSERT INTO accounts \(id, device_key, credential_hash\) VALUES \(\$1, \$2, \$3\)`).
		WithArgs(a.ID, a.DeviceKey, a.CredentialHash).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	err := r.Create(ctx, a)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
}

func TestAccountRepo_GetByKey(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	locked := time.Now().Add(10 * time.Minute)

	mock.ExpectQuery(`SELECT id, device_key, credential_hash, failed_attempts, locked_until, last_activity, version, created_at FROM accounts WHERE device_key=\$1`).
		WithArgs("kiosk-7").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "device_key", "credential_hash", "failed_attempts",
			"locked_until", "last_activity", "version", "created_at",
		}).AddRow(id, "kiosk-7", []byte("h"), 2, &locked, (*time.Time)(nil), int64(5), time.Now()))
	a, ver, err := r.GetByKey(ctx, "kiosk-7")
	require.NoError(t, err)
	require.Equal(t, id, a.ID)
	require.Equal(t, 2, a.FailedAttempts)
	require.NotNil(t, a.LockedUntil)
	require.Nil(t, a.LastActivity)
	require.EqualValues(t, 5, ver)

	mock.ExpectQuery(`SELECT id, device_key, credential_hash, failed_attempts, locked_until, last_activity, version, created_at FROM accounts WHERE device_key=\$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)
	_, _, err = r.GetByKey(ctx, "ghost")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAccountRepo_UpdateState_CAS(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	now := time.Now()
	a := &model.Account{FailedAttempts: 3, LockedUntil: &now}

	// OK: version matches
	mock.ExpectExec(`UPDATE accounts SET failed_attempts=\$3, locked_until=\$4, last_activity=\$5, version=version\+1 WHERE id=\$1 AND version=\$2`).
		WithArgs(id, int64(5), a.FailedAttempts, a.LockedUntil, a.LastActivity).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.UpdateState(ctx, id, 5, a))

	// Conflict: someone else moved the version
	mock.ExpectExec(`UPDATE accounts SET failed_attempts=\$3, locked_until=\$4, last_activity=\$5, version=version\+1 WHERE id=\$1 AND version=\$2`).
		WithArgs(id, int64(5), a.FailedAttempts, a.LockedUntil, a.LastActivity).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err := r.UpdateState(ctx, id, 5, a)
	require.ErrorIs(t, err, errs.ErrVersionConflict)
}

func TestAccountRepo_SetCredential(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`UPDATE accounts SET credential_hash=\$2, failed_attempts=0, locked_until=NULL, version=version\+1 WHERE id=\$1`).
		WithArgs(id, []byte("new-hash")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.SetCredential(ctx, id, []byte("new-hash")))

	mock.ExpectExec(`UPDATE accounts SET credential_hash=\$2, failed_attempts=0, locked_until=NULL, version=version\+1 WHERE id=\$1`).
		WithArgs(id, []byte("new-hash")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err := r.SetCredential(ctx, id, []byte("new-hash"))
	require.ErrorIs(t, err, errs.ErrNotFound)
}
