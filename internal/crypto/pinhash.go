// Package crypto implements server-side PIN hashing and verification.
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt cost factor used unless the policy says otherwise.
const DefaultCost = 12

// Hasher produces and verifies irreversible PIN credentials. Implementations
// keep salt generation internal; callers never see or supply salts.
type Hasher interface {
	// Hash derives fresh storable hash material from a plaintext PIN. Two
	// calls on the same plaintext never produce equal output.
	Hash(plaintext string) ([]byte, error)
	// Verify reports whether plaintext matches the stored material. It never
	// panics and returns false for absent or malformed input.
	Verify(plaintext string, stored []byte) bool
}

// Bcrypt is a Hasher over bcrypt with a fixed cost factor.
//
// Verify pays the full comparison cost even when there is no stored
// credential, so "account has no credential" is indistinguishable by timing
// from "wrong PIN". The decoy used for that is a real hash of a random value
// generated at construction time.
type Bcrypt struct {
	cost  int
	decoy []byte
}

// NewBcrypt constructs a bcrypt Hasher. The only failure is an entropy-source
// failure while preparing the decoy hash, which is not recoverable.
func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d,%d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	seed, err := RandBytes(32)
	if err != nil {
		return nil, fmt.Errorf("decoy seed: %w", err)
	}
	decoy, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(seed)), cost)
	if err != nil {
		return nil, fmt.Errorf("decoy hash: %w", err)
	}
	return &Bcrypt{cost: cost, decoy: decoy}, nil
}

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// Hash derives salted hash material from plaintext. The salt is generated
// inside bcrypt from the process entropy source.
func (h *Bcrypt) Hash(plaintext string) ([]byte, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}
	return out, nil
}

// Verify checks plaintext against stored hash material.
func (h *Bcrypt) Verify(plaintext string, stored []byte) bool {
	if len(stored) == 0 {
		// No credential on record: burn the same comparison cost and fail.
		_ = bcrypt.CompareHashAndPassword(h.decoy, []byte(plaintext))
		return false
	}
	err := bcrypt.CompareHashAndPassword(stored, []byte(plaintext))
	switch {
	case err == nil:
		return true
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false
	default:
		// Malformed material fails during parsing, before any key schedule
		// runs. Pay the full cost anyway.
		_ = bcrypt.CompareHashAndPassword(h.decoy, []byte(plaintext))
		return false
	}
}
