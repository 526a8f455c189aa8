// Package auth implements the password box: one-way hashing and
// constant-time verification of user passwords. Callers never see or
// compare raw hash strings.
package auth

import "golang.org/x/crypto/bcrypt"

// defaultCost matches bcrypt's own default; mint/verify both stay in the
// low tens-of-milliseconds range at this cost on commodity hardware.
const defaultCost = bcrypt.DefaultCost

// Password wraps a bcrypt hash. The plaintext is never retained.
type Password struct {
	hash string
}

// NewPassword hashes plaintext. It fails on OS entropy exhaustion inside
// bcrypt's internal salt generation, or when plaintext is longer than
// bcrypt's 72-byte limit.
func NewPassword(plaintext string) (Password, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), defaultCost)
	if err != nil {
		return Password{}, err
	}
	return Password{hash: string(h)}, nil
}

// FromHash wraps an already-hashed password, e.g. one loaded from storage.
func FromHash(hash string) Password {
	return Password{hash: hash}
}

// Hashed returns the stored hash string, suitable for persistence.
func (p Password) Hashed() string {
	return p.hash
}

// Verify reports whether plaintext matches the stored hash. The
// comparison is constant-time with respect to the hash bytes; callers
// must never compare hash strings directly.
func (p Password) Verify(plaintext string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(p.hash), []byte(plaintext))
	return err == nil
}

// lowCost is bcrypt's floor, used for deriving session tokens rather
// than passwords: a few milliseconds per mint, never meant to be
// verified offline.
const lowCost = bcrypt.MinCost

// HashLowCost derives an opaque, collision-resistant string from input
// at bcrypt's minimum work factor. Used by the session package to turn
// (user_id, created_at) into a session token per its literal derivation
// requirement; not suitable for password storage.
func HashLowCost(input string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(input), lowCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
