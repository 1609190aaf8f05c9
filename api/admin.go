package api

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

const AdminKeyHeader = "X-Booking-Admin-Key"

// AdminKey guards the email lookup. It holds either a plaintext key or a
// bcrypt hash of one; with neither configured the lookup is disabled.
type AdminKey struct {
	plain []byte
	hash  []byte
}

func NewAdminKey(plain, bcryptHash string) AdminKey {
	k := AdminKey{}
	if bcryptHash != "" {
		k.hash = []byte(bcryptHash)
	} else if plain != "" {
		k.plain = []byte(plain)
	}
	return k
}

func (k AdminKey) Enabled() bool {
	return len(k.plain) > 0 || len(k.hash) > 0
}

func (k AdminKey) Verify(provided string) bool {
	if provided == "" {
		return false
	}
	if len(k.hash) > 0 {
		return bcrypt.CompareHashAndPassword(k.hash, []byte(provided)) == nil
	}
	if len(k.plain) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(k.plain, []byte(provided)) == 1
}
