package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// MaxPasswordBytes is bcrypt's input limit. It counts bytes, not characters.
const MaxPasswordBytes = 72

type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash salts every call, so equal passwords produce different hashes.
func (h *BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", domain.ErrWeakPassword("must be at most 72 bytes")
	}
	if err != nil {
		return "", domain.ErrHashFailed(err)
	}
	return string(b), nil
}

// Verify is false for a wrong password and for a malformed stored hash alike.
func (h *BcryptHasher) Verify(candidate, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(candidate)) == nil
}
