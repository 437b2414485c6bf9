package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted for any account.
const MinPasswordLength = 8

// ErrPasswordTooShort is returned by CheckPasswordPolicy.
var ErrPasswordTooShort = errors.New("password must be at least 8 characters long")

var (
	decoyOnce sync.Once
	decoyHash []byte
)

// CheckPasswordPolicy rejects passwords that cannot be stored.
func CheckPasswordPolicy(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// HashPassword hashes a plaintext password. Costs outside bcrypt's range fall
// back to bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// BurnComparison spends roughly one bcrypt comparison so that logins for
// unknown accounts take as long as logins with a wrong password.
func BurnComparison(plain string) {
	decoyOnce.Do(func() {
		decoyHash, _ = bcrypt.GenerateFromPassword([]byte("support-desk-decoy"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(decoyHash, []byte(plain))
}
