package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashPin hashes a parent PIN for storage
func HashPin(pin string) (string, error) {
	if len(pin) < 4 {
		return "", errors.New("PIN must be at least 4 digits")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPin reports whether the given PIN matches the stored hash
func CheckPin(hash, pin string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
