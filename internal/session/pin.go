package session

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/familyhub/internal/model"
)

// HashPIN validates a four-digit PIN and returns its bcrypt hash.
func HashPIN(pin string) (string, error) {
	if !model.ValidPIN(pin) {
		return "", &model.ValidationError{Field: "pin", Message: "must be exactly 4 digits"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(hash), nil
}

// CheckPIN reports whether pin matches the profile's PIN. A profile without
// a PIN matches anything.
func CheckPIN(profile model.Profile, pin string) bool {
	if !profile.HasPIN() {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(profile.PINHash), []byte(pin)) == nil
}
