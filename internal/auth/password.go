package auth

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// Desk account password rules. bcrypt reads at most 72 bytes.
const (
	MinPasswordLength = 12
	maxPasswordBytes  = 72
)

var (
	ErrWrongPassword    = errors.New("wrong password")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("password exceeds maximum length of %d bytes", maxPasswordBytes)
)

// ConfirmPassword checks a new password against its repeated entry and the
// length rules. Used by the setup form and the create-librarian prompt.
func ConfirmPassword(password, confirm string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}
	return checkPasswordRules(password)
}

func checkPasswordRules(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

// passwordHasher stores account passwords at the configured bcrypt cost.
type passwordHasher struct {
	cost int
}

func (h passwordHasher) hash(password string) (string, error) {
	if err := checkPasswordRules(password); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// verify returns ErrWrongPassword when password does not produce hashed.
func (h passwordHasher) verify(hashed, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrWrongPassword
	}
	return err
}
