package auth

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ayo6706/trading-backoffice/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 12

const specialChars = `!@#$%^&*(),.?":{}|<>_-+=[]`

var commonPasswords = map[string]struct{}{
	"password123":   {},
	"admin123":      {},
	"welcome123":    {},
	"qwerty12345":   {},
	"123456789012":  {},
	"letmein12345":  {},
	"password12345": {},
}

// HashPassword hashes the plain password using bcrypt.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// CheckPassword compares a plain password with a bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePasswordStrength returns an error wrapping domain.ErrWeakPassword
// that names the first unmet rule.
func ValidatePasswordStrength(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return weak("password must be at least %d characters long", minPasswordLength)
	}
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(specialChars, r):
			special = true
		}
	}
	switch {
	case !lower:
		return weak("password must contain at least one lowercase letter")
	case !upper:
		return weak("password must contain at least one uppercase letter")
	case !digit:
		return weak("password must contain at least one number")
	case !special:
		return weak("password must contain at least one special character")
	}
	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		return weak("password is too common")
	}
	return nil
}

func weak(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrWeakPassword, fmt.Sprintf(format, args...))
}
