package auth

import (
	"crypto/rand"
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/booking-system/user-service/pkg/util"
)

const (
	MinPasswordLength       = 8
	MaxPasswordBytes        = 72 // bcrypt input limit
	TemporaryPasswordLength = 12
	DefaultBcryptCost       = 12

	temporaryAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// PasswordPolicy checks password strength and owns one-way hashing.
type PasswordPolicy struct {
	cost               int
	requireSpecialChar bool
}

// NewPasswordPolicy builds a policy. Costs outside bcrypt's range fall back to DefaultBcryptCost.
func NewPasswordPolicy(cost int, requireSpecialChar bool) *PasswordPolicy {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &PasswordPolicy{cost: cost, requireSpecialChar: requireSpecialChar}
}

// RequiresSpecialChar reports whether a non-alphanumeric character is mandatory.
func (p *PasswordPolicy) RequiresSpecialChar() bool {
	return p.requireSpecialChar
}

// Requirements describes the policy for error messages.
func (p *PasswordPolicy) Requirements() string {
	msg := "password must be 8 characters to 72 bytes long and contain an uppercase letter, a lowercase letter and a digit"
	if p.requireSpecialChar {
		msg += " and a special character"
	}
	return msg
}

// IsStrong reports whether password satisfies the policy. The minimum counts
// characters, the maximum counts bytes.
func (p *PasswordPolicy) IsStrong(password string) bool {
	if utf8.RuneCountInString(password) < MinPasswordLength || len(password) > MaxPasswordBytes {
		return false
	}
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case !unicode.IsSpace(r):
			hasSpecial = true
		}
	}
	if p.requireSpecialChar && !hasSpecial {
		return false
	}
	return hasUpper && hasLower && hasDigit
}

// Hash hashes a plaintext password with the configured cost.
func (p *PasswordPolicy) Hash(password string) (string, error) {
	if password == "" {
		return "", apperrors.NewInvalidArgument("password must not be empty", nil)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify compares a password against its hashed value. Malformed hashes never match.
func (p *PasswordPolicy) Verify(password, hashed string) bool {
	if hashed == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}

// IsHashed reports whether value looks like a bcrypt hash.
func (p *PasswordPolicy) IsHashed(value string) bool {
	if _, err := bcrypt.Cost([]byte(value)); err != nil {
		return false
	}
	return strings.HasPrefix(value, "$2")
}

// GenerateTemporary returns a random alphanumeric password for administrative resets.
func (p *PasswordPolicy) GenerateTemporary() (string, error) {
	limit := big.NewInt(int64(len(temporaryAlphabet)))
	var sb strings.Builder
	sb.Grow(TemporaryPasswordLength)
	for i := 0; i < TemporaryPasswordLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		sb.WriteByte(temporaryAlphabet[n.Int64()])
	}
	return sb.String(), nil
}
