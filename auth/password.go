package auth

import (
	"errors"
	"unicode"
)

const MinPasswordLength = 8

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

var ErrWeakPassword = errors.New("Password must be 8 to 72 characters long and include an uppercase letter, a lowercase letter, a number, and a symbol")

// StrongPassword reports whether p meets the password policy.
func StrongPassword(p string) bool {
	if len(p) > MaxPasswordBytes {
		return false
	}
	var upper, lower, digit, symbol bool
	n := 0
	for _, r := range p {
		n++
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsSpace(r):
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return n >= MinPasswordLength && upper && lower && digit && symbol
}

// CheckPassword returns ErrWeakPassword when p fails the policy.
func CheckPassword(p string) error {
	if !StrongPassword(p) {
		return ErrWeakPassword
	}
	return nil
}
