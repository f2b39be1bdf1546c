package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// MaxPasswordLength caps lock passwords; a longer one is rejected
// before any strategy runs.
const MaxPasswordLength = 256

// ErrPasswordEmpty rejects a blank lock password.
var ErrPasswordEmpty = errors.New("password must not be empty")

var digitRe = regexp.MustCompile(`[0-9]`)

// ValidatePassword enforces the lock tool's input boundary: 1-256
// characters, no emoji or other non-text codepoints.
func ValidatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return ErrPasswordEmpty
	}
	n := len([]rune(password))
	if n > MaxPasswordLength {
		return fmt.Errorf("password too long: %d characters, maximum is %d", n, MaxPasswordLength)
	}
	for _, r := range password {
		if unicode.IsControl(r) || unicode.In(r, unicode.So, unicode.Sk) || r > 0xFFFF {
			return fmt.Errorf("password contains unsupported character %q", r)
		}
	}
	return nil
}

// PasswordStrength scores a password 0-5 for advisory display only;
// the lock strategy never enforces strength.
func PasswordStrength(password string) int {
	if password == "" {
		return 0
	}
	score := 0
	if len([]rune(password)) > 8 {
		score++
	}
	if len([]rune(password)) > 14 {
		score++
	}
	if strings.ToLower(password) != password && strings.ToUpper(password) != password {
		score++
	}
	if digitRe.MatchString(password) {
		score++
	}
	for _, r := range password {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			score++
			break
		}
	}
	return score
}

// GeneratorOptions configure GeneratePassword's character pool.
type GeneratorOptions struct {
	Length  int
	Upper   bool
	Lower   bool
	Digits  bool
	Symbols bool
}

const (
	poolUpper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	poolLower   = "abcdefghijklmnopqrstuvwxyz"
	poolDigits  = "0123456789"
	poolSymbols = "!@#$%^&*()-_=+[]{}<>?"
)

// GeneratePassword draws a random password from the selected pools
// using the platform CSPRNG.
func GeneratePassword(opts GeneratorOptions) (string, error) {
	if opts.Length < 1 || opts.Length > MaxPasswordLength {
		return "", fmt.Errorf("length must be 1-%d, got %d", MaxPasswordLength, opts.Length)
	}

	pool := ""
	if opts.Upper {
		pool += poolUpper
	}
	if opts.Lower {
		pool += poolLower
	}
	if opts.Digits {
		pool += poolDigits
	}
	if opts.Symbols {
		pool += poolSymbols
	}
	if pool == "" {
		pool = poolUpper + poolLower + poolDigits
	}

	raw := make([]byte, opts.Length*4)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to draw randomness: %w", err)
	}

	var b strings.Builder
	for i := 0; i < opts.Length; i++ {
		v := binary.BigEndian.Uint32(raw[i*4:])
		b.WriteByte(pool[v%uint32(len(pool))])
	}
	return b.String(), nil
}
