package pdf

import (
	"errors"
	"strings"
)

// ErrPasswordRequired indicates a document is password protected and
// cannot be opened without one.
var ErrPasswordRequired = errors.New("password required")

// ErrPasswordMismatch indicates an unlock attempt supplied the wrong
// password. The caller may retry; nothing was mutated.
var ErrPasswordMismatch = errors.New("incorrect password")

// classifyOpenError maps a pdfcpu open/validate error onto the
// contract's taxonomy. pdfcpu exports no sentinel for its encryption
// errors, so this matches on the message; keeping it here means a
// future pdfcpu sentinel lands in one place.
func classifyOpenError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "password") || strings.Contains(msg, "encrypted") {
		return ErrPasswordRequired
	}
	return err
}

func isWrongPassword(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "password")
}
