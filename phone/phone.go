package phone

import (
	"errors"
	"regexp"
	"strings"
)

const (
	// MinDigits is the smallest number of digit characters accepted.
	MinDigits = 7

	// MessageFormat is shown when the raw input fails the format gate.
	MessageFormat = "Please enter a valid phone number including your country code (e.g. +1 234 567 8901)"
	// MessageTooShort is shown when the input has fewer than MinDigits digits.
	MessageTooShort = "Phone number is too short"
)

var (
	// ErrInvalidFormat is returned by Check when the format gate fails.
	ErrInvalidFormat = errors.New(MessageFormat)
	// ErrTooShort is returned by Check when the digit-count gate fails.
	ErrTooShort = errors.New(MessageTooShort)
)

// optional leading '+', then 7-20 digits, spaces, hyphens or parentheses.
var formatPattern = regexp.MustCompile(`^\+?[\d\s\-()]{7,20}$`)

// Result is the outcome of Validate. Valid implies Error == "".
type Result struct {
	Valid bool
	Error string
}

// Validate checks raw against the format gate and then the digit-count gate.
// Empty input is valid; callers decide separately whether the field is
// required.
func Validate(raw string) Result {
	if err := Check(raw); err != nil {
		return Result{Valid: false, Error: err.Error()}
	}
	return Result{Valid: true}
}

// Check is the error-returning form of Validate.
func Check(raw string) error {
	if raw == "" {
		return nil
	}
	if !formatPattern.MatchString(raw) {
		return ErrInvalidFormat
	}
	if countDigits(raw) < MinDigits {
		return ErrTooShort
	}
	return nil
}

// Normalize strips every character except digits and '+'. Every '+' is kept,
// not just a leading one, and no '+' is ever added.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if (c >= '0' && c <= '9') || c == '+' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func countDigits(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			n++
		}
	}
	return n
}
