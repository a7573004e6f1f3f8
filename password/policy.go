package password

import "errors"

// MinLength is the minimum password length in characters.
const MinLength = 8

var (
	// ErrPolicy is wrapped by every strength rule error.
	ErrPolicy = errors.New("password policy violation")

	ErrTooShort         = &ruleError{msg: "Password must be at least 8 characters long"}
	ErrMissingLowercase = &ruleError{msg: "Password must contain at least one lowercase letter"}
	ErrMissingUppercase = &ruleError{msg: "Password must contain at least one uppercase letter"}
	ErrMissingDigit     = &ruleError{msg: "Password must contain at least one number"}
)

type ruleError struct {
	msg string
}

func (e *ruleError) Error() string { return e.msg }

func (e *ruleError) Unwrap() error { return ErrPolicy }

type rule struct {
	err error
	ok  func(string) bool
}

// Order matters: the first failing rule is the one reported.
var rules = []rule{
	{err: ErrTooShort, ok: func(s string) bool { return len([]rune(s)) >= MinLength }},
	{err: ErrMissingLowercase, ok: func(s string) bool { return containsFunc(s, isASCIILower) }},
	{err: ErrMissingUppercase, ok: func(s string) bool { return containsFunc(s, isASCIIUpper) }},
	{err: ErrMissingDigit, ok: func(s string) bool { return containsFunc(s, isASCIIDigit) }},
}

// CheckStrength returns the error of the first policy rule pw violates, or
// nil. Rules: length, lowercase, uppercase, digit.
func CheckStrength(pw string) error {
	for _, r := range rules {
		if !r.ok(pw) {
			return r.err
		}
	}
	return nil
}

// Message returns the user-facing text for a policy error, or "" when err is
// not a policy error.
func Message(err error) string {
	var re *ruleError
	if errors.As(err, &re) {
		return re.msg
	}
	return ""
}

func containsFunc(s string, f func(rune) bool) bool {
	for _, r := range s {
		if f(r) {
			return true
		}
	}
	return false
}

func isASCIILower(r rune) bool {
	return r >= 'a' && r <= 'z'
}

func isASCIIUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
