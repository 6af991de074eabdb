package app

import "errors"

var (
	// ErrInvalidCredentials is returned for unknown email and wrong
	// password alike, so responses do not enable account enumeration.
	ErrInvalidCredentials = errors.New("Invalid email or password")

	ErrEmailExists = errors.New("Email already exists")
	ErrISBNExists  = errors.New("ISBN already exists")

	ErrBookNotFound   = errors.New("Book not found")
	ErrMemberNotFound = errors.New("Member not found")
)

// ValidationError marks client input that failed a rule. Validation always
// happens before any mutating store call.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErr(msg string) error { return &ValidationError{Msg: msg} }

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
