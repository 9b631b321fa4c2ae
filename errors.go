package quoteboard

import "errors"

// ErrQuoteNotFound is returned when an operation targets an unknown quote id.
var ErrQuoteNotFound = errors.New("quote not found")

// ErrCorruptStore is returned by mutations when the quotes file cannot be
// parsed; the file is left untouched rather than overwritten.
var ErrCorruptStore = errors.New("quotes file is corrupt")

// ValidationError reports bad client input. Handlers answer it with 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
