package errors

import (
	"errors"

	"github.com/louisbranch/tokenvault/internal/platform/errors/i18n"
)

// DefaultLocale is the default locale for error messages.
const DefaultLocale = "en-US"

// LocalizedMessage renders the user-facing message for err in locale,
// defaulting to en-US when locale is empty. Non-domain errors render the
// generic internal message.
func LocalizedMessage(err error, locale string) string {
	if locale == "" {
		locale = DefaultLocale
	}
	var appErr *Error
	if !errors.As(err, &appErr) {
		return "an unexpected error occurred"
	}
	return i18n.GetCatalog(locale).Format(string(appErr.Code), appErr.Metadata)
}

// GetCode extracts the error code from any error.
// Returns CodeUnknown if the error is not a domain error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode checks if the error has the specified code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// GetMetadata extracts metadata from an error if present.
// Returns nil if the error is not a domain error or has no metadata.
func GetMetadata(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Metadata
	}
	return nil
}
