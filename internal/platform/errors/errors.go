package errors

import (
	stderrors "errors"
	"sort"
	"strings"

	"github.com/louisbranch/drivechain/internal/platform/errors/i18n"
)

// Error is the driver error type: a stable taxonomy code plus the structured
// arguments the message template was rendered from.
type Error struct {
	Code     Code              // Machine-readable taxonomy key
	Message  string            // Rendered message
	Metadata map[string]string // Template arguments
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithMetadata creates an error whose message is rendered from the base
// locale catalog template registered for code.
func WithMetadata(code Code, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  Render(code, metadata),
		Metadata: metadata,
	}
}

// WrapWithMetadata creates a templated error that also wraps a cause.
func WrapWithMetadata(code Code, metadata map[string]string, cause error) *Error {
	err := WithMetadata(code, metadata)
	err.Cause = cause
	return err
}

// Render formats the catalog template for code. Unknown codes render as a
// stable "code: key=value" line so nothing is silently dropped.
func Render(code Code, metadata map[string]string) string {
	message := i18n.GetCatalog(i18n.BaseLocale).Format(string(code), metadata)
	if message != string(code) {
		return message
	}
	if len(metadata) == 0 {
		return message
	}
	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+metadata[key])
	}
	return message + ": " + strings.Join(parts, " ")
}

// CodeOf returns the taxonomy code of the first *Error in err's chain.
func CodeOf(err error) (Code, bool) {
	var target *Error
	if stderrors.As(err, &target) {
		return target.Code, true
	}
	return "", false
}

// HasCode reports whether err's chain contains an *Error with code.
func HasCode(err error, code Code) bool {
	return stderrors.Is(err, &Error{Code: code})
}
