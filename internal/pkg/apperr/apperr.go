// Package apperr holds error sentinels shared by the pipelines and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks caller mistakes. Handlers map it to 400.
var ErrInvalidInput = errors.New("invalid input")

// Invalid wraps ErrInvalidInput with a message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
