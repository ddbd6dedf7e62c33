package validation

import (
	"fmt"
	"strings"
)

// FieldError is one rejected field with a machine-readable code.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Errors collects all rejected fields of a submission. It is returned before
// any sequence allocation or persistence happens, so callers can correct the
// input and retry freely.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e))
	for _, fieldErr := range e {
		parts = append(parts, fmt.Sprintf("%s (%s)", fieldErr.Field, fieldErr.Code))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}
