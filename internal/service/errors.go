package service

import "fmt"

const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeValidation      = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeHasDependents   = "HAS_DEPENDENTS"
)

// BusinessError is the service-level failure taxonomy. Handlers map Code
// to an HTTP status; Details travel into the error envelope.
type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func NewNotFound(resource string) *BusinessError {
	return &BusinessError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

func NewValidation(fields map[string]string) *BusinessError {
	details := make(map[string]any, len(fields))
	for field, reason := range fields {
		details[field] = reason
	}
	return &BusinessError{
		Code:    CodeValidation,
		Message: "validation failed",
		Details: details,
	}
}

func NewFieldValidation(field, reason string) *BusinessError {
	return NewValidation(map[string]string{field: reason})
}

// NewHasDependents signals a refused category deletion; task_count lets
// the caller offer a forced variant.
func NewHasDependents(count int) *BusinessError {
	return &BusinessError{
		Code:    CodeHasDependents,
		Message: "category has associated tasks",
		Details: map[string]any{"task_count": count},
	}
}
