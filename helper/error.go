package helper

import "fmt"

// Error wraps an underlying error with the operation that failed
type Error struct {
	Operation string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("error in %v: %v", e.Operation, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with the name of the failing operation
func NewError(operation string, err error) error {
	return &Error{Operation: operation, Err: err}
}
