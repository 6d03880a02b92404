package errtranslator

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicatedKey occurs when there is a unique key constraint violation
	ErrDuplicatedKey = errors.New("duplicated key not allowed")
	// ErrNotNullViolation occurs when a NOT NULL constraint is violated
	ErrNotNullViolation = errors.New("not null constraint violated")
	// ErrForeignKeyViolated occurs when there is a foreign key constraint violation
	ErrForeignKeyViolated = errors.New("violates foreign key constraint")
)

type ErrTranslator interface {
	Translate(err error) error
}

// Error is a driver error classified under one of the sentinels. Both the
// sentinel and the driver error match errors.Is and errors.As.
type Error struct {
	Kind    error
	Code    interface{}
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v, code: %v, message: %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Cause}
}

func translated(kind error, code interface{}, message string, cause error) error {
	return &Error{Kind: kind, Code: code, Message: message, Cause: cause}
}
