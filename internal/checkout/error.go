package checkout

import (
	"fmt"

	"github.com/TechnoExperience/texnewweb-sub000/internal/address"
)

type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindConflict    ErrorKind = "conflict"
	KindPersistence ErrorKind = "persistence"
	KindPayment     ErrorKind = "payment"
)

// Error is the single user-facing failure of a checkout submit. Message is safe to show;
// Err keeps the cause for logs.
type Error struct {
	Kind    ErrorKind            `json:"kind"`
	Message string               `json:"message"`
	Fields  []address.FieldError `json:"fields,omitempty"`
	Err     error                `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("checkout %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("checkout %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }
