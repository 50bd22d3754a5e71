package address

import (
	"errors"
	"fmt"
	"strings"

	"github.com/TechnoExperience/texnewweb-sub000/internal/utils"

	"github.com/go-playground/validator/v10"
)

var ErrIncomplete = errors.New("address is incomplete")

// FieldError names one missing field using its JSON name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every missing required field. It matches ErrIncomplete with errors.Is.
type ValidationError struct {
	Prefix string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return fmt.Sprintf("%s address: missing %s", e.Prefix, strings.Join(names, ", "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrIncomplete }

// Validate checks first_name, last_name, address_line_1, city, postal_code and country.
// prefix ("shipping" or "billing") is prepended to field names.
func (a Address) Validate(prefix string) error {
	err := utils.ValidateStruct(a)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if prefix != "" {
			field = prefix + "." + field
		}
		fields = append(fields, FieldError{Field: field, Message: "required"})
	}
	return &ValidationError{Prefix: prefix, Fields: fields}
}
