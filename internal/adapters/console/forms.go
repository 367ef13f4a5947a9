package console

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

type registrationForm struct {
	ID      string `validate:"required,max=64,printable"`
	Name    string `validate:"required,max=128,printable"`
	Address string `validate:"max=256,printable"`
}

var (
	errRequired     = errors.New("is required")
	errTooLong      = errors.New("is too long")
	errNotPrintable = errors.New("must not contain control characters")
)

var formErrors = map[string]error{
	"required":  errRequired,
	"max":       errTooLong,
	"printable": errNotPrintable,
}

// printableValidator rejects control characters, which would break the
// line-oriented menu output.
var printableValidator = func(fl validator.FieldLevel) bool {
	return strings.IndexFunc(fl.Field().String(), unicode.IsControl) < 0
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("printable", printableValidator)
	return v
}

// describe turns validator errors into one human-readable line.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.ToLower(e.Field())
		if cause, ok := formErrors[e.Tag()]; ok {
			msgs = append(msgs, fmt.Sprintf("%s %v", field, cause))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
	}
	return strings.Join(msgs, "; ")
}
