// Package validation checks request payloads against their `validate` struct
// tags using a single shared go-playground validator.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var ErrValidatorInit = errors.New("validator initialization failed")

// Error describes the first field that failed validation. Field is the JSON
// name of the field.
type Error struct {
	Field string
	Tag   string
	Param string
}

var messages = map[string]func(field, param string) string{
	"required": func(field, _ string) string {
		return field + " is required"
	},
	"email": func(field, _ string) string {
		return field + " must be a valid email"
	},
	"max": func(field, param string) string {
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	},
	"len": func(field, param string) string {
		return fmt.Sprintf("%s must be %s characters long", field, param)
	},
	"oneof": func(field, param string) string {
		return fmt.Sprintf("%s must be one of [%s]", field, param)
	},
	"positive_amount": func(field, _ string) string {
		return field + " must be a positive amount"
	},
}

func (e *Error) Error() string {
	if msg, ok := messages[e.Tag]; ok {
		return msg(e.Field, e.Param)
	}
	return fmt.Sprintf("%s failed %s check", e.Field, e.Tag)
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
	errValidate  error
)

func initValidator() (*validator.Validate, error) {
	vld := validator.New(validator.WithRequiredStructEnabled())

	vld.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	// balance.Amount and other float kinds
	if err := vld.RegisterValidation("positive_amount", func(fl validator.FieldLevel) bool {
		switch fl.Field().Kind() {
		case reflect.Float32, reflect.Float64:
			return fl.Field().Float() > 0
		case reflect.Int, reflect.Int32, reflect.Int64:
			return fl.Field().Int() > 0
		default:
			return false
		}
	}); err != nil {
		return nil, fmt.Errorf("%w: registering positive_amount: %w", ErrValidatorInit, err)
	}

	return vld, nil
}

func get() (*validator.Validate, error) {
	validateOnce.Do(func() {
		validate, errValidate = initValidator()
	})
	return validate, errValidate
}

// Struct validates payload and returns an *Error for the first failing field.
func Struct(payload any) error {
	vld, err := get()
	if err != nil {
		return err
	}

	if err := vld.Struct(payload); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &Error{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()}
		}
		return err
	}
	return nil
}

// Email reports whether s is a well-formed email address.
func Email(s string) bool {
	vld, err := get()
	if err != nil {
		return false
	}
	return vld.Var(s, "required,email") == nil
}
