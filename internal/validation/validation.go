// Package validation turns struct tag failures and hand-written checks into
// one error type with per-field details keyed by JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// Error is returned by every domain constructor that rejects its input.
type Error struct {
	Fields []FieldError `json:"fields"`
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field builds a FieldError with the standard message for rule.
func Field(field, rule, param string) FieldError {
	return FieldError{
		Field:   field,
		Rule:    rule,
		Param:   param,
		Message: Message(rule, param),
	}
}

// New wraps fields into an *Error, or returns nil when there are none.
func New(fields ...FieldError) error {
	if len(fields) == 0 {
		return nil
	}
	return &Error{Fields: fields}
}

// As reports whether err carries validation details.
func As(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

var (
	once     sync.Once
	instance *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		UseJSONNames(v)
		instance = v
	})
	return instance
}

// UseJSONNames makes v report fields by their json tag name.
func UseJSONNames(v *validator.Validate) {
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return sf.Name
		}
		return name
	})
}

// Struct runs the validate tags of v. The returned error, if any, is an
// *Error.
func Struct(v any) error {
	err := engine().Struct(v)
	if err == nil {
		return nil
	}
	return FromValidator(err)
}

// FromValidator converts validator.ValidationErrors into an *Error. Any other
// error is returned unchanged.
func FromValidator(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}

	fields := make([]FieldError, 0, len(ves))
	for _, fe := range ves {
		fields = append(fields, Field(fe.Field(), fe.Tag(), fe.Param()))
	}
	return &Error{Fields: fields}
}

func Message(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "gt":
		return "must be greater than " + param
	case "len":
		return "must be exactly " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	case "range":
		return "must be between " + strings.ReplaceAll(param, " ", " and ")
	case "exists":
		return "refers to an unknown record"
	case "unique":
		return "is already taken"
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
