// Package validation checks raw form input before any side effect happens.
// It performs no I/O and is safe for concurrent use.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Registration is a validated registration form.
type Registration struct {
	Name     string `form:"name" validate:"required,min=3,max=255"`
	Email    string `form:"email" validate:"required,max=255,email"`
	Password string `form:"password" validate:"required,min=8"`
}

// Credentials is a sign-in form. Only presence is checked; the provider decides validity.
type Credentials struct {
	Email    string `form:"email" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// FieldErrors maps a form field to its human readable messages.
type FieldErrors struct {
	Fields map[string][]string `json:"errors"`
}

func (e *FieldErrors) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid fields: " + strings.Join(names, ", ")
}

// Has reports whether field has at least one message.
func (e *FieldErrors) Has(field string) bool {
	return len(e.Fields[field]) > 0
}

func (e *FieldErrors) add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

var labels = map[string]string{
	"name":     "Name",
	"email":    "Email",
	"password": "Password",
}

// Validator wraps a configured go-playground validator.
type Validator struct {
	validate *validator.Validate
}

// New builds a Validator that reports fields by their form names.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Struct validates a tagged struct. It satisfies echo.Validator.
func (v *Validator) Struct(i interface{}) error {
	return v.validate.Struct(i)
}

// ValidateRegistration checks name, email and password. Unknown fields are ignored.
func (v *Validator) ValidateRegistration(form map[string]string) (Registration, *FieldErrors) {
	in := Registration{
		Name:     strings.TrimSpace(form["name"]),
		Email:    NormalizeEmail(form["email"]),
		Password: form["password"],
	}
	if fe := v.check(in); fe != nil {
		return Registration{}, fe
	}
	return in, nil
}

// ValidateCredentials checks that email and password are present.
func (v *Validator) ValidateCredentials(form map[string]string) (Credentials, *FieldErrors) {
	in := Credentials{
		Email:    NormalizeEmail(form["email"]),
		Password: form["password"],
	}
	if fe := v.check(in); fe != nil {
		return Credentials{}, fe
	}
	return in, nil
}

func (v *Validator) check(in interface{}) *FieldErrors {
	err := v.validate.Struct(in)
	if err == nil {
		return nil
	}

	fe := &FieldErrors{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fe.add("_", err.Error())
		return fe
	}
	for _, e := range verrs {
		fe.add(e.Field(), message(e))
	}
	return fe
}

func message(e validator.FieldError) string {
	label, ok := labels[e.Field()]
	if !ok {
		label = e.Field()
	}
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "min":
		return fmt.Sprintf("%s must contain at least %s characters", label, e.Param())
	case "max":
		return fmt.Sprintf("%s must contain at most %s characters", label, e.Param())
	case "email":
		return "Enter a valid email address"
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}

// NormalizeEmail trims and lowercases an address so lookups match registration.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
