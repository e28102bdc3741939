package view

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rbac-console/rbac-console/internal/apiclient"
)

// GeneralError is the FormErrors key for messages not tied to a field.
const GeneralError = "general"

var localPhone = regexp.MustCompile(`^0\d{9}$`)

// FormErrors maps form field names to messages.
type FormErrors map[string]string

// NewValidator returns a validator reporting fields by their `form` tag so
// messages line up with input names and API field violations.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("localphone", func(fl validator.FieldLevel) bool {
		return localPhone.MatchString(fl.Field().String())
	})
	return v
}

// Validate runs v over form and collects the failures.
func Validate(v *validator.Validate, form any) FormErrors {
	errs := FormErrors{}
	err := v.Struct(form)
	if err == nil {
		return errs
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs[GeneralError] = err.Error()
		return errs
	}
	for _, fe := range fieldErrs {
		if _, ok := errs[fe.Field()]; ok {
			continue
		}
		errs[fe.Field()] = fieldMessage(fe)
	}
	return errs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Enter a valid email address"
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "localphone":
		return "Enter a 10 digit phone number starting with 0"
	case "email|localphone":
		return "Enter a valid email or phone number"
	case "eqfield":
		return "Does not match"
	case "oneof":
		return "Choose one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "Invalid value"
	}
}

// AddAPIError merges an API failure into errs. Field violations land on their
// fields; the message goes under GeneralError.
func (errs FormErrors) AddAPIError(err error) {
	if err == nil {
		return
	}
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		for field, msg := range apiErr.FieldErrors() {
			if _, ok := errs[field]; !ok {
				errs[field] = msg
			}
		}
	}
	errs[GeneralError] = apiclient.Message(err)
}

// IsFormError reports whether err belongs on the form rather than on an
// error page: validation failures and conflicts reported by the API.
func IsFormError(err error) bool {
	switch apiclient.Status(err) {
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return true
	}
	return false
}

// Any reports whether errs holds at least one message.
func (errs FormErrors) Any() bool {
	return len(errs) > 0
}
