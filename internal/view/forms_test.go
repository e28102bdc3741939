package view

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rbac-console/rbac-console/internal/apiclient"
)

type signupForm struct {
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,min=6"`
	ConfirmPassword string `form:"confirmPassword" validate:"required,eqfield=Password"`
	Status          string `form:"status" validate:"omitempty,oneof=active inactive"`
}

func TestValidateUsesFormNames(t *testing.T) {
	v := NewValidator()
	errs := Validate(v, signupForm{Email: "nope", Password: "123", ConfirmPassword: "321", Status: "gone"})

	assert.Equal(t, "Enter a valid email address", errs["email"])
	assert.Equal(t, "Must be at least 6 characters", errs["password"])
	assert.Equal(t, "Does not match", errs["confirmPassword"])
	assert.Equal(t, "Choose one of: active, inactive", errs["status"])
	assert.True(t, errs.Any())
}

func TestValidatePasses(t *testing.T) {
	errs := Validate(NewValidator(), signupForm{Email: "a@b.co", Password: "secret", ConfirmPassword: "secret"})
	assert.False(t, errs.Any())
}

func TestAddAPIErrorMergesViolations(t *testing.T) {
	errs := FormErrors{"email": "local message"}
	errs.AddAPIError(&apiclient.APIError{
		Status:  http.StatusBadRequest,
		Message: "Invalid request",
		Details: []apiclient.ErrorDetail{{
			Violations: []apiclient.FieldViolation{
				violation("email", "already taken"),
				violation("fullName", "too short"),
			},
		}},
	})

	assert.Equal(t, "local message", errs["email"])
	assert.Equal(t, "too short", errs["fullName"])
	assert.Equal(t, "Invalid request", errs[GeneralError])
}

func TestAddAPIErrorNil(t *testing.T) {
	errs := FormErrors{}
	errs.AddAPIError(nil)
	assert.False(t, errs.Any())
}

func violation(field, msg string) apiclient.FieldViolation {
	var v apiclient.FieldViolation
	v.Message = msg
	v.Field.Elements = append(v.Field.Elements, struct {
		FieldName string `json:"fieldName"`
	}{FieldName: field})
	return v
}

type loginLikeForm struct {
	EmailOrPhone string `form:"email" validate:"required,email|localphone"`
}

func TestValidateEmailOrPhone(t *testing.T) {
	v := NewValidator()
	assert.False(t, Validate(v, loginLikeForm{EmailOrPhone: "a@b.co"}).Any())
	assert.False(t, Validate(v, loginLikeForm{EmailOrPhone: "0912345678"}).Any())
	assert.Equal(t, "Enter a valid email or phone number", Validate(v, loginLikeForm{EmailOrPhone: "12345"})["email"])
}

func TestIsFormError(t *testing.T) {
	assert.True(t, IsFormError(&apiclient.APIError{Status: http.StatusBadRequest}))
	assert.True(t, IsFormError(&apiclient.APIError{Status: http.StatusConflict}))
	assert.False(t, IsFormError(&apiclient.APIError{Status: http.StatusInternalServerError}))
	assert.False(t, IsFormError(nil))
}
