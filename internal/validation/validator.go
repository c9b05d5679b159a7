// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// CodeValidationError is the API error code for every validation failure.
const CodeValidationError = "VALIDATION_ERROR"

// identifierPattern matches user, appointment and room identifiers as issued
// by the booking API (ObjectIDs, UUIDs and slugs).
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._@-]{0,127}$`)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is a single failed rule.
type FieldError struct {
	field   string
	tag     string
	param   string
	value   interface{}
	message string
}

// Field returns the JSON name of the field that failed.
func (e *FieldError) Field() string { return e.field }

// Tag returns the rule that failed.
func (e *FieldError) Tag() string { return e.tag }

// Param returns the rule parameter, e.g. "128" for max=128.
func (e *FieldError) Param() string { return e.param }

// Value returns the rejected value.
func (e *FieldError) Value() interface{} { return e.value }

func (e *FieldError) Error() string { return e.message }

// RequestValidationError collects every failed rule of one request.
type RequestValidationError struct {
	errors []FieldError
}

// Errors returns the individual failures.
func (ve *RequestValidationError) Errors() []FieldError {
	return ve.errors
}

func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(ve.errors))
	for i := range ve.errors {
		messages[i] = ve.errors[i].message
	}
	return strings.Join(messages, "; ")
}

// APIError is the code/message/details triple the HTTP layer renders.
type APIError struct {
	Code    string
	Message string
	Details map[string]interface{}
}

// ToAPIError converts the failures into a VALIDATION_ERROR response body.
func (ve *RequestValidationError) ToAPIError() *APIError {
	switch len(ve.errors) {
	case 0:
		return &APIError{Code: CodeValidationError, Message: "Validation failed"}
	case 1:
		fe := ve.errors[0]
		return &APIError{
			Code:    CodeValidationError,
			Message: fe.message,
			Details: map[string]interface{}{"field": fe.field, "tag": fe.tag},
		}
	}

	fields := make([]map[string]interface{}, len(ve.errors))
	for i, fe := range ve.errors {
		fields[i] = map[string]interface{}{
			"field":   fe.field,
			"tag":     fe.tag,
			"message": fe.message,
		}
	}
	return &APIError{
		Code:    CodeValidationError,
		Message: ve.Error(),
		Details: map[string]interface{}{"fields": fields},
	}
}

// GetValidator returns the shared validator. Field errors are reported by
// their JSON names, and the identifier tag is registered.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
		_ = validate.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
			return identifierPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// ValidateStruct validates s and returns nil or a *RequestValidationError.
func ValidateStruct(s interface{}) *RequestValidationError {
	return convert(GetValidator().Struct(s), "")
}

// ValidateVar validates a single value, such as a path parameter, reporting
// failures under field.
func ValidateVar(value interface{}, tag, field string) *RequestValidationError {
	return convert(GetValidator().Var(value, tag), field)
}

// ValidateIdentifier checks a user or appointment id taken from a URL.
func ValidateIdentifier(value, field string) *RequestValidationError {
	return ValidateVar(value, "required,identifier", field)
}

func convert(err error, field string) *RequestValidationError {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{errors: []FieldError{{
			field:   "unknown",
			tag:     "unknown",
			message: err.Error(),
		}}}
	}

	out := make([]FieldError, len(validationErrs))
	for i, fe := range validationErrs {
		name := fe.Field()
		if field != "" {
			name = field
		}
		out[i] = FieldError{
			field:   name,
			tag:     fe.Tag(),
			param:   fe.Param(),
			value:   fe.Value(),
			message: translate(fe, name),
		}
	}
	return &RequestValidationError{errors: out}
}

var messageTemplates = map[string]string{
	"required":   "%s is required",
	"email":      "%s must be a valid email address",
	"uuid":       "%s must be a valid UUID",
	"identifier": "%s must be 1-128 letters, digits, '.', '_', '@' or '-'",
	"datetime":   "%s must be a valid date/time in RFC3339 format",
}

var paramTemplates = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
}

func translate(fe validator.FieldError, field string) string {
	tag, param := fe.Tag(), fe.Param()
	if tmpl, ok := messageTemplates[tag]; ok {
		return fmt.Sprintf(tmpl, field)
	}
	if tmpl, ok := paramTemplates[tag]; ok {
		return fmt.Sprintf(tmpl, field, param)
	}

	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch tag {
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", field, param, unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", field, param, unit)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}
