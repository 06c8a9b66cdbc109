package handler

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// ErrValidation marks request bodies rejected by the validator.
var ErrValidation = errors.New("validation failed")

// PartialValidator checks a body that only carries the fields a caller wants
// to change. Presence rules are skipped; format rules still apply to whatever
// was sent.
type PartialValidator interface {
	ValidatePartial(i any) error
}

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
// Field names in messages are the json names clients send.
type echoValidator struct {
	v *validator.Validate
}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
func NewValidator() *echoValidator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonName)
	return &echoValidator{v: v}
}

// Validate satisfies the echo.Validator interface.
func (ev *echoValidator) Validate(i any) error {
	return ev.check(i, func(validator.FieldError) bool { return true })
}

// ValidatePartial is Validate without the required rule.
func (ev *echoValidator) ValidatePartial(i any) error {
	return ev.check(i, func(fe validator.FieldError) bool { return fe.Tag() != "required" })
}

func (ev *echoValidator) check(i any, keep func(validator.FieldError) bool) error {
	err := ev.v.Struct(i)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	failed := lo.Filter(ve, func(fe validator.FieldError, _ int) bool { return keep(fe) })
	if len(failed) == 0 {
		return nil
	}
	msgs := lo.Map(failed, func(fe validator.FieldError, _ int) string { return fieldError(fe) })
	return errors.Mark(errors.Newf("%s", strings.Join(msgs, "; ")), ErrValidation)
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return strings.ToLower(f.Name)
	}
	return name
}

func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
