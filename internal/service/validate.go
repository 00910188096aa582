package service

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/nhanzalone1/echo-app-sub000/internal/schedule"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	err := v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := schedule.ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
	if err != nil {
		panic("service: register hhmm validation: " + err.Error())
	}
	return v
}

// ErrValidation marks request errors that map to 400.
var ErrValidation = errors.New("validation failed")

type validationError struct {
	err error
}

func (e *validationError) Error() string { return e.err.Error() }

func (e *validationError) Is(target error) bool { return target == ErrValidation }

func (e *validationError) Unwrap() error { return e.err }

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return &validationError{err: err}
}

func validateStruct(v interface{}) error {
	return invalid(validate.Struct(v))
}
