// Package validator adapts go-playground/validator to Echo's Validator
// interface so handlers can call c.Validate on bound request structs.
package validator

import (
	domainerrors "fitgate/internal/domain/errors"

	playground "github.com/go-playground/validator/v10"
)

// RequestValidator wraps a shared validator instance.
type RequestValidator struct {
	validate *playground.Validate
}

// New creates the validator used by the Echo server.
func New() *RequestValidator {
	return &RequestValidator{
		validate: playground.New(playground.WithRequiredStructEnabled()),
	}
}

// Validate checks the struct tags of a bound request and maps failures onto
// the validation taxonomy error so the central error handler renders them.
func (v *RequestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails(err.Error())
	}

	return nil
}
