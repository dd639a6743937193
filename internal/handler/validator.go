package handler

import (
	"github.com/go-playground/validator/v10"
)

// FormValidator adapts go-playground/validator to echo.Validator.
type FormValidator struct {
	v *validator.Validate
}

func NewFormValidator() *FormValidator {
	return &FormValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (fv *FormValidator) Validate(i interface{}) error {
	return fv.v.Struct(i)
}

// failedField returns the struct field and tag of the first validation
// failure, or empty strings when err is not a validation error.
func failedField(err error) (field, tag string) {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		return verrs[0].Field(), verrs[0].Tag()
	}
	return "", ""
}
