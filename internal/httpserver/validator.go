package httpserver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{v: validator.New()}
}

func (cv *Validator) Validate(i any) error {
	return cv.v.Struct(i)
}

// validationMessage turns validator errors into one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid body"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fieldName(fe.Field())))
		case "max":
			parts = append(parts, fmt.Sprintf("%s is too long", fieldName(fe.Field())))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", fieldName(fe.Field())))
		}
	}
	return strings.Join(parts, ", ")
}

func fieldName(f string) string {
	switch f {
	case "LicensePlate":
		return "license_plate"
	default:
		return strings.ToLower(f)
	}
}
