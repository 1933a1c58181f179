package httpserver

import (
	"errors"
	"net/http"

	"github.com/Skotchmaster/car_catalog/internal/service"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrMissingToken),
		errors.Is(err, service.ErrInvalidRefreshToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
