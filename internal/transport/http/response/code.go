package response

import (
	"errors"
	"net/http"

	"content-api/internal/domain"
)

// Status maps an error from the layers below onto an HTTP status code.
func Status(err error) int {
	var (
		partial *domain.PartialDeleteError
		se      interface{ StatusCode() int }
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &se):
		return se.StatusCode()
	case errors.As(err, &partial):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
