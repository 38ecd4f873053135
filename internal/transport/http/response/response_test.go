package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"content-api/internal/domain"
)

type teapot struct{}

func (teapot) Error() string   { return "teapot" }
func (teapot) StatusCode() int { return http.StatusTeapot }

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", domain.Validationf("bad"), http.StatusBadRequest},
		{"not found", fmt.Errorf("wrapped: %w", domain.NotFoundf("x")), http.StatusNotFound},
		{"upload", domain.ErrUpload, http.StatusInternalServerError},
		{"store", domain.ErrStoreUnavailable, http.StatusInternalServerError},
		{"conflict", domain.Conflictf("user 1 is still referenced"), http.StatusConflict},
		{"partial", &domain.PartialDeleteError{Err: domain.NotFoundf("odd")}, http.StatusInternalServerError},
		{"compensation keeps primary", &domain.CompensationError{Err: domain.Validationf("dup"), Compensation: errors.New("x")}, http.StatusBadRequest},
		{"explicit", teapot{}, http.StatusTeapot},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}
