package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"servicesync-server/services"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.ErrTokenAbsent, http.StatusUnauthorized},
		{fmt.Errorf("%w: expired", services.ErrTokenInvalid), http.StatusUnauthorized},
		{services.ErrSessionExpired, http.StatusBadRequest},
		{services.ErrValidation, http.StatusBadRequest},
		{services.ErrInvalidLogin, http.StatusBadRequest},
		{fmt.Errorf("%w: nope", services.ErrForbidden), http.StatusForbidden},
		{services.ErrNotFound, http.StatusNotFound},
		{services.ErrInvalidTransition, http.StatusConflict},
		{services.ErrInvalidState, http.StatusConflict},
		{services.ErrConflict, http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range cases {
		if got := StatusFor(tt.err); got != tt.want {
			t.Fatalf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
