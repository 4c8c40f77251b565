package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	cases := map[error]int{
		New(ErrNotFound, "user not found"):            http.StatusNotFound,
		New(ErrConflict, "exists"):                    http.StatusBadRequest,
		New(ErrInvalidCredential, "bad otp"):          http.StatusBadRequest,
		fmt.Errorf("wrapped: %w", ErrValidation):      http.StatusBadRequest,
		New(ErrUnauthorized, "no token"):              http.StatusUnauthorized,
		New(ErrRateLimited, "slow down"):              http.StatusTooManyRequests,
		Wrap(ErrDelivery, "mail", errors.New("down")): http.StatusServiceUnavailable,
		errors.New("connection reset"):                http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, Status(err), err.Error())
	}
}

func TestDetailHidesCauses(t *testing.T) {
	err := Wrap(ErrInvalidCredential, "Invalid or expired refresh token", errors.New("token is expired"))
	assert.Equal(t, "Invalid or expired refresh token", Detail(err))
	assert.ErrorIs(t, err, ErrInvalidCredential)
	assert.Contains(t, err.Error(), "token is expired")

	assert.Equal(t, "internal server error", Detail(errors.New("pq: relation missing")))
}

func TestStatusPrefersOuterKind(t *testing.T) {
	inner := fmt.Errorf("account: %w", ErrNotFound)
	err := Wrap(ErrInvalidCredential, "Invalid or expired refresh token", inner)
	assert.Equal(t, http.StatusBadRequest, Status(err))
	assert.ErrorIs(t, err, ErrNotFound)
}
