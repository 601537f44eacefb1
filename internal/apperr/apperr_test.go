package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Unauthenticated("unauthenticated"), http.StatusUnauthorized},
		{Forbidden("forbidden"), http.StatusForbidden},
		{NotFound("speaker not found"), http.StatusNotFound},
		{Validation("add contact info first"), http.StatusBadRequest},
		{New(KindConflict, "busy"), http.StatusConflict},
		{Upstream("ai unavailable", errors.New("timeout")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestWrappedSentinelKeepsKind(t *testing.T) {
	sentinel := New(KindNotFound, "identity not found")
	err := fmt.Errorf("identity: remove: %w", sentinel)

	assert.True(t, errors.Is(err, sentinel))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "identity not found", PublicMessage(err))
}

func TestPublicMessageHidesInternal(t *testing.T) {
	err := fmt.Errorf("postgres: %w", errors.New("connection refused"))
	assert.Equal(t, "internal error", PublicMessage(err))
	assert.False(t, Is(nil, KindInternal))
}
