package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	err := NotFound("missing")
	code, ok := CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, CodeNotFound, code)

	// Wrapped errors still carry their code.
	wrapped := fmt.Errorf("loading profile: %w", err)
	code, ok = CodeOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, CodeNotFound, code)

	_, ok = CodeOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestIs(t *testing.T) {
	err := DuplicateEdge("already connected")
	assert.True(t, Is(err, CodeDuplicateEdge))
	assert.False(t, Is(err, CodeNotFound))
	assert.False(t, Is(nil, CodeNotFound))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(CodeInvalidState, "bad transition", cause)
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "bad transition")
	assert.Contains(t, err.Error(), "root cause")
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{SelfReference("self"), http.StatusBadRequest},
		{InvalidState("state"), http.StatusBadRequest},
		{DuplicateEdge("dup"), http.StatusConflict},
		{NotAuthorized("auth"), http.StatusForbidden},
		{NotAParticipant("member"), http.StatusForbidden},
		{NotFound("missing"), http.StatusNotFound},
		{errors.New("unknown"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.status, HTTPStatus(tc.err))
	}
}
