package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusCode(NotFound("user not found")))
	assert.Equal(t, http.StatusBadRequest, StatusCode(fmt.Errorf("wrapped: %w", BadRequest("bad"))))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("boom")))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("lookup: %w", NotFound("nope"))))
	assert.False(t, IsNotFound(BadRequest("bad")))
	assert.False(t, IsNotFound(nil))
}

func TestPublic(t *testing.T) {
	assert.Equal(t, "bad", Public(BadRequest("bad")))
	assert.Equal(t, "Internal server error", Public(errors.New("pq: connection refused")))
}
