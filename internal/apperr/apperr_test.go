package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := NotFound("account %q", "9999")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrProtected)
	assert.Contains(t, err.Error(), `account "9999"`)

	wrapped := fmt.Errorf("resolving: %w", err)
	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.Equal(t, "NOT_FOUND", Code(wrapped))
}

func TestWithError(t *testing.T) {
	cause := errors.New("boom")
	err := ErrInvariant.WithError(cause)
	assert.ErrorIs(t, err, ErrInvariant)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "", Code(cause))
}
