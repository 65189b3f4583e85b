package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("direct error", func(t *testing.T) {
		err := New(CodeNotFound, "business not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("wrapped by fmt keeps code", func(t *testing.T) {
		err := fmt.Errorf("loading: %w", New(CodeForbidden, "outside jurisdiction"))
		assert.True(t, HasCode(err, CodeForbidden))
	})

	t.Run("plain error has no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
	})
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeInternal, "failed to list collections")

	require.ErrorIs(t, err, cause)
	assert.True(t, Is(err, CodeInternal))
	assert.Contains(t, err.Error(), "connection reset")
	assert.Nil(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestErrorIsMatchesCodeAndMessage(t *testing.T) {
	err := New(CodeUnauthorized, "invalid token")
	require.ErrorIs(t, err, New(CodeUnauthorized, "invalid token"))
	assert.NotErrorIs(t, err, New(CodeUnauthorized, "token has expired"))
}

func TestInvariantToValidation(t *testing.T) {
	err := InvariantToValidation(New(CodeInvariantViolation, "amount must be positive"))
	assert.True(t, HasCode(err, CodeValidation))
	assert.Contains(t, err.Error(), "amount must be positive")

	other := New(CodeConflict, "duplicate")
	assert.Equal(t, other, InvariantToValidation(other))
	assert.Nil(t, InvariantToValidation(nil))
}
