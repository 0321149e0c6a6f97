// internal/common/errors/errors_test.go
package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeliveryFailedError(t *testing.T) {
	t.Run("with cause", func(t *testing.T) {
		err := NewDeliveryFailedError("webhook", errors.New("conn refused"))
		assert.Equal(t, ErrCodeDeliveryFailed, err.Code)
		assert.Equal(t, "channel: webhook, error: conn refused", err.Details)
	})

	t.Run("without cause", func(t *testing.T) {
		// Boolean-outcome transports have no error value to attach.
		var err *StandardError
		require.NotPanics(t, func() {
			err = NewDeliveryFailedError("email", nil)
		})
		assert.Equal(t, ErrCodeDeliveryFailed, err.Code)
		assert.Equal(t, "channel: email", err.Details)
		assert.True(t, err.Retryable)
	})
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"token not found", NewTokenNotFoundError(), ErrCodeNotFound},
		{"already used", NewAlreadyUsedError(), ErrCodeAlreadyUsed},
		{"expired", NewExpiredError(), ErrCodeExpired},
		{"validation", NewValidationError("bad input"), ErrCodeValidation},
		{"wrapped", fmt.Errorf("handling request: %w", NewExpiredError()), ErrCodeExpired},
		{"plain error", errors.New("boom"), ErrCodeInternal},
		{"nil-adjacent plain", fmt.Errorf("outer: %w", errors.New("inner")), ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
			assert.True(t, IsCode(tt.err, tt.want))
		})
	}
}
