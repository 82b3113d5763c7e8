package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := &AppError{
		Message: "something went wrong",
	}
	assert.Equal(t, "something went wrong", err.Error())

	wrappedErr := errors.New("underlying error")
	errWithWrap := &AppError{
		Message: "failed operation",
		Err:     wrappedErr,
	}
	assert.Equal(t, "failed operation: underlying error", errWithWrap.Error())
	assert.ErrorIs(t, errWithWrap, wrappedErr)
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantKind   Kind
		wantStatus int
	}{
		{
			name:       "invalid input maps to 400",
			err:        NewInvalidInputError("bad content type"),
			wantKind:   KindInvalidInput,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not available maps to 503",
			err:        NewNotAvailableError("no engine"),
			wantKind:   KindNotAvailable,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "timeout maps to 500",
			err:        NewTimeoutError("engine timed out", nil),
			wantKind:   KindTimeout,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "backend error maps to 500",
			err:        NewBackendError("engine returned 502", nil),
			wantKind:   KindBackendError,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "unknown maps to 500",
			err:        NewUnknownError("panic recovered", nil),
			wantKind:   KindUnknown,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantKind, tt.err.Kind)
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
		})
	}
}

func TestFrom(t *testing.T) {
	t.Run("app error passes through", func(t *testing.T) {
		orig := NewBackendError("engine failed", nil)
		assert.Same(t, orig, From(orig))
	})

	t.Run("wrapped app error is unwrapped", func(t *testing.T) {
		orig := NewBackendError("engine failed", nil)
		wrapped := fmt.Errorf("invoking engine: %w", orig)
		assert.Same(t, orig, From(wrapped))
	})

	t.Run("deadline exceeded becomes timeout", func(t *testing.T) {
		got := From(context.DeadlineExceeded)
		assert.Equal(t, KindTimeout, got.Kind)
	})

	t.Run("plain error becomes unknown", func(t *testing.T) {
		got := From(errors.New("boom"))
		assert.Equal(t, KindUnknown, got.Kind)
		assert.Equal(t, "boom", got.Message)
	})
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("x")))
	assert.Equal(t, KindTimeout, KindOf(NewTimeoutError("t", nil)))
}
