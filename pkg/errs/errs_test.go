package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("bad"), KindValidation},
		{"auth", Auth("nope"), KindAuth},
		{"forbidden", Forbidden("no"), KindForbidden},
		{"not found", NotFound("gone"), KindNotFound},
		{"wrapped", fmt.Errorf("ctx: %w", NotFound("gone")), KindNotFound},
		{"untyped", errors.New("boom"), KindInternal},
		{"internal", Internal("store failed", errors.New("io")), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "Rating must be between 1 and 5", MessageOf(Validation("Rating must be between 1 and 5")))
	assert.Equal(t, "Internal server error", MessageOf(Internal("failed to insert order", errors.New("socket closed"))))
	assert.Equal(t, "Internal server error", MessageOf(errors.New("raw driver error")))
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("socket closed")
	err := Internal("failed to load cart", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load cart: socket closed", err.Error())
	assert.True(t, Is(err, KindInternal))
	assert.False(t, Is(nil, KindInternal))
}
