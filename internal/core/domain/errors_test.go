package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrAlreadyExists", ErrAlreadyExists},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrBackendUnavailable", ErrBackendUnavailable},
		{"ErrExtractionFailed", ErrExtractionFailed},
		{"ErrNoElements", ErrNoElements},
		{"ErrInvalidTransition", ErrInvalidTransition},
		{"ErrStatusConflict", ErrStatusConflict},
		{"ErrIntegrity", ErrIntegrity},
		{"ErrHashCollision", ErrHashCollision},
		{"ErrTransientStore", ErrTransientStore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

// TestErrNotFound tests ErrNotFound error
func TestErrNotFound(t *testing.T) {
	assert.Equal(t, "not found", ErrNotFound.Error())
	assert.True(t, errors.Is(ErrNotFound, ErrNotFound))
	assert.False(t, errors.Is(ErrNotFound, ErrAlreadyExists))
}

func TestErrors_WrappedMatch(t *testing.T) {
	err := fmt.Errorf("get file abc: %w", ErrNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrInvalidInput)
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"integrity", fmt.Errorf("insert: %w", ErrIntegrity), true},
		{"collision", fmt.Errorf("put: %w", ErrHashCollision), true},
		{"transient", fmt.Errorf("put: %w", ErrTransientStore), false},
		{"not found", ErrNotFound, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
		})
	}
}
