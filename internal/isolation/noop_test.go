package isolation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopBackend_AlwaysAvailable(t *testing.T) {
	assert.True(t, NewNoopBackend(nil).Available())
}

func TestNoopBackend_Execute_Success(t *testing.T) {
	b := NewNoopBackend(nil)
	cfg := NewSandboxConfig("ok")

	result, err := b.Execute(context.Background(), cfg, []string{"true"})
	require.NoError(t, err)
	assert.True(t, result.Success())
}

func TestNoopBackend_Execute_Timeout(t *testing.T) {
	b := NewNoopBackend(nil)
	cfg := NewSandboxConfig("slow")
	cfg.Limits.Timeout = 100 * time.Millisecond

	_, err := b.Execute(context.Background(), cfg, []string{"sleep", "10"})
	require.Error(t, err)

	var isoErr *Error
	require.True(t, errors.As(err, &isoErr))
	assert.Equal(t, Timeout, isoErr.Kind)
	assert.Equal(t, 100*time.Millisecond, isoErr.Duration)
}

func TestNoopBackend_Execute_NonZeroExit(t *testing.T) {
	b := NewNoopBackend(nil)
	cfg := NewSandboxConfig("fail")

	result, err := b.Execute(context.Background(), cfg, []string{"false"})
	require.NoError(t, err)
	assert.False(t, result.Success())
	assert.NotEqual(t, 0, result.ExitCode)
}
