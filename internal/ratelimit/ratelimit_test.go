// file: internal/ratelimit/ratelimit_test.go
// version: 2.0.0
// guid: b31f3de0-b0bc-4cbf-8448-7309df38f7c0

package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewProviderLimiter_Defaults(t *testing.T) {
	t.Parallel()

	limiter := NewProviderLimiter(map[string]int{"a": 0, "b": 10}, 0)
	assert.Equal(t, 1, limiter.burst)
	assert.NotContains(t, limiter.perMinute, "a")
	assert.Equal(t, 10, limiter.perMinute["b"])
}

func TestProviderLimiter_Allow(t *testing.T) {
	t.Parallel()

	limiter := NewProviderLimiter(map[string]int{"google-books": 1}, 1)
	assert.True(t, limiter.Allow("google-books"))
	assert.False(t, limiter.Allow("google-books"))

	// Unconfigured providers have no bucket.
	for range 10 {
		assert.True(t, limiter.Allow("open-library"))
	}
}

func TestProviderLimiter_SetLimit(t *testing.T) {
	t.Parallel()

	limiter := NewProviderLimiter(nil, 1)
	limiter.SetLimit("p", 1)
	assert.True(t, limiter.Allow("p"))
	assert.False(t, limiter.Allow("p"))

	limiter.SetLimit("p", 0)
	assert.True(t, limiter.Allow("p"))
}

func TestProviderLimiter_Admit(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	enforce := NewProviderLimiter(map[string]int{"p": 1}, 1)
	assert.True(t, enforce.Admit(PolicyEnforce, "p", logger))
	assert.False(t, enforce.Admit(PolicyEnforce, "p", logger))
	assert.True(t, enforce.Admit(PolicyDisabled, "p", logger))

	logOnly := NewProviderLimiter(map[string]int{"p": 1}, 1)
	assert.True(t, logOnly.Admit(PolicyLogOnly, "p", logger))
	assert.True(t, logOnly.Admit(PolicyLogOnly, "p", logger))
	assert.Equal(t, 1, logs.FilterMessageSnippet("log-only").Len())

	var nilLimiter *ProviderLimiter
	assert.True(t, nilLimiter.Admit(PolicyEnforce, "p", nil))
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyEnforce, p)

	p, err = ParsePolicy("Log-Only")
	require.NoError(t, err)
	assert.Equal(t, PolicyLogOnly, p)

	_, err = ParsePolicy("sometimes")
	assert.Error(t, err)
}
