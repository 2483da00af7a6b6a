package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryable(t *testing.T) {
	cases := []struct {
		kind Kind
		want bool
	}{
		{KindAuth, false},
		{KindRateLimited, true},
		{KindTimeout, true},
		{KindUnavailable, true},
		{KindMalformedOutput, false},
	}
	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			err := NewError(tc.kind, "openai", errors.New("boom"))
			assert.Equal(t, tc.want, Retryable(err))
		})
	}

	assert.False(t, Retryable(errors.New("plain")))
	assert.False(t, Retryable(nil))
}

func TestRetryableWrapped(t *testing.T) {
	inner := NewError(KindRateLimited, "anthropic", errors.New("429"))
	wrapped := fmt.Errorf("processing turn: %w", inner)
	assert.True(t, Retryable(wrapped))

	kind, ok := KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindRateLimited, kind)
}

func TestKindOfPlainError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestClassifyStatus(t *testing.T) {
	assert.Equal(t, KindAuth, classifyStatus(401))
	assert.Equal(t, KindAuth, classifyStatus(403))
	assert.Equal(t, KindRateLimited, classifyStatus(429))
	assert.Equal(t, KindTimeout, classifyStatus(408))
	assert.Equal(t, KindUnavailable, classifyStatus(500))
	assert.Equal(t, KindUnavailable, classifyStatus(503))
	assert.Equal(t, KindUnavailable, classifyStatus(404))
}

func TestClassifyTransport(t *testing.T) {
	err := classifyTransport("local_api", context.DeadlineExceeded)
	assert.Equal(t, KindTimeout, err.Kind)

	err = classifyTransport("local_api", context.Canceled)
	assert.Equal(t, KindTimeout, err.Kind)

	err = classifyTransport("local_api", errors.New("connection refused"))
	assert.Equal(t, KindUnavailable, err.Kind)
}

func TestErrorMessageIncludesProviderAndKind(t *testing.T) {
	err := NewError(KindAuth, "openai", errors.New("bad key"))
	assert.Contains(t, err.Error(), "openai")
	assert.Contains(t, err.Error(), "auth")
	assert.ErrorContains(t, err, "bad key")
}

func TestConfigErrorMessage(t *testing.T) {
	err := &ConfigError{Provider: "anthropic", Field: "api_key", Reason: "must not be empty"}
	assert.Contains(t, err.Error(), "anthropic")
	assert.Contains(t, err.Error(), "api_key")
}
