package llmerr_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harborwave/llmkit/pkg/llmerr"
)

func TestFromHTTPStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		want   llmerr.Kind
	}{
		{401, llmerr.KindAuthentication},
		{403, llmerr.KindAuthentication},
		{429, llmerr.KindRateLimit},
		{408, llmerr.KindTimeout},
		{400, llmerr.KindInvalidRequest},
		{404, llmerr.KindInvalidRequest},
		{500, llmerr.KindServerError},
		{503, llmerr.KindServerError},
	}
	for _, c := range cases {
		e := llmerr.FromHTTPStatus("anthropic", c.status, "", "boom")
		assert.Equal(t, c.want, e.Kind, "status %d", c.status)
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, llmerr.IsRetryable(llmerr.New(llmerr.KindNetwork, "p", "x", nil)))
	assert.True(t, llmerr.IsRetryable(llmerr.New(llmerr.KindRateLimit, "p", "x", nil)))
	assert.True(t, llmerr.IsRetryable(llmerr.New(llmerr.KindServerError, "p", "x", nil)))
	assert.True(t, llmerr.IsRetryable(llmerr.New(llmerr.KindTimeout, "p", "x", nil)))
	assert.False(t, llmerr.IsRetryable(llmerr.New(llmerr.KindAuthentication, "p", "x", nil)))
	assert.False(t, llmerr.IsRetryable(llmerr.New(llmerr.KindInvalidRequest, "p", "x", nil)))
	assert.False(t, llmerr.IsRetryable(llmerr.New(llmerr.KindParsing, "p", "x", nil)))
	assert.False(t, llmerr.IsRetryable(llmerr.New(llmerr.KindCancelled, "p", "x", nil)))
}

func TestFromContext(t *testing.T) {
	e := llmerr.FromContext("openai", context.Canceled)
	assert.Equal(t, llmerr.KindCancelled, e.Kind)

	e = llmerr.FromContext("openai", context.DeadlineExceeded)
	assert.Equal(t, llmerr.KindTimeout, e.Kind)
}

func TestWithRetryAfter(t *testing.T) {
	e := llmerr.New(llmerr.KindRateLimit, "p", "slow down", nil).WithRetryAfter(30)
	if assert.NotNil(t, e.RetryAfterSeconds) {
		assert.Equal(t, 30, *e.RetryAfterSeconds)
	}
}
