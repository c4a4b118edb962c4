package apierr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRetryableClassification(t *testing.T) {
	cases := []struct {
		status    int
		retryable bool
	}{
		{400, false},
		{401, false},
		{404, false},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tc := range cases {
		err := New("llm", tc.status, errors.New("boom"))
		assert.Equal(t, tc.retryable, err.Retryable, "status %d", tc.status)
	}
}

func TestIsRetryableThroughWrapping(t *testing.T) {
	inner := Network("embedding", errors.New("connection reset"))
	wrapped := fmt.Errorf("failed to create query embedding: %w", inner)

	assert.True(t, IsRetryable(wrapped))
	assert.False(t, IsRetryable(errors.New("plain error")))
	assert.False(t, IsRetryable(fmt.Errorf("wrap: %w", New("llm", 400, errors.New("bad request")))))
}
