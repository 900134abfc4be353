package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestBearer(t *testing.T) {
	tests := map[string]string{
		"Token abc":   "abc",
		"Bearer abc":  "abc",
		"bearer  abc": "abc",
		"Basic abc":   "",
		"abc":         "",
		"":            "",
	}

	for header, want := range tests {
		require.Equal(t, want, bearer(header), header)
	}
}

func TestRetryAfter(t *testing.T) {
	require.Equal(t, 2, retryAfter(rate.Limit(0.5)))
	require.Equal(t, 1, retryAfter(rate.Limit(10)))
	require.Equal(t, 4, retryAfter(rate.Limit(0.3)))
	require.Equal(t, 1, retryAfter(0))
}

func TestIPLimiter(t *testing.T) {
	l := newIPLimiter(rate.Limit(0.001), 1)
	defer l.Stop()

	require.True(t, l.Allow("10.0.0.1"))
	require.False(t, l.Allow("10.0.0.1"))
	require.True(t, l.Allow("10.0.0.2"))

	l.cleanup(time.Now().Add(3 * limiterCleanup))
	require.True(t, l.Allow("10.0.0.1"))
}
