package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTTLSeconds(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"30s", 30},
		{"15m", 900},
		{"2h", 7200},
		{"7d", 604800},
		{"900", 900},   // bare number is seconds
		{"45", 45},     // bare number is seconds
		{"10w", 900},   // unknown unit falls back
		{"", 900},      // empty falls back
		{"xyz", 900},   // garbage falls back
		{"-5m", 900},   // non-positive falls back
		{" 1h ", 3600}, // surrounding whitespace is tolerated
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseTTLSeconds(tc.in), "input %q", tc.in)
	}
}

func TestFailModeNormalization(t *testing.T) {
	assert.Equal(t, FailOpen, failMode("open"))
	assert.Equal(t, FailOpen, failMode("OPEN"))
	assert.Equal(t, FailClosed, failMode("closed"))
	assert.Equal(t, FailClosed, failMode(""))
	assert.Equal(t, FailClosed, failMode("whatever"))
}
