package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetricFlags(t *testing.T) {
	metrics, err := parseMetricFlags([]string{"loss=0.25", "epoch=3", "done=true", "note=warmup"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"loss":  0.25,
		"epoch": int64(3),
		"done":  true,
		"note":  "warmup",
	}, metrics)
}

func TestParseMetricFlagsRejectsMalformed(t *testing.T) {
	_, err := parseMetricFlags([]string{"nodelimiter"})
	require.Error(t, err)
	_, err = parseMetricFlags([]string{"=5"})
	require.Error(t, err)
}

func TestParseScalarPrefersNumbers(t *testing.T) {
	assert.Equal(t, int64(7), parseScalar("7"))
	assert.Equal(t, 0.5, parseScalar("0.5"))
	assert.Equal(t, true, parseScalar("true"))
	assert.Equal(t, "abc", parseScalar("abc"))
}
