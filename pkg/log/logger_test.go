package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug": DebugLevel,
		"INFO":  InfoLevel,
		"Warn":  WarnLevel,
		"error": ErrorLevel,
		"":      InfoLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestLevelGating(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithLevel(WarnLevel), WithOutput(&buf))

	l.Debug("hidden")
	l.Info("hidden too")
	l.Warn("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestWithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf)).With(Component("recorder"), Str("version", "version_3"))

	l.Info("flushed", Int("rows", 2))

	out := buf.String()
	assert.Contains(t, out, "component=recorder")
	assert.Contains(t, out, "version=version_3")
	assert.Contains(t, out, "rows=2")
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf), WithJSON())

	l.Info("hello", Str("k", "v"))

	line := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasPrefix(line, "{"), "expected JSON record, got %q", line)
	assert.Contains(t, line, `"k":"v"`)
}
