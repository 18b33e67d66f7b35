package logging

import (
	"bytes"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{" ERROR ", LevelError},
		{"", LevelInfo},
		{"bogus", LevelInfo},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseLevel(tc.input), "input %q", tc.input)
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelInfo)

	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger.Info("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLogger_TimeOnlyTimestamps(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelInfo)

	logger.Info("stamped")
	out := buf.String()
	assert.Regexp(t, regexp.MustCompile(`\d{2}:\d{2}:\d{2}`), out)
	assert.NotRegexp(t, regexp.MustCompile(`\d{4}[-/]\d{2}`), out, "no date component expected")
}

func TestWriter_SplitsLines(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	w := NewWriter(logger, "docker compose")

	n, err := w.Write([]byte("first line\nsecond line\r\n\n"))
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	out := buf.String()
	assert.Contains(t, out, "first line")
	assert.Contains(t, out, "second line")
	assert.Contains(t, out, "docker compose")
}

func TestWriter_NilLogger(t *testing.T) {
	w := NewWriter(nil, "git")
	n, err := w.Write([]byte("ignored\n"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}
