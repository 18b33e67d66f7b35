package logging

import (
	"log/slog"
	"strings"
)

// Writer is an io.Writer that forwards subprocess output to slog line by line.
// It is attached to the stdout/stderr of external commands (git, docker) so
// their output shows up in the structured log instead of raw on the terminal.
type Writer struct {
	logger *slog.Logger
	source string
}

// NewWriter constructs a Writer bound to the provided logger. The source tag
// names the command whose output is being forwarded.
func NewWriter(logger *slog.Logger, source string) *Writer {
	return &Writer{logger: logger, source: source}
}

// Write logs each non-empty line of p at info level.
func (w *Writer) Write(p []byte) (int, error) {
	if w.logger != nil {
		for _, line := range strings.Split(string(p), "\n") {
			line = strings.TrimRight(line, "\r")
			if line == "" {
				continue
			}
			w.logger.Info(line, "source", w.source)
		}
	}
	return len(p), nil
}
