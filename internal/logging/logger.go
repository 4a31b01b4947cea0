package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kingrea/savefile/internal/config"
)

// Logger appends JSON lines to .savefile/logs/savefile.log so failed
// renders can be inspected after the terminal scrolls away.
type Logger struct {
	file *os.File
	zl   zerolog.Logger
}

// New creates (or reuses) the log file for the current project directory.
// When console is non-nil every event is mirrored there in human form.
func New(projectDir string, console io.Writer) (*Logger, error) {
	logDir := filepath.Join(projectDir, config.Dir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, "savefile.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	var out io.Writer = f
	if console != nil {
		out = zerolog.MultiLevelWriter(f, zerolog.ConsoleWriter{Out: console, TimeFormat: time.Kitchen})
	}
	zl := zerolog.New(out).With().Timestamp().Logger()
	return &Logger{file: f, zl: zl}, nil
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Zerolog returns the structured logger. A nil Logger yields a no-op one.
func (l *Logger) Zerolog() zerolog.Logger {
	if l == nil || l.file == nil {
		return zerolog.Nop()
	}
	return l.zl
}

// Printf writes a single free-form info line.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.file == nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	l.zl.Info().Msg(strings.TrimRight(line, "\n"))
}
