// Package logging builds the zerolog loggers used across surge.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// FieldComponent tags sub-loggers with the subsystem that wrote the line.
const FieldComponent = "component"

// Options configures New.
type Options struct {
	Level  string
	Format string
	// Output receives human or JSON lines. Defaults to stderr.
	Output io.Writer
	// NoColor disables ANSI colors in console format.
	NoColor bool
	// FilePath, when set, receives an additional JSON copy of every line.
	FilePath string
}

// Logger is a zerolog logger plus the file it may own.
type Logger struct {
	zerolog.Logger
	file *os.File
}

// New creates a logger from opts. Unknown levels fall back to info.
func New(opts Options) (*Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if !strings.EqualFold(opts.Format, FormatJSON) {
		out = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    opts.NoColor,
			TimeFormat: time.Kitchen,
		}
	}

	l := &Logger{}
	writers := []io.Writer{out}
	if opts.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.file = f
		writers = append(writers, f)
	}

	l.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()
	return l, nil
}

// ProjectLogPath returns the run log path inside a project's .surge directory.
func ProjectLogPath(projectDir string) string {
	return filepath.Join(projectDir, ".surge", "logs", "surge.log")
}

// Component returns a sub-logger tagged with name.
func (l *Logger) Component(name string) zerolog.Logger {
	return Component(l.Logger, name)
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Component returns a sub-logger of base tagged with name.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str(FieldComponent, name).Logger()
}

// Nop returns a logger that discards everything.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
