// Package logger configures the charmbracelet/log logger shared by the overlay.
// The TUI owns the terminal, so logs normally go to a file.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// Logger is the process-wide logger.
var Logger = log.New(os.Stderr)

// Configure points Logger at file (stderr if empty) with the given level.
// The returned closer releases the file.
func Configure(level, file string) (io.Closer, error) {
	var (
		out    io.Writer = os.Stderr
		closer io.Closer = io.NopCloser(nil)
	)
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, err
		}
		out, closer = f, f
	}

	Logger = log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		Level:           ParseLevel(level),
	})
	log.SetDefault(Logger)
	return closer, nil
}

// ParseLevel maps a level name to a log level, defaulting to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// For returns a child logger prefixed with a component name.
func For(component string) *log.Logger {
	return Logger.WithPrefix(component)
}
