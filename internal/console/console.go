// Package console holds the process-wide diagnostic logger. User-facing
// results go through the printer package instead.
package console

import (
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stderr)
)

func newLogger(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix: "splitter",
		Level:  log.InfoLevel,
	})
}

// Logger returns the shared logger.
func Logger() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetOutput redirects log output, typically to a buffer in tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

// SetVerbose enables debug logging.
func SetVerbose(verbose bool) {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	Logger().SetLevel(level)
}

// SetNoColor disables ANSI styling of log lines.
func SetNoColor(noColor bool) {
	if noColor {
		Logger().SetColorProfile(termenv.Ascii)
	}
}

func Debug(msg string, keyvals ...any) { Logger().Debug(msg, keyvals...) }

func Info(msg string, keyvals ...any) { Logger().Info(msg, keyvals...) }

func Warn(msg string, keyvals ...any) { Logger().Warn(msg, keyvals...) }

func Error(msg string, keyvals ...any) { Logger().Error(msg, keyvals...) }
