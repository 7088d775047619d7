// Package logging provides the zerolog-based logger shared by all packages.
//
// Configure via environment variables:
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_FORMAT: json or console (default: json)
package logging

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger   zerolog.Logger
	initOnce sync.Once
)

// Init configures the global logger from the environment. Safe to call more
// than once; only the first call takes effect.
func Init() {
	initOnce.Do(func() {
		level := zerolog.InfoLevel
		switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
		case "debug":
			level = zerolog.DebugLevel
		case "warn":
			level = zerolog.WarnLevel
		case "error":
			level = zerolog.ErrorLevel
		}

		var out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		if strings.ToLower(os.Getenv("LOG_FORMAT")) != "console" {
			logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
			return
		}
		logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
	})
}

// Logger returns the configured global logger.
func Logger() zerolog.Logger {
	Init()
	return logger
}

func Debug() *zerolog.Event { Init(); return logger.Debug() }
func Info() *zerolog.Event  { Init(); return logger.Info() }
func Warn() *zerolog.Event  { Init(); return logger.Warn() }
func Error() *zerolog.Event { Init(); return logger.Error() }
func Fatal() *zerolog.Event { Init(); return logger.Fatal() }
