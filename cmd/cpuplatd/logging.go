package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"cpuplatd/internal/httpapi"
	"cpuplatd/internal/platform"
)

// setupLogging builds the process logger and installs it in the layers
// that log.
func setupLogging(level string) {
	lvl := zerolog.InfoLevel
	switch level {
	case "debug":
		lvl = zerolog.DebugLevel
	case "warn":
		lvl = zerolog.WarnLevel
	case "error":
		lvl = zerolog.ErrorLevel
	case "off":
		lvl = zerolog.Disabled
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()
	platform.SetLogger(logger)
	httpapi.SetLogger(logger)
}
