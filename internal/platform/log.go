package platform

import (
	"log"

	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the platform layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

func logWarn(msg string) {
	if zlog != nil {
		zlog.Warn().Msg(msg)
		return
	}
	log.Printf("warn: %s", msg)
}

func logInfo(msg string) {
	if zlog != nil {
		zlog.Info().Msg(msg)
		return
	}
	log.Printf("info: %s", msg)
}
