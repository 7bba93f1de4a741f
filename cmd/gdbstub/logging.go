package main

import (
	"os"
	"strings"

	gdbstub "github.com/BertoldVdb/go-gdbstub"
	"github.com/rs/zerolog"
)

const EnvLogLevel = "GDBSTUB_LOG_LEVEL"

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "", "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	}
	return zerolog.InfoLevel, false
}

// newLogger builds the console logger. The environment wins over the
// configured level.
func newLogger(level string) zerolog.Logger {
	lvl, _ := parseLevel(level)
	if env, ok := parseLevel(os.Getenv(EnvLogLevel)); ok && os.Getenv(EnvLogLevel) != "" {
		lvl = env
	}
	return gdbstub.NewDiagnosticLogger(os.Stderr).Level(lvl)
}
