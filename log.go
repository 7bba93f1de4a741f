package gdbstub

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// DiagnosticFunc turns a per-character exception output primitive into an
// io.Writer so it can back a logger.
type DiagnosticFunc func(byte)

func (f DiagnosticFunc) Write(p []byte) (int, error) {
	for _, m := range p {
		f(m)
	}
	return len(p), nil
}

func NewDiagnosticLogger(w io.Writer) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}
	return zerolog.New(output).With().Timestamp().Str("component", "gdbstub").Logger()
}

func (g *Stub) logException(msg string) {
	g.log.Info().Msg(msg)
}
