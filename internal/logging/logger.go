// Package logging provides the structured logger used across the service.
// Components take scoped child loggers (subsystem or agent) so log lines
// can be filtered per concern.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a thin wrapper over zerolog carrying the scoping helpers.
type Logger struct {
	zl zerolog.Logger
}

// New builds the root logger. A nil writer means pretty console output on
// stderr, which is what `serve` uses; tests pass a buffer or "silent".
func New(w io.Writer, level string) *Logger {
	if w == nil {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(w).With().Timestamp().Logger()
	zl = zl.Level(parseLevel(level))
	return &Logger{zl: zl}
}

// Sub returns a child logger scoped to an infrastructure subsystem
// (mcp, server, knowledge, ...).
func (l *Logger) Sub(subsystem string) *Logger {
	return &Logger{zl: l.zl.With().Str("subsystem", subsystem).Logger()}
}

// Agent returns a child logger scoped to an agent profile. Every line from
// a runner carries the agent id so logs from bitcoin-query and brc20-analyst
// stay distinguishable in one stream.
func (l *Logger) Agent(id string) *Logger {
	return &Logger{zl: l.zl.With().Str("agent", id).Logger()}
}

func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }

// Fatal logs and exits the process.
func (l *Logger) Fatal() *zerolog.Event { return l.zl.Fatal() }

// Zerolog exposes the underlying logger for code that needs the raw API.
func (l *Logger) Zerolog() zerolog.Logger { return l.zl }

var levelNames = map[string]zerolog.Level{
	"trace":  zerolog.TraceLevel,
	"debug":  zerolog.DebugLevel,
	"info":   zerolog.InfoLevel,
	"warn":   zerolog.WarnLevel,
	"error":  zerolog.ErrorLevel,
	"fatal":  zerolog.FatalLevel,
	"silent": zerolog.Disabled,
}

// parseLevel maps a level name to zerolog; unknown names fall back to info.
func parseLevel(s string) zerolog.Level {
	if lvl, ok := levelNames[s]; ok {
		return lvl
	}
	return zerolog.InfoLevel
}
