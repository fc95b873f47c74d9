// Package logx wraps github.com/rs/zerolog behind a small constructor so a
// Logger is always passed in explicitly (batchrun takes one as
// Input.Logger) rather than held in a package-level global, the same
// dependency-injection discipline the rest of this codebase uses for its
// other collaborators.
package logx

import (
	"io"

	"github.com/rs/zerolog"
)

// Level is the closed set of severities this package exposes; it avoids
// leaking zerolog's own Level type into every caller's import list.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger is a structured logger bound to a component name.
type Logger struct {
	z zerolog.Logger
}

// New builds a Logger writing JSON lines to w at the given minimum level.
func New(w io.Writer, level Level) Logger {
	return Logger{z: zerolog.New(w).Level(level.zerolog()).With().Timestamp().Logger()}
}

// With returns a child Logger tagged with component, for attributing log
// lines to the scheduler stage that produced them (e.g. "scheduler",
// "parentpool").
func (l Logger) With(component string) Logger {
	return Logger{z: l.z.With().Str("component", component).Logger()}
}

// Event is a structured log record under construction. Fields are always
// attached via typed setters, never interpolated into the message string.
type Event struct {
	e *zerolog.Event
}

func (l Logger) Debug() Event { return Event{l.z.Debug()} }
func (l Logger) Info() Event  { return Event{l.z.Info()} }
func (l Logger) Warn() Event  { return Event{l.z.Warn()} }
func (l Logger) Error() Event { return Event{l.z.Error()} }

func (e Event) Str(key, val string) Event {
	e.e = e.e.Str(key, val)
	return e
}

func (e Event) Int(key string, val int) Event {
	e.e = e.e.Int(key, val)
	return e
}

func (e Event) Err(err error) Event {
	e.e = e.e.Err(err)
	return e
}

func (e Event) Msg(msg string) {
	e.e.Msg(msg)
}
