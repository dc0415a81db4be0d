package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options tunes a Logger. The zero value logs JSON at info level to stdout.
type Options struct {
	Level  string
	Format string // json | console
	Output io.Writer
}

type Logger struct {
	service string
	root    zerolog.Logger
	base    zerolog.Logger
}

func New(service string) *Logger { return NewWithOptions(service, Options{}) }

func NewWithOptions(service string, opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	format := opts.Format
	if format == "" {
		format = os.Getenv("LOG_FORMAT")
	}
	if strings.EqualFold(format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	root := zerolog.New(out).
		With().
		Timestamp().
		Str("hostname", hostname()).
		Logger().
		Level(ParseLevel(opts.Level))
	return &Logger{service: service, root: root, base: root.With().Str("service", service).Logger()}
}

// ParseLevel falls back to info for empty or unknown values.
func ParseLevel(value string) zerolog.Level {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(v)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// With returns a child logger that stamps every entry with fields.
func (l *Logger) With(fields map[string]any) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{service: l.service, root: l.root, base: l.base.With().Fields(fields).Logger()}
}

// Named returns a child logger for a sub-service ("kitchen", "courier", ...).
func (l *Logger) Named(service string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{service: service, root: l.root, base: l.root.With().Str("service", service).Logger()}
}

func (l *Logger) Service() string {
	if l == nil {
		return ""
	}
	return l.service
}

func (l *Logger) log(ev *zerolog.Event, action string, fields map[string]any, err error) {
	if ev == nil {
		return
	}
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Str("action", action).Fields(fields).Msg(action)
}

func (l *Logger) Info(action string, fields map[string]any) {
	if l == nil {
		return
	}
	l.log(l.base.Info(), action, fields, nil)
}

func (l *Logger) Debug(action string, fields map[string]any) {
	if l == nil {
		return
	}
	l.log(l.base.Debug(), action, fields, nil)
}

func (l *Logger) Warn(action string, err error, fields map[string]any) {
	if l == nil {
		return
	}
	l.log(l.base.Warn(), action, fields, err)
}

func (l *Logger) Error(action string, err error, fields map[string]any) {
	if l == nil {
		return
	}
	l.log(l.base.Error(), action, fields, err)
}

// Nop discards everything. Handy for tests and optional collaborators.
func Nop() *Logger {
	return &Logger{service: "nop", root: zerolog.Nop(), base: zerolog.Nop()}
}

func hostname() string { h, _ := os.Hostname(); return h }
