package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// lineHandler prints records as "[date time] [LEVEL] [module] message".
// Attribute values are printed without their keys and the level tag only
// appears for warnings and errors.
type lineHandler struct {
	level slog.Leveler
	attrs []slog.Attr
	mu    *sync.Mutex
	out   io.Writer
}

func newLineHandler(out io.Writer, level slog.Leveler) *lineHandler {
	return &lineHandler{level: level, mu: &sync.Mutex{}, out: out}
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &lineHandler{level: h.level, attrs: append(slices.Clip(h.attrs), attrs...), mu: h.mu, out: h.out}
}

// WithGroup is a no-op, keys are never printed.
func (h *lineHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Time.Format("[2006/01/02 15:04:05]"))
	if r.Level >= slog.LevelWarn {
		fmt.Fprintf(&b, " [%s]", r.Level)
	}
	write := func(a slog.Attr) bool {
		fmt.Fprintf(&b, " [%s]", a.Value)
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(write)
	b.WriteString(" " + r.Message + "\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

// Logger sends progress to InfoLog and failures to ErrorLog.
type Logger struct {
	InfoLog  *slog.Logger
	ErrorLog *slog.Logger
}

func NewLogger(stdout io.Writer, stderr io.Writer) Logger {
	return Logger{
		InfoLog:  slog.New(newLineHandler(stdout, slog.LevelDebug)),
		ErrorLog: slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
}

func (l Logger) Info(message string, module string) {
	l.InfoLog.Info(message, "module", module)
}

func (l Logger) Warn(message string, module string) {
	l.InfoLog.Warn(message, "module", module)
}

func (l Logger) Error(message string) {
	l.ErrorLog.Error(message)
}
