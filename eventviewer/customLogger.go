package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Logger sends informative messages to InfoLog and errors to ErrorLog.
type Logger struct {
	InfoLog  *slog.Logger
	ErrorLog *slog.Logger
}

func NewLogger(info io.Writer, errors io.Writer) Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	return Logger{
		InfoLog:  slog.New(NewHandler(info, opts)),
		ErrorLog: slog.New(slog.NewJSONHandler(errors, opts)),
	}
}

func (l Logger) Info(message string, module string) {
	l.InfoLog.Info(message, "module", module)
}

func (l Logger) Error(message string) {
	l.ErrorLog.Error(message)
}

// Handler writes records as "[time] [attr values...] message". Only the
// attribute values are printed, keys and groups are dropped.
type Handler struct {
	level  slog.Leveler
	prefix []string
	mu     *sync.Mutex
	out    io.Writer
}

func NewHandler(o io.Writer, opts *slog.HandlerOptions) *Handler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &Handler{level: level, mu: &sync.Mutex{}, out: o}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefix := append([]string{}, h.prefix...)
	for _, a := range attrs {
		prefix = append(prefix, bracket(a))
	}
	return &Handler{level: h.level, prefix: prefix, mu: h.mu, out: h.out}
}

func (h *Handler) WithGroup(string) slog.Handler {
	return h
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	strs := []string{r.Time.Format("[2006/01/02 15:04:05]")}
	if r.Level >= slog.LevelWarn {
		strs = append(strs, "["+r.Level.String()+"]")
	}
	strs = append(strs, h.prefix...)
	r.Attrs(func(a slog.Attr) bool {
		strs = append(strs, bracket(a))
		return true
	})
	strs = append(strs, r.Message)
	line := strings.Join(strs, " ") + "\n"

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, line)
	return err
}

func bracket(a slog.Attr) string {
	return "[" + a.Value.Resolve().String() + "]"
}
