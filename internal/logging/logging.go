package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/reuteras/rwreader/internal/sanitize"
)

// New creates a text slog.Logger writing to w. Every record passes through
// SanitizingHandler before it is written.
func New(w io.Writer, level string) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: levelFromString(level),
	})
	return slog.New(NewSanitizingHandler(handler))
}

// Open resolves the log destination. "-" means stderr, an empty path
// discards output. The returned closer must be called on shutdown.
func Open(path, level string) (*slog.Logger, io.Closer, error) {
	switch strings.TrimSpace(path) {
	case "":
		return New(io.Discard, level), nopCloser{}, nil
	case "-":
		return New(os.Stderr, level), nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return New(f, level), f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Discard returns a logger that drops everything. Handy for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func levelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// SanitizingHandler redacts credentials from the message and attributes of
// every record before delegating to the wrapped handler.
type SanitizingHandler struct {
	next slog.Handler
}

func NewSanitizingHandler(next slog.Handler) *SanitizingHandler {
	return &SanitizingHandler{next: next}
}

func (h *SanitizingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *SanitizingHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, sanitize.String(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(sanitizeAttr(a))
		return true
	})
	return h.next.Handle(ctx, clean)
}

func (h *SanitizingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cleaned := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		cleaned[i] = sanitizeAttr(a)
	}
	return &SanitizingHandler{next: h.next.WithAttrs(cleaned)}
}

func (h *SanitizingHandler) WithGroup(name string) slog.Handler {
	return &SanitizingHandler{next: h.next.WithGroup(name)}
}

func sanitizeAttr(a slog.Attr) slog.Attr {
	if sanitize.IsSensitiveField(a.Key) {
		return slog.String(a.Key, sanitize.Marker)
	}
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, sanitize.String(v.String()))
	case slog.KindGroup:
		group := v.Group()
		cleaned := make([]any, len(group))
		for i, ga := range group {
			cleaned[i] = sanitizeAttr(ga)
		}
		return slog.Group(a.Key, cleaned...)
	case slog.KindAny:
		return slog.Any(a.Key, sanitize.Value(v.Any()))
	default:
		return slog.Attr{Key: a.Key, Value: v}
	}
}
