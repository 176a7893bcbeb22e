package overlay

import (
	"context"
	"log/slog"
)

// Change log operations.
const (
	LogOpSet            = "set"
	LogOpDelete         = "delete"
	LogOpClear          = "clear"
	LogOpStoreChange    = "store.change"
	LogOpListenerPanic  = "listener.panic"
	LogOpActivity       = "activity"
	LogOpStoreSubscribe = "store.subscribe"
)

// ChangeLogEvent describes one overlay mutation or notification decision.
type ChangeLogEvent struct {
	Op    string
	Key   string
	Scope string
	// Forwarded reports whether a store change reached overlay subscribers.
	Forwarded bool
	Err       error
}

// ChangeLogger records overlay events.
type ChangeLogger interface {
	LogChange(ChangeLogEvent)
}

// ChangeLoggerFunc adapts a function to ChangeLogger.
type ChangeLoggerFunc func(ChangeLogEvent)

// LogChange implements ChangeLogger.
func (f ChangeLoggerFunc) LogChange(event ChangeLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopChangeLogger struct{}

func (noopChangeLogger) LogChange(ChangeLogEvent) {}

// WithChangeLogger attaches a change logger to the overlay.
func WithChangeLogger(logger ChangeLogger) Option {
	return func(cfg *config) {
		if logger == nil {
			cfg.changeLogger = noopChangeLogger{}
			return
		}
		cfg.changeLogger = logger
	}
}

// NewSlogChangeLogger adapts a *slog.Logger. Failures log at error level,
// everything else at debug.
func NewSlogChangeLogger(logger *slog.Logger) ChangeLogger {
	if logger == nil {
		return noopChangeLogger{}
	}
	return slogChangeLogger{logger: logger}
}

type slogChangeLogger struct {
	logger *slog.Logger
}

func (l slogChangeLogger) LogChange(event ChangeLogEvent) {
	attrs := []slog.Attr{
		slog.String("op", event.Op),
		slog.String("key", event.Key),
	}
	if event.Scope != "" {
		attrs = append(attrs, slog.String("scope", event.Scope))
	}
	if event.Op == LogOpStoreChange {
		attrs = append(attrs, slog.Bool("forwarded", event.Forwarded))
	}
	if event.Err != nil {
		attrs = append(attrs, slog.Any("error", event.Err))
		l.logger.LogAttrs(context.Background(), slog.LevelError, "overlay event failed", attrs...)
		return
	}
	l.logger.LogAttrs(context.Background(), slog.LevelDebug, "overlay event", attrs...)
}
