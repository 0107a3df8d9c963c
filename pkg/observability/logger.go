package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog with the field-chaining helpers the rest of the
// codebase uses. Output is always JSON.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a JSON logger writing to output at the given level.
// A nil output defaults to stdout.
func NewLogger(level slog.Level, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level})
	return &Logger{logger: slog.New(handler)}
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithField returns a logger with an extra field attached.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With(key, value)}
}

// WithError attaches an error field. A nil error is a no-op.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.logger.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.logger.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.logger.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.logger.Error(msg, args...) }

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	emailKey     contextKey = "email"
)

// WithRequestID stores a request ID on the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request ID from the context, or "".
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithEmail stores the authenticated email on the context for logging.
func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, emailKey, email)
}

// Email returns the authenticated email from the context, or "".
func Email(ctx context.Context) string {
	if email, ok := ctx.Value(emailKey).(string); ok {
		return email
	}
	return ""
}

// FromContext enriches the logger with request-scoped fields.
func (l *Logger) FromContext(ctx context.Context) *Logger {
	out := l
	if id := RequestID(ctx); id != "" {
		out = out.WithField("request_id", id)
	}
	if email := Email(ctx); email != "" {
		out = out.WithField("email", email)
	}
	return out
}
