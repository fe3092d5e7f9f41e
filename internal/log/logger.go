package log

import (
	"context"
	"log/slog"
	"os"
)

// Logger is a slog.Logger that stamps every record with the component that
// emitted it. The component is written once per record, by Log.
type Logger struct {
	*slog.Logger
	component string
}

// Config holds logger configuration
type Config struct {
	Level     slog.Level
	Component string
	Handler   slog.Handler
}

// DefaultConfig returns a text logger on stdout at info level.
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Component: ComponentApp,
		Handler:   slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
	}
}

// New creates a logger. A nil Handler means a text handler on stdout at
// config.Level; an empty Component means ComponentApp.
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: config.Level})
	}
	if config.Component == "" {
		config.Component = ComponentApp
	}
	return &Logger{Logger: slog.New(handler), component: config.Component}
}

// wrap builds a Logger around an existing slog logger.
func wrap(l *slog.Logger, component string) *Logger {
	if component == "" {
		component = ComponentApp
	}
	return &Logger{Logger: l, component: component}
}

// With returns a logger carrying args on every record, same component.
func (l *Logger) With(args ...any) *Logger {
	return wrap(l.Logger.With(args...), l.component)
}

// WithComponent returns a logger that reports as component. The previous
// component is replaced, not repeated.
func (l *Logger) WithComponent(component string) *Logger {
	return wrap(l.Logger, component)
}

// Component returns the logger's component name
func (l *Logger) Component() string {
	return l.component
}

// Log emits a record at level with the component as its first attribute.
func (l *Logger) Log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if !l.Logger.Enabled(ctx, level) {
		return
	}
	l.Logger.Log(ctx, level, msg, append([]any{FieldComponent, l.component}, args...)...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.Log(context.Background(), slog.LevelInfo, msg, args...)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.Log(ctx, slog.LevelInfo, msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.Log(context.Background(), slog.LevelWarn, msg, args...)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.Log(ctx, slog.LevelWarn, msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.Log(context.Background(), slog.LevelError, msg, args...)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.Log(ctx, slog.LevelError, msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.Log(context.Background(), slog.LevelDebug, msg, args...)
}

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.Log(ctx, slog.LevelDebug, msg, args...)
}

// SetDefault installs logger as the slog default, so package-level slog
// calls share its handler.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
