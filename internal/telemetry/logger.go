// Package telemetry provides the structured logger and Prometheus metrics
// shared by the formfield server.
package telemetry

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	Level string `yaml:"level" env:"FORMFIELD_LOG_LEVEL" validate:"omitempty,oneof=trace debug info warn error fatal"`

	// Format is console or json.
	Format string `yaml:"format" env:"FORMFIELD_LOG_FORMAT" validate:"omitempty,oneof=console json"`

	// Output is stdout, stderr or a file path.
	Output string `yaml:"output" env:"FORMFIELD_LOG_OUTPUT"`
}

// DefaultLoggingConfig returns console logging at info level on stdout.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{Level: "info", Format: "console", Output: "stdout"}
}

// Logger wraps zerolog.Logger.
type Logger struct {
	zlog zerolog.Logger
	sink *fileSink
}

// fileSink is the log file opened by NewLogger, shared by derived loggers.
type fileSink struct {
	once sync.Once
	file *os.File
	err  error
}

func (s *fileSink) close() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() { s.err = s.file.Close() })
	return s.err
}

type loggerContextKey struct{}

// NewLogger creates a logger from cfg.
func NewLogger(cfg LoggingConfig) (*Logger, error) {
	switch cfg.Output {
	case "", "stdout":
		return NewLoggerWriter(os.Stdout, cfg), nil
	case "stderr":
		return NewLoggerWriter(os.Stderr, cfg), nil
	}
	file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	l := NewLoggerWriter(file, cfg)
	l.sink = &fileSink{file: file}
	return l, nil
}

// Close releases the log file opened by NewLogger. Loggers writing to
// stdout, stderr or a caller's writer have nothing to close. Close on any
// derived logger closes the shared file; repeated calls return the first
// result.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	return l.sink.close()
}

// NewLoggerWriter creates a logger writing to w.
func NewLoggerWriter(w io.Writer, cfg LoggingConfig) *Logger {
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	zlog := zerolog.New(w).With().Timestamp().Logger().Level(parseLogLevel(cfg.Level))
	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// NewComponentLogger creates a child logger for a specific component.
func (l *Logger) NewComponentLogger(component string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("component", component).Logger(), sink: l.sink}
}

// WithContext adds the logger to the context.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, l)
}

// FromContext retrieves the logger from the context, or a no-op logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerContextKey{}).(*Logger); ok {
		return l
	}
	return Nop()
}

// WithField returns a logger with a single additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zlog: l.zlog.With().Interface(key, value).Logger(), sink: l.sink}
}

// WithSession adds session and form fields.
func (l *Logger) WithSession(sessionID, form string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("session", sessionID).Str("form", form).Logger(), sink: l.sink}
}

// WithError adds error information to the logger.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zlog: l.zlog.With().Err(err).Logger(), sink: l.sink}
}

// Zerolog exposes the underlying logger.
func (l *Logger) Zerolog() zerolog.Logger { return l.zlog }

// Debug logs a debug-level message.
func (l *Logger) Debug(msg string) { l.zlog.Debug().Msg(msg) }

// Debugf logs a formatted debug-level message.
func (l *Logger) Debugf(format string, args ...interface{}) { l.zlog.Debug().Msgf(format, args...) }

// Info logs an info-level message.
func (l *Logger) Info(msg string) { l.zlog.Info().Msg(msg) }

// Infof logs a formatted info-level message.
func (l *Logger) Infof(format string, args ...interface{}) { l.zlog.Info().Msgf(format, args...) }

// Warn logs a warning-level message.
func (l *Logger) Warn(msg string) { l.zlog.Warn().Msg(msg) }

// Warnf logs a formatted warning-level message.
func (l *Logger) Warnf(format string, args ...interface{}) { l.zlog.Warn().Msgf(format, args...) }

// Error logs an error-level message.
func (l *Logger) Error(msg string) { l.zlog.Error().Msg(msg) }

// Errorf logs a formatted error-level message.
func (l *Logger) Errorf(format string, args ...interface{}) { l.zlog.Error().Msgf(format, args...) }

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
