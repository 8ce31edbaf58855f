package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with the field-map API used across the services.
type Logger struct {
	zlog zerolog.Logger
}

// New creates a Logger for the given environment. Development gets colored
// console output at debug level; everything else gets JSON at info level.
func New(env string) *Logger {
	var output io.Writer = os.Stdout
	level := zerolog.InfoLevel

	if env == "development" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		level = zerolog.DebugLevel
	}

	return NewWithWriter(output, level)
}

// NewWithWriter creates a Logger writing to w at the given level.
func NewWithWriter(w io.Writer, level zerolog.Level) *Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	zlog := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{zlog: zlog}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.emit(l.zlog.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.emit(l.zlog.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	l.emit(l.zlog.Warn(), msg, fields)
}

// Error logs msg at error level with err attached.
func (l *Logger) Error(msg string, err error, fields map[string]interface{}) {
	l.emit(l.zlog.Error().Err(err), msg, fields)
}

// Fatal logs msg with err and exits the process.
func (l *Logger) Fatal(msg string, err error, fields map[string]interface{}) {
	l.emit(l.zlog.Fatal().Err(err), msg, fields)
}

func (l *Logger) emit(event *zerolog.Event, msg string, fields map[string]interface{}) {
	for key, value := range fields {
		event = event.Interface(key, value)
	}
	event.Msg(msg)
}

// With returns a child logger carrying the given fields on every entry.
func (l *Logger) With(fields map[string]interface{}) *Logger {
	ctx := l.zlog.With()
	for key, value := range fields {
		ctx = ctx.Interface(key, value)
	}
	return &Logger{zlog: ctx.Logger()}
}

// WithRequestID returns a child logger tagged with request_id.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		zlog: l.zlog.With().Str("request_id", requestID).Logger(),
	}
}

// GetZerolog exposes the underlying zerolog.Logger.
func (l *Logger) GetZerolog() *zerolog.Logger {
	return &l.zlog
}
