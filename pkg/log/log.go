package log

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var defaultLogger atomic.Pointer[Logger]

func init() {
	// Level filtering happens in Logger.logf.
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	defaultLogger.Store(New(os.Stdout, FormatJSON, LogLevelDebug))
}

type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

func (level LogLevel) String() string {
	switch level {
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	case LogLevelTrace:
		return "trace"
	default:
		return "unknown"
	}
}

func (level LogLevel) zerolog() zerolog.Level {
	switch level {
	case LogLevelError:
		return zerolog.ErrorLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelInfo:
		return zerolog.InfoLevel
	case LogLevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// ParseLogLevel parses a log level string into a LogLevel.
// Valid log levels are: error, warn, info, debug, trace.
func ParseLogLevel(level string) (LogLevel, error) {
	switch level {
	case "error":
		return LogLevelError, nil
	case "warn":
		return LogLevelWarn, nil
	case "info":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	case "trace":
		return LogLevelTrace, nil
	default:
		return LogLevelError, fmt.Errorf("unknown log level: %s", level)
	}
}

// Format selects how log lines are rendered.
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// ParseFormat parses a log format string. Valid formats are: json, console.
func ParseFormat(format string) (Format, error) {
	switch Format(format) {
	case FormatJSON, FormatConsole:
		return Format(format), nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format: %s", format)
	}
}

// SetDefaultLogger replaces the logger used by the package-level functions.
func SetDefaultLogger(logger *Logger) {
	defaultLogger.Store(logger)
}

func SetLevel(level LogLevel) {
	l := defaultLogger.Load()
	l.SetLevel(level)
	l.Info("Log level set to %s", level)
}

type Logger struct {
	logger zerolog.Logger
	level  atomic.Int32
}

func New(out io.Writer, format Format, level LogLevel) *Logger {
	if format == FormatConsole {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}
	l := &Logger{
		logger: zerolog.New(out).With().Timestamp().Logger(),
	}
	l.level.Store(int32(level))
	return l
}

func (l *Logger) SetLevel(level LogLevel) {
	l.level.Store(int32(level))
}

func (l *Logger) Level() LogLevel {
	return LogLevel(l.level.Load())
}

func (l *Logger) logf(level LogLevel, format string, args ...interface{}) {
	if level > l.Level() {
		return
	}
	l.logger.WithLevel(level.zerolog()).Msgf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.logf(LogLevelError, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.logf(LogLevelWarn, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.logf(LogLevelInfo, format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.logf(LogLevelDebug, format, args...)
}

func (l *Logger) Trace(format string, args ...interface{}) {
	l.logf(LogLevelTrace, format, args...)
}

func Info(format string, args ...interface{}) {
	defaultLogger.Load().Info(format, args...)
}

func Error(format string, args ...interface{}) {
	defaultLogger.Load().Error(format, args...)
}

func Warn(format string, args ...interface{}) {
	defaultLogger.Load().Warn(format, args...)
}

func Debug(format string, args ...interface{}) {
	defaultLogger.Load().Debug(format, args...)
}

func Trace(format string, args ...interface{}) {
	defaultLogger.Load().Trace(format, args...)
}
