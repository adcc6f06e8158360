package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger represents a structured logger
type Logger struct {
	logger zerolog.Logger
}

// Fields represents log fields
type Fields map[string]interface{}

var (
	// Default is the default logger instance
	Default *Logger
)

// Init initializes the logger writing to stdout
func Init() {
	InitWithWriter(os.Stdout)
}

// InitWithWriter initializes the logger writing to out
func InitWithWriter(out io.Writer) {
	level := getLogLevel()

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)

	var output io.Writer = zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    out != os.Stdout,
	}
	if os.Getenv("EXAMWATCHER_ENVIRONMENT") == "production" {
		output = out
	}

	logger := zerolog.New(output).With().Timestamp().Logger()

	Default = &Logger{logger: logger}

	Default.Debug().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// getLogLevel returns the log level from environment variable
func getLogLevel() zerolog.Level {
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		if os.Getenv("EXAMWATCHER_ENVIRONMENT") == "production" {
			return zerolog.InfoLevel
		}
		return zerolog.DebugLevel
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// WithFields creates a new logger with fields
func (l *Logger) WithFields(fields Fields) *Logger {
	newLogger := l.logger.With()
	for k, v := range fields {
		newLogger = newLogger.Interface(k, v)
	}
	return &Logger{logger: newLogger.Logger()}
}

// WithField creates a new logger with a single field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// Debug returns a debug event
func (l *Logger) Debug() *zerolog.Event {
	return l.logger.Debug()
}

// Info returns an info event
func (l *Logger) Info() *zerolog.Event {
	return l.logger.Info()
}

// Warn returns a warn event
func (l *Logger) Warn() *zerolog.Event {
	return l.logger.Warn()
}

// Error returns an error event
func (l *Logger) Error() *zerolog.Event {
	return l.logger.Error()
}

// Fatal returns a fatal event
func (l *Logger) Fatal() *zerolog.Event {
	return l.logger.Fatal()
}

// Info logs an info message
func Info(format string, v ...interface{}) {
	ensure()
	Default.Info().Msgf(format, v...)
}

func ensure() {
	if Default == nil {
		Init()
	}
}

func forComponent(name string) *Logger {
	ensure()
	return Default.WithField("component", name)
}

// ForCrawler creates a logger for the page crawler
func ForCrawler() *Logger { return forComponent("crawler") }

// ForAlert creates a logger for the alert engine
func ForAlert() *Logger { return forComponent("alert") }

// ForNotifier creates a logger for the notifier
func ForNotifier() *Logger { return forComponent("notifier") }

// ForWorker creates a logger for the worker
func ForWorker() *Logger { return forComponent("worker") }

// ForBot creates a logger for the chat command handler
func ForBot() *Logger { return forComponent("bot") }

// ForPublisher creates a logger for the publisher
func ForPublisher() *Logger { return forComponent("publisher") }

// ForCache creates a logger for the cache
func ForCache() *Logger { return forComponent("cache") }

// ForExport creates a logger for the flat-file exporter
func ForExport() *Logger { return forComponent("export") }
