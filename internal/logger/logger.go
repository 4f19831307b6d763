package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus entry carrying the service name.
type Logger struct {
	*logrus.Entry
}

// New creates a JSON logger writing to stdout at the given level
// (debug, info, warn, error; anything else means info).
func New(serviceName, level string) *Logger {
	return NewWithOutput(serviceName, level, os.Stdout)
}

// NewWithOutput is New with a custom writer, used by tests.
func NewWithOutput(serviceName, level string, out io.Writer) *Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	log.SetOutput(out)
	log.SetLevel(parseLevel(level))
	return &Logger{Entry: log.WithField("service", serviceName)}
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// WithRequestID adds the request id to log entries.
func (l *Logger) WithRequestID(requestID string) *logrus.Entry {
	return l.WithField("request_id", requestID)
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWithOutput("test", "error", io.Discard)
}
