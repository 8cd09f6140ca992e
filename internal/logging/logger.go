package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger represents a logger instance
type Logger = *logrus.Logger

// Fields represents structured logging fields
type Fields = logrus.Fields

// Log levels
const (
	DebugLevel = logrus.DebugLevel
	InfoLevel  = logrus.InfoLevel
	WarnLevel  = logrus.WarnLevel
	ErrorLevel = logrus.ErrorLevel
)

// Format selects the log output encoding
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// NewLogger creates a logger writing to out at the given level
func NewLogger(out io.Writer, level string, format Format) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(ParseLevel(level))
	if format == FormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// ParseLevel maps a level name to a logrus level, defaulting to info
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
