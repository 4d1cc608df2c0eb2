// Package logger provides the structured logger shared by every service.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LoggingConfig controls level, format and destination.
type LoggingConfig struct {
	Level      string
	Format     string // "json" or "text"
	Output     string // "stdout", "stderr" or "file"
	FilePrefix string
}

// Logger wraps logrus with a component name attached to every entry.
type Logger struct {
	*logrus.Logger
	component string
}

// New builds a logger from configuration. Unknown values fall back to
// info level, text format and stdout.
func New(cfg LoggingConfig) *Logger {
	base := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	base.SetOutput(resolveOutput(cfg))
	return &Logger{Logger: base}
}

// NewDefault returns an info-level text logger tagged with the component name.
func NewDefault(component string) *Logger {
	l := New(LoggingConfig{Level: "info", Format: "text", Output: "stdout"})
	return l.Named(component)
}

// Named returns a copy whose entries carry the given component field.
func (l *Logger) Named(component string) *Logger {
	return &Logger{Logger: l.Logger, component: component}
}

// Component reports the component name, empty for the root logger.
func (l *Logger) Component() string {
	return l.component
}

// Entry returns a logrus entry pre-populated with the component field.
func (l *Logger) Entry() *logrus.Entry {
	if l.component == "" {
		return logrus.NewEntry(l.Logger)
	}
	return l.Logger.WithField("component", l.component)
}

// WithField shadows logrus to keep the component field.
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.Entry().WithField(key, value)
}

// WithFields shadows logrus to keep the component field.
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.Entry().WithFields(fields)
}

// WithError shadows logrus to keep the component field.
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Entry().WithError(err)
}

func (l *Logger) Infof(format string, args ...interface{})  { l.Entry().Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.Entry().Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.Entry().Errorf(format, args...) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.Entry().Debugf(format, args...) }
func (l *Logger) Info(args ...interface{})                  { l.Entry().Info(args...) }
func (l *Logger) Warn(args ...interface{})                  { l.Entry().Warn(args...) }
func (l *Logger) Error(args ...interface{})                 { l.Entry().Error(args...) }

func resolveOutput(cfg LoggingConfig) io.Writer {
	switch strings.ToLower(strings.TrimSpace(cfg.Output)) {
	case "stderr":
		return os.Stderr
	case "file":
		prefix := cfg.FilePrefix
		if prefix == "" {
			prefix = "canteen"
		}
		name := fmt.Sprintf("%s-%s.log", prefix, time.Now().UTC().Format("20060102"))
		f, err := os.OpenFile(filepath.Clean(name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return os.Stdout
		}
		return f
	default:
		return os.Stdout
	}
}
