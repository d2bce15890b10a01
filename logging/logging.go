package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the minimal logging surface the application components
// depend on. Implementations must be safe for concurrent use.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type logrusLogger struct {
	entry *logrus.Entry
}

// New builds a logrus-backed Logger. Production emits JSON, anything
// else gets the human readable text formatter with debug enabled.
func New(env, component string) Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	if env == "production" {
		l.SetFormatter(&logrus.JSONFormatter{})
		l.SetLevel(logrus.InfoLevel)
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		l.SetLevel(logrus.DebugLevel)
	}

	return &logrusLogger{entry: l.WithField("component", component)}
}

func (l *logrusLogger) Debug(format string, args ...any) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Info(format string, args ...any)  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warn(format string, args ...any)  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Error(format string, args ...any) { l.entry.Errorf(format, args...) }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() Logger { return nopLogger{} }
