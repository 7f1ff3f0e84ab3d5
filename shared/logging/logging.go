// Package logging builds the logrus loggers injected into every component.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a colored text logger at the given level. Unknown levels fall
// back to info.
func New(level string) *logrus.Logger {
	lg := logrus.New()
	lg.Out = os.Stderr
	lg.Formatter = &logrus.TextFormatter{ForceColors: true, FullTimestamp: true}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	lg.Level = lvl
	return lg
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	lg := logrus.New()
	lg.Out = io.Discard
	return lg
}

// Component tags l with a component name. A nil l yields a discarding logger.
func Component(l logrus.FieldLogger, name string) logrus.FieldLogger {
	if l == nil {
		l = Discard()
	}
	return l.WithField("component", name)
}
