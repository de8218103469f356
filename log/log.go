// Package log sets up structured, per-component logging for the kernel
// core, in the spirit of the teacher's utils.InfoLog/utils.ErrorLog but
// backed by logrus instead of log/slog.
package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLevel sets the level for every logger returned by For, present and
// future, mirroring the teacher's "LOG_LEVEL" config key.
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)
}

// For returns a logger tagged with the owning component, the equivalent of
// the teacher's per-module "modulo" field.
func For(component string) *logrus.Entry {
	return base.WithField("component", component)
}
