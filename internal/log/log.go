// Package log wraps logrus behind a small leveled Logger interface.
package log

import (
	"sync"
)

type Logger interface {
	Print(args ...interface{})
	Printf(format string, args ...interface{})

	Trace(args ...interface{})
	Tracef(format string, args ...interface{})

	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	IsTraceEnabled() bool
	IsDebugEnabled() bool
	IsInfoEnabled() bool
}

var (
	once sync.Once
	// logger is usable before Init so early call sites and tests never
	// see nil; Init replaces it with the configured instance.
	logger Logger = newDefaultAdapter()
)

func GetLogger() Logger {
	return logger
}

// Init configures the package logger. The first call wins; later calls are
// no-ops so libraries cannot re-configure logging out from under the
// process.
func Init(cfg *Config) {
	once.Do(func() {
		l, err := newAdapter(cfg)
		if err != nil {
			panic(err)
		}
		logger = l
	})
}
