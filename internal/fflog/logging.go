// Package fflog is the leveled-logging façade used uniformly by every component in this
// module, in the spirit of the teacher SDK's ldlog package: a thin bundle of per-level
// loggers with printf-style helpers, backed by the standard log package. There is no
// third-party logging backend to wire here -- the teacher's own façade is itself a
// zero-dependency wrapper around std log, so this package follows suit rather than
// introducing an unrelated logging library.
package fflog

import (
	"fmt"
	"log"
	"os"
)

// Level identifies a log severity.
type Level int

// The recognized severities, lowest to highest.
const (
	Debug Level = iota - 1
	Info
	Warn
	Error
	None
)

// Loggers is the bundle of per-level loggers a component holds. The zero value logs
// Info-and-above to stderr.
type Loggers struct {
	MinLevel Level
	base     *log.Logger
}

// NewDefaultLoggers returns a Loggers bundle writing to stderr at Info level.
func NewDefaultLoggers() Loggers {
	return Loggers{MinLevel: Info, base: log.New(os.Stderr, "", log.LstdFlags)}
}

func (l Loggers) logger() *log.Logger {
	if l.base == nil {
		return log.Default()
	}
	return l.base
}

func (l Loggers) enabled(level Level) bool { return level >= l.MinLevel }

// IsDebugEnabled reports whether Debug-level messages will actually be emitted.
func (l Loggers) IsDebugEnabled() bool { return l.enabled(Debug) }

func (l Loggers) print(level Level, prefix, msg string) {
	if !l.enabled(level) {
		return
	}
	l.logger().Printf("%s %s", prefix, msg)
}

// Debug logs a Debug-level message.
func (l Loggers) Debug(msg string) { l.print(Debug, "DEBUG:", msg) }

// Debugf logs a formatted Debug-level message.
func (l Loggers) Debugf(format string, args ...interface{}) {
	if l.enabled(Debug) {
		l.print(Debug, "DEBUG:", sprintf(format, args...))
	}
}

// Info logs an Info-level message.
func (l Loggers) Info(msg string) { l.print(Info, "INFO:", msg) }

// Infof logs a formatted Info-level message.
func (l Loggers) Infof(format string, args ...interface{}) {
	if l.enabled(Info) {
		l.print(Info, "INFO:", sprintf(format, args...))
	}
}

// Warn logs a Warn-level message.
func (l Loggers) Warn(msg string) { l.print(Warn, "WARN:", msg) }

// Warnf logs a formatted Warn-level message.
func (l Loggers) Warnf(format string, args ...interface{}) {
	if l.enabled(Warn) {
		l.print(Warn, "WARN:", sprintf(format, args...))
	}
}

// Error logs an Error-level message.
func (l Loggers) Error(msg string) { l.print(Error, "ERROR:", msg) }

// Errorf logs a formatted Error-level message.
func (l Loggers) Errorf(format string, args ...interface{}) {
	if l.enabled(Error) {
		l.print(Error, "ERROR:", sprintf(format, args...))
	}
}

func sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
