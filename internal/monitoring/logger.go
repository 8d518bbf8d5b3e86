// Package monitoring carries the shared diagnostic logging hook.
package monitoring

import "log"

// Logf is the package-level diagnostic logger, defaulting to
// log.Printf. Tests and embedders may replace or mute it via SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// Verbose gates Debugf output. Off by default; main enables it in dev
// mode.
var Verbose bool

// SetLogger replaces the package logger. A nil argument installs a
// no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Debugf logs through Logf only when Verbose is set.
func Debugf(format string, v ...interface{}) {
	if Verbose {
		Logf(format, v...)
	}
}
