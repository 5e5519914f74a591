package infra

import "log"

// Logger is the logging interface used across the service. Request handlers
// and the orchestrator log through it so tests can capture or silence output.
type Logger interface {
	Infof(format string, v ...any)
	Errorf(format string, v ...any)
}

type stdLogger struct{}

// NewStdLogger returns a Logger backed by the standard library logger.
func NewStdLogger() Logger { return &stdLogger{} }

func (l *stdLogger) Infof(format string, v ...any)  { log.Printf("[INFO] "+format, v...) }
func (l *stdLogger) Errorf(format string, v ...any) { log.Printf("[ERROR] "+format, v...) }

type nopLogger struct{}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger { return &nopLogger{} }

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
