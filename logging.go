package main

import (
	"fmt"
	"log"
)

// LogLevel selects the minimum severity a Score reports.
type LogLevel int

const (
	levelUnset LogLevel = iota
	LevelDebug
	LevelInfo
	LevelWarning
	LevelError
	LevelCritical
)

var levelNames = map[LogLevel]string{
	LevelDebug:    "DEBUG",
	LevelInfo:     "INFO",
	LevelWarning:  "WARNING",
	LevelError:    "ERROR",
	LevelCritical: "CRITICAL",
}

// ParseLogLevel converts a level name such as "WARNING" to a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	for lvl, name := range levelNames {
		if name == s {
			return lvl, nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// scoreLogger reports recoverable findings during a parse. Fatal findings
// are returned as errors instead and never pass through here.
type scoreLogger struct {
	l   *log.Logger
	min LogLevel
}

func newScoreLogger(l *log.Logger, min LogLevel) *scoreLogger {
	if l == nil {
		l = log.Default()
	}
	if min == levelUnset {
		min = LevelWarning
	}
	return &scoreLogger{l: l, min: min}
}

func (s *scoreLogger) logf(lvl LogLevel, format string, args ...any) {
	if lvl < s.min {
		return
	}
	s.l.Printf(levelNames[lvl]+": "+format, args...)
}

func (s *scoreLogger) debugf(format string, args ...any)    { s.logf(LevelDebug, format, args...) }
func (s *scoreLogger) infof(format string, args ...any)     { s.logf(LevelInfo, format, args...) }
func (s *scoreLogger) warningf(format string, args ...any)  { s.logf(LevelWarning, format, args...) }
func (s *scoreLogger) errorf(format string, args ...any)    { s.logf(LevelError, format, args...) }
func (s *scoreLogger) criticalf(format string, args ...any) { s.logf(LevelCritical, format, args...) }
