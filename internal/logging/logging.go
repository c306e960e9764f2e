package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	currentLevel LogLevel
	levelOnce    sync.Once

	// runID tags every line once a command run has started.
	runID atomic.Value
)

// parseLevel maps the DEBUG and LOG_LEVEL values to a level.
// A truthy DEBUG wins over LOG_LEVEL.
func parseLevel(debug, level string) LogLevel {
	switch strings.ToLower(debug) {
	case "1", "true", "yes", "on":
		return LevelDebug
	}

	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// GetLevel returns the level read from the environment on first use.
func GetLevel() LogLevel {
	levelOnce.Do(func() {
		currentLevel = parseLevel(os.Getenv("DEBUG"), os.Getenv("LOG_LEVEL"))
	})
	return currentLevel
}

// IsDebugEnabled reports whether debug lines are written.
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

// SetRunID adds "run=<id>" to every following line so the lines of one
// command run can be told apart in a shared log file. An empty id removes
// the tag.
func SetRunID(id string) {
	runID.Store(id)
}

func prefix(level string) string {
	if id, _ := runID.Load().(string); id != "" {
		return "[" + level + "] run=" + id + " "
	}
	return "[" + level + "] "
}

func logf(level LogLevel, tag, format string, args ...interface{}) {
	if GetLevel() <= level {
		log.Printf(prefix(tag)+format, args...)
	}
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) { logf(LevelDebug, "DEBUG", format, args...) }

// Info logs an info message
func Info(format string, args ...interface{}) { logf(LevelInfo, "INFO", format, args...) }

// Warn logs a warning message
func Warn(format string, args ...interface{}) { logf(LevelWarn, "WARN", format, args...) }

// Error logs an error message
func Error(format string, args ...interface{}) { logf(LevelError, "ERROR", format, args...) }

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	log.Fatalf(prefix("FATAL")+format, args...)
}

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
