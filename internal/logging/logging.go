package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelTags = map[LogLevel]string{
	LevelDebug: "[DEBUG] ",
	LevelInfo:  "[INFO] ",
	LevelWarn:  "[WARN] ",
	LevelError: "[ERROR] ",
}

var (
	currentLevel LogLevel
	levelOnce    sync.Once
)

// initLevel resolves the active level once. DEBUG=1 (or true/yes/on)
// forces debug logging regardless of LOG_LEVEL.
func initLevel() {
	levelOnce.Do(func() {
		switch strings.ToLower(os.Getenv("DEBUG")) {
		case "1", "true", "yes", "on":
			currentLevel = LevelDebug
			return
		}
		currentLevel = parseLevel(os.Getenv("LOG_LEVEL"))
	})
}

var levelNames = map[string]LogLevel{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

// parseLevel maps a LOG_LEVEL string to a LogLevel, defaulting to Info
func parseLevel(s string) LogLevel {
	if lvl, ok := levelNames[strings.ToLower(s)]; ok {
		return lvl
	}
	return LevelInfo
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initLevel()
	return currentLevel
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

func emit(level LogLevel, format string, args []interface{}) {
	if GetLevel() <= level {
		log.Printf(levelTags[level]+format, args...)
	}
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) { emit(LevelDebug, format, args) }

// Info logs an info message
func Info(format string, args ...interface{}) { emit(LevelInfo, format, args) }

// Warn logs a warning message
func Warn(format string, args ...interface{}) { emit(LevelWarn, format, args) }

// Error logs an error message
func Error(format string, args ...interface{}) { emit(LevelError, format, args) }

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	log.Fatalf("[FATAL] "+format, args...)
}

// String returns the lowercase name of the level.
func (l LogLevel) String() string {
	for name, lvl := range levelNames {
		if lvl == l && name != "warning" {
			return name
		}
	}
	return fmt.Sprintf("unknown(%d)", l)
}
