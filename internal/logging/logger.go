package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Global logger instance and synchronization
var (
	Logger   *slog.Logger
	loggerMu sync.RWMutex
	logFile  *os.File // Track file handle for cleanup
	isInited bool
	initOnce sync.Once // For lazy initialization in GetLogger
)

// LogLevel represents logging verbosity
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

// ParseLevel accepts a level name in any case ("debug", "Warn", ...).
// "warning" is accepted as WARN, and an empty string means the default, WARN.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING", "":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

// Config holds logger configuration
type Config struct {
	Level      LogLevel
	OutputPath string // Empty for stderr, or file path
	Format     string // "json" or "text"
}

// Init initializes the global logger with the given configuration.
// Subsequent calls return an error until Close is called.
//
// Stdout carries the result protocol, so the default destination is stderr.
func Init(config Config) error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if isInited {
		return fmt.Errorf("logger already initialized; call Close() first to reinitialize")
	}

	var writer io.Writer

	if config.OutputPath == "" {
		writer = os.Stderr
	} else {
		logDir := filepath.Dir(config.OutputPath)
		if err := os.MkdirAll(logDir, 0o750); err != nil {
			return err
		}

		file, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return err
		}
		writer = file
		logFile = file
	}

	Logger = slog.New(newHandler(writer, config.Format, toSlogLevel(config.Level)))
	isInited = true
	return nil
}

func toSlogLevel(l LogLevel) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// InitDefault initializes the logger with quiet defaults: WARN, text, stderr.
// A caller that never reads stderr will not fill the pipe during normal
// operation. Safe to call multiple times.
func InitDefault() {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if isInited {
		return
	}

	Logger = slog.New(newHandler(os.Stderr, "text", slog.LevelWarn))
	isInited = true
}

// Close closes the logger and any open file handles.
// After calling Close, you can call Init again to reinitialize.
func Close() error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if !isInited {
		return nil
	}

	var err error
	if logFile != nil {
		err = logFile.Close()
		logFile = nil
	}

	Logger = nil
	isInited = false

	initOnce = sync.Once{}
	return err
}

// GetLogger returns the current logger, initializing defaults on first use.
func GetLogger() *slog.Logger {
	loggerMu.RLock()
	if isInited {
		logger := Logger
		loggerMu.RUnlock()
		return logger
	}
	loggerMu.RUnlock()

	initOnce.Do(func() {
		InitDefault()
	})

	loggerMu.RLock()
	logger := Logger
	loggerMu.RUnlock()
	return logger
}

// Debug logs a debug message in a thread-safe manner
func Debug(msg string, args ...any) {
	GetLogger().Debug(msg, args...)
}

// Info logs an info message in a thread-safe manner
func Info(msg string, args ...any) {
	GetLogger().Info(msg, args...)
}

// Warn logs a warning message in a thread-safe manner
func Warn(msg string, args ...any) {
	GetLogger().Warn(msg, args...)
}

// Error logs an error message in a thread-safe manner
func Error(msg string, args ...any) {
	GetLogger().Error(msg, args...)
}
