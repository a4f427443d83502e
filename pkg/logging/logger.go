package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger writes component-tagged, levelled lines for browserkit components.
// File loggers write to ~/.browserkit/logs/<process-id>-browserkit.log.
//
// A nil *Logger is valid and discards everything, so components can log
// unconditionally without checking whether a sink was configured.
type Logger struct {
	processID string
	component string
	file      *os.File
	logger    *log.Logger
	mu        sync.Mutex
	logPath   string
	closeOnce sync.Once
}

var (
	processID     string
	processIDOnce sync.Once

	dirMu  sync.Mutex
	logDir string
)

// getProcessID returns the identifier shared by every logger of this process
func getProcessID() string {
	processIDOnce.Do(func() {
		processID = uuid.New().String()
	})
	return processID
}

// SetLogDirectory overrides the directory used by file loggers.
func SetLogDirectory(dir string) {
	dirMu.Lock()
	defer dirMu.Unlock()
	logDir = dir
}

// GetLogDirectory returns the log directory, creating it if needed.
func GetLogDirectory() (string, error) {
	dirMu.Lock()
	defer dirMu.Unlock()

	if logDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		logDir = filepath.Join(homeDir, ".browserkit", "logs")
	}
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	return logDir, nil
}

// NewLogger creates a file logger for a component.
//
// If the log file cannot be opened it returns a stderr logger along with the
// error, so callers can warn about fallback mode and keep going.
func NewLogger(component string) (*Logger, error) {
	dir, err := GetLogDirectory()
	if err != nil {
		return newFallbackLogger(component, err), err
	}

	logPath := filepath.Join(dir, fmt.Sprintf("%s-browserkit.log", getProcessID()))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		err = fmt.Errorf("failed to open log file: %w", err)
		return newFallbackLogger(component, err), err
	}

	return &Logger{
		processID: getProcessID(),
		component: component,
		file:      file,
		logger:    log.New(file, "", 0),
		logPath:   logPath,
	}, nil
}

// NewWriterLogger creates a logger that writes to w.
func NewWriterLogger(component string, w io.Writer) *Logger {
	return &Logger{
		processID: getProcessID(),
		component: component,
		logger:    log.New(w, "", 0),
	}
}

func newFallbackLogger(component string, err error) *Logger {
	l := NewWriterLogger(component, os.Stderr)
	l.Warnf("failed to initialize file logging, falling back to stderr: %v", err)
	return l
}

// With returns a logger for a sub-component sharing the same sink.
func (l *Logger) With(component string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{
		processID: l.processID,
		component: l.component + "." + component,
		logger:    l.logger,
		logPath:   l.logPath,
	}
}

func (l *Logger) write(level, format string, v ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	l.logger.Printf("[%s] [%s] [%s] %s", timestamp, l.component, level, fmt.Sprintf(format, v...))
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) { l.write("DEBUG", format, v...) }

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) { l.write("INFO", format, v...) }

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) { l.write("WARN", format, v...) }

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) { l.write("ERROR", format, v...) }

// ProcessID returns the identifier shared by all loggers of this process
func (l *Logger) ProcessID() string {
	if l == nil {
		return ""
	}
	return l.processID
}

// LogPath returns the path to the log file, empty for writer loggers
func (l *Logger) LogPath() string {
	if l == nil {
		return ""
	}
	return l.logPath
}

// Close closes the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}
