package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// useTempLogDir points file loggers at a temporary directory for one test
func useTempLogDir(t *testing.T) string {
	t.Helper()

	dirMu.Lock()
	orig := logDir
	dirMu.Unlock()

	dir := t.TempDir()
	SetLogDirectory(dir)
	t.Cleanup(func() { SetLogDirectory(orig) })
	return dir
}

func TestNewLogger(t *testing.T) {
	dir := useTempLogDir(t)

	logger, err := NewLogger("test-component")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	if logger.component != "test-component" {
		t.Errorf("Expected component 'test-component', got %q", logger.component)
	}
	if logger.ProcessID() == "" {
		t.Error("Expected non-empty process ID")
	}
	if filepath.Dir(logger.LogPath()) != dir {
		t.Errorf("Expected log file in %s, got %s", dir, logger.LogPath())
	}
	if _, err := os.Stat(logger.LogPath()); os.IsNotExist(err) {
		t.Errorf("Log file does not exist at %s", logger.LogPath())
	}
}

func TestLoggerFormatting(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("session-manager", &buf)

	logger.Debugf("Debug message")
	logger.Infof("session %s created", "abc")
	logger.Warnf("Warning message")
	logger.Errorf("cleanup failed: %v", "boom")

	expected := []string{
		"[session-manager] [DEBUG] Debug message",
		"[session-manager] [INFO] session abc created",
		"[session-manager] [WARN] Warning message",
		"[session-manager] [ERROR] cleanup failed: boom",
	}
	for _, pattern := range expected {
		if !strings.Contains(buf.String(), pattern) {
			t.Errorf("Log content missing expected pattern: %q\nContent:\n%s", pattern, buf.String())
		}
	}
}

func TestWithSubComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("browser", &buf).With("scheduler")

	logger.Infof("sweep done")

	if !strings.Contains(buf.String(), "[browser.scheduler] [INFO] sweep done") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestNilLoggerIsNoop(t *testing.T) {
	var logger *Logger

	logger.Infof("ignored %d", 1)
	logger.Errorf("ignored")
	if logger.With("x") != nil {
		t.Error("With on nil logger should return nil")
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close on nil logger failed: %v", err)
	}
}

func TestMultipleComponentsShareFile(t *testing.T) {
	useTempLogDir(t)

	logger1, err := NewLogger("component1")
	if err != nil {
		t.Fatalf("Failed to create logger1: %v", err)
	}
	defer logger1.Close()

	logger2, err := NewLogger("component2")
	if err != nil {
		t.Fatalf("Failed to create logger2: %v", err)
	}
	defer logger2.Close()

	if logger1.LogPath() != logger2.LogPath() {
		t.Errorf("Expected same log path, got %q and %q", logger1.LogPath(), logger2.LogPath())
	}

	logger1.Infof("Message from component1")
	logger2.Infof("Message from component2")

	content, err := os.ReadFile(logger1.LogPath())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	for _, c := range []string{"[component1]", "[component2]"} {
		if !strings.Contains(string(content), c) {
			t.Errorf("Log missing %s entries", c)
		}
	}
}

func TestLoggerClose(t *testing.T) {
	useTempLogDir(t)

	logger, err := NewLogger("test")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("First close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}

func TestLogPathFormat(t *testing.T) {
	useTempLogDir(t)

	logger, err := NewLogger("test")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	fileName := filepath.Base(logger.LogPath())
	if !strings.HasSuffix(fileName, "-browserkit.log") {
		t.Errorf("Expected log file to end with '-browserkit.log', got %q", fileName)
	}
	if !strings.Contains(strings.TrimSuffix(fileName, "-browserkit.log"), "-") {
		t.Errorf("Expected UUID process ID in %q", fileName)
	}
}
