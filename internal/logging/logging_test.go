package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

var lineFormat = regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] \[(INFO|SUCCESS|WARNING|ERROR)\] .+$`)

func TestSessionWritesOneFormattedLinePerCall(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	session, err := NewSession(dir, &console, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	logger := session.Logger()
	logger.Info("searching for updates")
	Success(logger, "system is up to date")
	logger.Warn("cancelled by user")
	logger.Error("download failed")

	if err := session.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	data, err := os.ReadFile(session.Path())
	if err != nil {
		t.Fatalf("failed to read session file: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines for 4 log calls, got %d: %q", len(lines), lines)
	}
	for _, line := range lines {
		if !lineFormat.MatchString(line) {
			t.Errorf("line does not match [timestamp] [LEVEL] message format: %q", line)
		}
	}

	wantLevels := []string{"[INFO]", "[SUCCESS]", "[WARNING]", "[ERROR]"}
	for i, want := range wantLevels {
		if !strings.Contains(lines[i], want) {
			t.Errorf("line %d: expected level %s, got %q", i, want, lines[i])
		}
	}

	consoleLines := strings.Split(strings.TrimRight(console.String(), "\n"), "\n")
	if len(consoleLines) != 4 {
		t.Fatalf("expected 4 console lines, got %d", len(consoleLines))
	}
	for i, line := range consoleLines {
		if line != lines[i] {
			t.Errorf("console line %d differs from file line: %q vs %q", i, line, lines[i])
		}
	}
}

func TestSessionCreatesLogDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	session, err := NewSession(dir, &bytes.Buffer{}, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer session.Close()

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("log directory was not created: %v", err)
	}
	if filepath.Dir(session.Path()) != dir {
		t.Fatalf("session file %q not placed under %q", session.Path(), dir)
	}
}

func TestSessionFileNaming(t *testing.T) {
	dir := t.TempDir()

	first, err := NewSession(dir, &bytes.Buffer{}, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer first.Close()

	if !strings.HasPrefix(filepath.Base(first.Path()), "winpatch_") {
		t.Fatalf("unexpected session file name: %s", first.Path())
	}
	if !strings.HasSuffix(first.Path(), ".log") {
		t.Fatalf("session file should carry .log extension: %s", first.Path())
	}
}

func TestConsoleColoringIsAppliedPerLevel(t *testing.T) {
	var console bytes.Buffer
	session := NewConsoleSession(&console, true)

	logger := session.Logger()
	logger.Error("boom")
	Success(logger, "done")

	out := console.String()
	if !strings.Contains(out, colorRed+"[") {
		t.Errorf("expected red ERROR line, got %q", out)
	}
	if !strings.Contains(out, colorGreen+"[") {
		t.Errorf("expected green SUCCESS line, got %q", out)
	}
	if !strings.Contains(out, reset) {
		t.Errorf("expected color reset sequence, got %q", out)
	}
}

func TestConsoleOnlySessionHasNoFile(t *testing.T) {
	session := NewConsoleSession(&bytes.Buffer{}, false)

	if session.Path() != "" {
		t.Fatalf("console-only session should have empty path, got %q", session.Path())
	}
	if err := session.Close(); err != nil {
		t.Fatalf("close of console-only session failed: %v", err)
	}
}

func TestHandlerRendersAttrs(t *testing.T) {
	var console bytes.Buffer
	session := NewConsoleSession(&console, false)

	logger := session.Logger().With(slog.String("stage", "download"))
	logger.Error("transfer failed", "code", 4)

	out := console.String()
	if !strings.Contains(out, "stage=download") {
		t.Errorf("expected logger attr in output, got %q", out)
	}
	if !strings.Contains(out, "code=4") {
		t.Errorf("expected record attr in output, got %q", out)
	}
}

func TestLevelName(t *testing.T) {
	cases := []struct {
		level slog.Level
		want  string
	}{
		{slog.LevelDebug, "INFO"},
		{slog.LevelInfo, "INFO"},
		{LevelSuccess, "SUCCESS"},
		{slog.LevelWarn, "WARNING"},
		{slog.LevelError, "ERROR"},
	}
	for _, tc := range cases {
		if got := LevelName(tc.level); got != tc.want {
			t.Errorf("LevelName(%v) = %q, want %q", tc.level, got, tc.want)
		}
	}
}
