package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelSuccess marks an operation that completed as intended. It sorts
// between Info and Warn so level filtering keeps it visible by default.
const LevelSuccess = slog.Level(2)

const timestampLayout = "2006-01-02 15:04:05"

// Success logs msg at LevelSuccess.
func Success(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelSuccess, msg, args...)
}

// LevelName returns the four-way severity name used in session log lines.
func LevelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARNING"
	case level >= LevelSuccess:
		return "SUCCESS"
	default:
		return "INFO"
	}
}

// ANSI SGR codes for the console rendering of each severity.
const (
	escape      = "\033["
	reset       = escape + "0m"
	colorCyan   = escape + "36m"
	colorGreen  = escape + "32m"
	colorYellow = escape + "33m"
	colorRed    = escape + "31m"
)

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorRed
	case level >= slog.LevelWarn:
		return colorYellow
	case level >= LevelSuccess:
		return colorGreen
	default:
		return colorCyan
	}
}

// Session owns one run's log output: every line goes to the console and
// is appended to a timestamp-named file opened once at construction.
type Session struct {
	logger *slog.Logger
	file   *os.File
	path   string
}

// NewSession creates the log directory if needed and opens a new session
// file named from the current time, so each run gets its own file.
func NewSession(dir string, console io.Writer, colored bool) (*Session, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	path := filepath.Join(dir, "winpatch_"+time.Now().Format("2006-01-02_15-04-05")+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}

	handler := &sessionHandler{console: console, file: file, colored: colored}
	return &Session{logger: slog.New(handler), file: file, path: path}, nil
}

// NewConsoleSession returns a Session without a backing file. Used when
// the session file cannot be opened: logging stays best-effort and the
// run proceeds on console output alone.
func NewConsoleSession(console io.Writer, colored bool) *Session {
	handler := &sessionHandler{console: console, colored: colored}
	return &Session{logger: slog.New(handler)}
}

// Logger returns the slog.Logger bound to this session.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// Path returns the session file path, or "" for console-only sessions.
func (s *Session) Path() string {
	return s.path
}

// Close flushes and closes the session file.
func (s *Session) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

// sessionHandler renders records as "[timestamp] [LEVEL] message" lines,
// colored on the console and plain in the session file. Writes are
// best-effort: a failing writer never surfaces an error to the caller,
// so a full disk or closed console cannot abort the update pipeline.
type sessionHandler struct {
	mu      sync.Mutex
	console io.Writer
	file    io.Writer
	colored bool
	attrs   []slog.Attr
	groups  []string
}

func (h *sessionHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *sessionHandler) Handle(_ context.Context, record slog.Record) error {
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(ts.Format(timestampLayout))
	b.WriteString("] [")
	b.WriteString(LevelName(record.Level))
	b.WriteString("] ")
	b.WriteString(record.Message)

	for _, attr := range h.attrs {
		h.appendAttr(&b, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		h.appendAttr(&b, attr)
		return true
	})

	line := b.String()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.console != nil {
		if h.colored {
			fmt.Fprint(h.console, levelColor(record.Level)+line+reset+"\n")
		} else {
			fmt.Fprint(h.console, line+"\n")
		}
	}
	if h.file != nil {
		fmt.Fprint(h.file, line+"\n")
	}
	return nil
}

func (h *sessionHandler) appendAttr(b *strings.Builder, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	key := attr.Key
	if len(h.groups) > 0 {
		key = strings.Join(h.groups, ".") + "." + key
	}
	fmt.Fprintf(b, " %s=%v", key, attr.Value)
}

func (h *sessionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)

	groups := make([]string, len(h.groups))
	copy(groups, h.groups)

	return &sessionHandler{
		console: h.console,
		file:    h.file,
		colored: h.colored,
		attrs:   merged,
		groups:  groups,
	}
}

func (h *sessionHandler) WithGroup(name string) slog.Handler {
	attrs := make([]slog.Attr, len(h.attrs))
	copy(attrs, h.attrs)

	groups := make([]string, 0, len(h.groups)+1)
	groups = append(groups, h.groups...)
	groups = append(groups, name)

	return &sessionHandler{
		console: h.console,
		file:    h.file,
		colored: h.colored,
		attrs:   attrs,
		groups:  groups,
	}
}
