// Package logging is the provisioner's event sink.
//
// Every line has the form "[<timestamp>] [<LEVEL>] <message>". Lines go to the
// console (level tag colored when the console is a terminal) and, when
// configured, to an append-only log file. Phase lifecycle events are logged and
// fanned out to registered observers.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// TimestampLayout is the timestamp format used on every log line.
const TimestampLayout = "2006-01-02 15:04:05"

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelSuccess
	LevelWarn
	LevelError
)

// String returns the uppercase tag written between brackets.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelSuccess:
		return "SUCCESS"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// Options configures a Logger.
type Options struct {
	Console io.Writer
	File    io.Writer
	// Color enables level coloring on the console sink.
	Color    bool
	MinLevel Level
	Now      func() time.Time
}

// Logger writes leveled lines to its sinks and dispatches phase events.
type Logger struct {
	mu        sync.Mutex
	console   io.Writer
	file      io.Writer
	minLevel  Level
	now       func() time.Time
	colors    map[Level]*color.Color
	observers []Observer
}

// New constructs a Logger. A nil console discards console output.
func New(opts Options) *Logger {
	console := opts.Console
	if console == nil {
		console = io.Discard
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	colors := map[Level]*color.Color{
		LevelDebug:   color.New(color.FgHiBlack),
		LevelInfo:    color.New(color.FgBlue),
		LevelSuccess: color.New(color.FgGreen),
		LevelWarn:    color.New(color.FgYellow),
		LevelError:   color.New(color.FgRed, color.Bold),
	}
	for _, c := range colors {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return &Logger{
		console:  console,
		file:     opts.File,
		minLevel: opts.MinLevel,
		now:      now,
		colors:   colors,
	}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return New(Options{})
}

// OpenFile opens path for appending, creating it and its parent directory when missing.
func OpenFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return f, nil
}

// Log writes one message at level. Multi-line messages produce one line each.
func (l *Logger) Log(level Level, msg string) {
	if level < l.minLevel {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ts := l.now().Format(TimestampLayout)
	for _, line := range strings.Split(strings.TrimRight(msg, "\n"), "\n") {
		tag := level.String()
		_, _ = fmt.Fprintf(l.console, "[%s] [%s] %s\n", ts, l.colorize(level, tag), line)
		if l.file != nil {
			_, _ = fmt.Fprintf(l.file, "[%s] [%s] %s\n", ts, tag, line)
		}
	}
}

func (l *Logger) colorize(level Level, tag string) string {
	c, ok := l.colors[level]
	if !ok {
		return tag
	}
	return c.Sprint(tag)
}

// Debugf logs at DEBUG.
func (l *Logger) Debugf(format string, args ...any) {
	l.Log(LevelDebug, fmt.Sprintf(format, args...))
}

// Infof logs at INFO.
func (l *Logger) Infof(format string, args ...any) {
	l.Log(LevelInfo, fmt.Sprintf(format, args...))
}

// Successf logs at SUCCESS.
func (l *Logger) Successf(format string, args ...any) {
	l.Log(LevelSuccess, fmt.Sprintf(format, args...))
}

// Warnf logs at WARN.
func (l *Logger) Warnf(format string, args ...any) {
	l.Log(LevelWarn, fmt.Sprintf(format, args...))
}

// Errorf logs at ERROR.
func (l *Logger) Errorf(format string, args ...any) {
	l.Log(LevelError, fmt.Sprintf(format, args...))
}
