// Package logx provides the leveled logger shared by ritim components.
package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Logger is the logging surface components depend on.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Level filters messages below it.
type Level int

// Log levels.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a level. Unknown values yield LevelInfo.
func ParseLevel(s string) Level {
	switch s {
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

// Std writes leveled lines through a standard library logger.
type Std struct {
	mu    sync.Mutex
	std   *log.Logger
	level Level
}

var _ Logger = (*Std)(nil)

// New returns a logger writing to w.
func New(w io.Writer, level Level) *Std {
	return &Std{std: log.New(w, "ritim: ", log.LstdFlags), level: level}
}

// Stderr returns the default CLI logger.
func Stderr() *Std {
	return New(os.Stderr, LevelInfo)
}

func (l *Std) print(level Level, tag, format string, args []any) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.std.Output(3, tag+" "+fmt.Sprintf(format, args...)); err != nil {
		// Best-effort logging.
		_ = err
	}
}

// Debugf logs at debug level.
func (l *Std) Debugf(format string, args ...any) { l.print(LevelDebug, "DEBUG", format, args) }

// Infof logs at info level.
func (l *Std) Infof(format string, args ...any) { l.print(LevelInfo, "INFO", format, args) }

// Warnf logs at warn level.
func (l *Std) Warnf(format string, args ...any) { l.print(LevelWarn, "WARN", format, args) }

// Errorf logs at error level.
func (l *Std) Errorf(format string, args ...any) { l.print(LevelError, "ERROR", format, args) }

// Discard drops every message. Useful in tests.
type Discard struct{}

func (Discard) Debugf(string, ...any) {}
func (Discard) Infof(string, ...any)  {}
func (Discard) Warnf(string, ...any)  {}
func (Discard) Errorf(string, ...any) {}
