// Package logger provides the process-wide leveled logger.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level is a logging threshold.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelTags = [...]string{"[DEBUG] ", "[INFO] ", "[WARN] ", "[ERROR] "}

// ParseLevel maps a config string to a Level; unknown values mean InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

type logger struct {
	level Level
	out   *log.Logger
}

var (
	mu  sync.RWMutex
	std *logger
)

// Init configures the default logger to write to stderr. The "text" format
// adds the calling file and line to every entry.
func Init(level, format string) {
	InitWriter(os.Stderr, level, format)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level, format string) {
	flags := log.LstdFlags | log.Lmicroseconds
	if strings.EqualFold(format, "text") {
		flags |= log.Lshortfile
	}
	mu.Lock()
	std = &logger{level: ParseLevel(level), out: log.New(w, "", flags)}
	mu.Unlock()
}

func output(l Level, format string, args ...any) {
	mu.RLock()
	cur := std
	mu.RUnlock()
	if cur == nil || cur.level > l {
		return
	}
	// depth 3: output, the exported helper, its caller
	_ = cur.out.Output(3, levelTags[l]+fmt.Sprintf(format, args...))
}

func Debug(format string, args ...any) { output(DebugLevel, format, args...) }

func Info(format string, args ...any) { output(InfoLevel, format, args...) }

func Warn(format string, args ...any) { output(WarnLevel, format, args...) }

func Error(format string, args ...any) { output(ErrorLevel, format, args...) }

// Fatal logs regardless of level and exits the process.
func Fatal(format string, args ...any) {
	mu.RLock()
	cur := std
	mu.RUnlock()
	if cur != nil {
		_ = cur.out.Output(2, "[FATAL] "+fmt.Sprintf(format, args...))
	}
	os.Exit(1)
}
