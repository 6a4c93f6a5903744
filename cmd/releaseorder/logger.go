package main

import (
	"fmt"
	"io"
	"sync"
	"time"
)

const (
	levelDebug = iota
	levelInfo
	levelError
)

// ConsoleLogger writes levelled log lines to a writer.
type ConsoleLogger struct {
	prefix string
	level  int
	out    io.Writer
	mu     sync.Mutex
}

// NewConsoleLogger creates a logger that drops lines below level.
func NewConsoleLogger(out io.Writer, prefix, level string) *ConsoleLogger {
	l := &ConsoleLogger{prefix: prefix, out: out, level: levelInfo}
	switch level {
	case "debug":
		l.level = levelDebug
	case "error":
		l.level = levelError
	}
	return l
}

func (l *ConsoleLogger) Debugf(format string, args ...any) {
	l.log(levelDebug, "DEBUG", format, args...)
}

func (l *ConsoleLogger) Infof(format string, args ...any) {
	l.log(levelInfo, "INFO", format, args...)
}

func (l *ConsoleLogger) Errorf(format string, args ...any) {
	l.log(levelError, "ERROR", format, args...)
}

func (l *ConsoleLogger) log(level int, label, format string, args ...any) {
	if l == nil || l.out == nil || level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s [%s] %s: %s\n", time.Now().Format(time.RFC3339), label, l.prefix, fmt.Sprintf(format, args...))
}
