package swarmcore

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
)

// NoOpLogger discards every record. It is the zero value for Logger so
// every constructor in the runtime works without explicit wiring.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, map[string]interface{}) {}
func (NoOpLogger) Info(string, map[string]interface{})  {}
func (NoOpLogger) Warn(string, map[string]interface{})  {}
func (NoOpLogger) Error(string, map[string]interface{}) {}

func (NoOpLogger) DebugWithContext(context.Context, string, map[string]interface{}) {}
func (NoOpLogger) InfoWithContext(context.Context, string, map[string]interface{})  {}
func (NoOpLogger) WarnWithContext(context.Context, string, map[string]interface{})  {}
func (NoOpLogger) ErrorWithContext(context.Context, string, map[string]interface{}) {}

func (l NoOpLogger) WithComponent(string) Logger { return l }

// logLevel orders the four levels so SimpleLogger can gate output.
type logLevel int

const (
	levelDebug logLevel = iota
	levelInfo
	levelWarn
	levelError
)

func parseLevel(s string) logLevel {
	switch strings.ToLower(s) {
	case "debug":
		return levelDebug
	case "warn", "warning":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// SimpleLogger writes "[LEVEL] component msg key=val ..." lines to
// standard error via the standard log package. It reads its minimum level from
// LOG_LEVEL once at construction, matching the teacher's convention of
// a zero-dependency default logger.
type SimpleLogger struct {
	component string
	min       logLevel
}

// NewSimpleLogger builds a root SimpleLogger reading LOG_LEVEL from the
// environment (default: info).
func NewSimpleLogger() *SimpleLogger {
	return &SimpleLogger{min: parseLevel(os.Getenv("LOG_LEVEL"))}
}

func (l *SimpleLogger) WithComponent(component string) Logger {
	return &SimpleLogger{component: component, min: l.min}
}

// GetComponent returns the component tag this logger was derived with, if
// any. Used by callers that want to confirm WithComponent was actually
// applied (factory wiring tests).
func (l *SimpleLogger) GetComponent() string {
	return l.component
}

func (l *SimpleLogger) log(level logLevel, tag, msg string, fields map[string]interface{}) {
	if level < l.min {
		return
	}
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(tag)
	b.WriteString("] ")
	if l.component != "" {
		b.WriteString(l.component)
		b.WriteString(": ")
	}
	b.WriteString(msg)
	for k, v := range fields {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	log.Println(b.String())
}

func (l *SimpleLogger) Debug(msg string, fields map[string]interface{}) {
	l.log(levelDebug, "DEBUG", msg, fields)
}
func (l *SimpleLogger) Info(msg string, fields map[string]interface{}) {
	l.log(levelInfo, "INFO", msg, fields)
}
func (l *SimpleLogger) Warn(msg string, fields map[string]interface{}) {
	l.log(levelWarn, "WARN", msg, fields)
}
func (l *SimpleLogger) Error(msg string, fields map[string]interface{}) {
	l.log(levelError, "ERROR", msg, fields)
}

func (l *SimpleLogger) DebugWithContext(_ context.Context, msg string, fields map[string]interface{}) {
	l.Debug(msg, fields)
}
func (l *SimpleLogger) InfoWithContext(_ context.Context, msg string, fields map[string]interface{}) {
	l.Info(msg, fields)
}
func (l *SimpleLogger) WarnWithContext(_ context.Context, msg string, fields map[string]interface{}) {
	l.Warn(msg, fields)
}
func (l *SimpleLogger) ErrorWithContext(_ context.Context, msg string, fields map[string]interface{}) {
	l.Error(msg, fields)
}
