package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

type contextKey string

const (
	requestIDKey contextKey = "acp.request_id"
	toolNameKey  contextKey = "acp.tool"
)

// WithRequestID stores a request correlation ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithTool stores the active tool name in the context.
func WithTool(ctx context.Context, tool string) context.Context {
	return context.WithValue(ctx, toolNameKey, tool)
}

// Logger provides the core logging functionality.
type Logger struct {
	mu       sync.Mutex
	severity Severity
	outputs  []Output
	fields   map[string]interface{}
}

// Config allows flexible logger configuration.
type Config struct {
	Severity      Severity
	Outputs       []Output
	DefaultFields map[string]interface{}
}

// NewLogger creates a new logger with the given configuration.
func NewLogger(cfg Config) *Logger {
	return &Logger{
		severity: cfg.Severity,
		outputs:  cfg.Outputs,
		fields:   cfg.DefaultFields,
	}
}

func (l *Logger) logf(ctx context.Context, s Severity, format string, args ...interface{}) {
	if s < l.severity {
		return
	}

	pc, file, line, _ := runtime.Caller(2)
	fn := runtime.FuncForPC(pc).Name()

	entry := Entry{
		Time:     time.Now().UnixNano(),
		Severity: s,
		Message:  fmt.Sprintf(format, args...),
		File:     filepath.Base(file),
		Line:     line,
		Function: filepath.Base(fn),
		Fields:   make(map[string]interface{}, len(l.fields)),
	}

	for k, v := range l.fields {
		entry.Fields[k] = v
	}

	if ctx != nil {
		if id, ok := ctx.Value(requestIDKey).(string); ok {
			entry.RequestID = id
		}
		if tool, ok := ctx.Value(toolNameKey).(string); ok {
			entry.Tool = tool
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, out := range l.outputs {
		// A failed output must not take down the request being served.
		_ = out.Write(entry)
	}
}

func (l *Logger) Debug(ctx context.Context, format string, args ...interface{}) {
	l.logf(ctx, DEBUG, format, args...)
}

func (l *Logger) Info(ctx context.Context, format string, args ...interface{}) {
	l.logf(ctx, INFO, format, args...)
}

func (l *Logger) Warn(ctx context.Context, format string, args ...interface{}) {
	l.logf(ctx, WARN, format, args...)
}

func (l *Logger) Error(ctx context.Context, format string, args ...interface{}) {
	l.logf(ctx, ERROR, format, args...)
}

func (l *Logger) Fatal(ctx context.Context, format string, args ...interface{}) {
	l.logf(ctx, FATAL, format, args...)
	for _, out := range l.outputs {
		_ = out.Sync()
	}
	os.Exit(1)
}

// SetLogger replaces the package-level default logger.
func SetLogger(l *Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l
}

// GetLogger returns the package-level default logger, creating a
// stderr console logger at INFO if none has been configured.
func GetLogger() *Logger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(Config{
			Severity: INFO,
			Outputs:  []Output{NewConsoleOutput()},
		})
	}
	return defaultLogger
}
