package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Output is a destination for log entries.
type Output interface {
	Write(Entry) error
	Sync() error
	Close() error
}

// ConsoleOutput formats entries for human readability. The MCP server
// speaks its protocol over stdout, so console logging defaults to
// stderr.
type ConsoleOutput struct {
	mu     sync.Mutex
	writer io.Writer
	color  bool
}

type ConsoleOutputOption func(*ConsoleOutput)

func WithColor(enabled bool) ConsoleOutputOption {
	return func(c *ConsoleOutput) {
		c.color = enabled
	}
}

func WithWriter(w io.Writer) ConsoleOutputOption {
	return func(c *ConsoleOutput) {
		c.writer = w
	}
}

func NewConsoleOutput(opts ...ConsoleOutputOption) *ConsoleOutput {
	c := &ConsoleOutput{
		writer: os.Stderr,
		color:  false,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func severityColor(s Severity) string {
	switch s {
	case DEBUG:
		return "\033[37m"
	case INFO:
		return "\033[32m"
	case WARN:
		return "\033[33m"
	case ERROR:
		return "\033[31m"
	case FATAL:
		return "\033[35m"
	default:
		return ""
	}
}

func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%v ", k, fields[k])
	}
	return strings.TrimSpace(b.String())
}

func (c *ConsoleOutput) Write(e Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := time.Unix(0, e.Time).Format("15:04:05.000")
	level := e.Severity.String()
	if c.color {
		level = severityColor(e.Severity) + level + "\033[0m"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s", ts, level, e.Message)

	if e.Tool != "" {
		fmt.Fprintf(&b, " tool=%s", e.Tool)
	}
	if e.RequestID != "" {
		fmt.Fprintf(&b, " req=%s", e.RequestID)
	}
	if fs := formatFields(e.Fields); fs != "" {
		b.WriteString(" ")
		b.WriteString(fs)
	}
	b.WriteString("\n")

	_, err := io.WriteString(c.writer, b.String())
	return err
}

func (c *ConsoleOutput) Sync() error {
	return nil
}

func (c *ConsoleOutput) Close() error {
	return nil
}
