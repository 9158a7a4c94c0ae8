package logging

// Entry represents a structured log record.
type Entry struct {
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Request correlation for MCP tool calls.
	RequestID string
	Tool      string

	// General structured data.
	Fields map[string]interface{}
}
