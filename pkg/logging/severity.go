package logging

// Severity represents log levels.
type Severity int32

const (
	DEBUG Severity = iota
	INFO
	WARN
	ERROR
	FATAL
)

// String provides human-readable severity levels.
func (s Severity) String() string {
	return [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}[s]
}

// ParseSeverity converts a string to a Severity level.
// Returns INFO for unknown strings.
func ParseSeverity(level string) Severity {
	switch level {
	case "DEBUG", "debug", "trace":
		return DEBUG
	case "INFO", "info":
		return INFO
	case "WARN", "warn", "warning":
		return WARN
	case "ERROR", "error":
		return ERROR
	case "FATAL", "fatal":
		return FATAL
	default:
		return INFO
	}
}
