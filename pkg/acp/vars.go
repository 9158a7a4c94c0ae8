package acp

import "encoding/json"

// VarsFile maps variable names (like "SYM_AuthService" or "DOM_core")
// to their expansion payloads. Payloads are kept as raw JSON: their
// shape varies by variable kind and the server returns them verbatim.
type VarsFile struct {
	Version   string                     `json:"version,omitempty"`
	Variables map[string]json.RawMessage `json:"variables"`
}

// AttemptStatus is the lifecycle state of a tracked attempt.
type AttemptStatus string

const (
	AttemptActive    AttemptStatus = "active"
	AttemptCompleted AttemptStatus = "completed"
	AttemptAbandoned AttemptStatus = "abandoned"
)

// Attempt is one tracked unit of in-flight agent work.
type Attempt struct {
	ID          string        `json:"id"`
	Description string        `json:"description,omitempty"`
	Status      AttemptStatus `json:"status"`
}

// AttemptsFile is the on-disk attempt tracking record.
type AttemptsFile struct {
	Version  string    `json:"version,omitempty"`
	Attempts []Attempt `json:"attempts"`
}

// ActiveCount returns the number of attempts still in flight.
func (a *AttemptsFile) ActiveCount() int {
	n := 0
	for _, at := range a.Attempts {
		if at.Status == AttemptActive {
			n++
		}
	}
	return n
}
