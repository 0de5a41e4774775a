package memory

import (
	"fmt"
	"time"

	getsafe "github.com/ybryx/robolease/util/get_safe"
)

// timestampLayouts covers the ISO-8601 shapes callers actually send.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Envelope is the fixed shape every memory write must satisfy. Payloads
// arrive as dynamic maps from upstream agents; ParseEnvelope rejects
// anything outside this shape before a store is touched.
type Envelope struct {
	Timestamp time.Time      `json:"timestamp"`
	Agent     string         `json:"agent"`
	SessionID string         `json:"session_id"`
	Type      string         `json:"type"`
	Content   map[string]any `json:"content"`
}

// ParseEnvelope validates a dynamic payload against the write contract and
// returns the typed envelope. The returned error, when non-nil, is always a
// *ContractViolationError listing every violation found.
func ParseEnvelope(payload map[string]any) (*Envelope, error) {
	var violations []string

	if payload == nil {
		return nil, &ContractViolationError{Violations: []string{"payload is missing"}}
	}

	env := &Envelope{}

	raw, ok := payload["timestamp"]
	if !ok {
		violations = append(violations, "timestamp is required")
	} else if s, ok := raw.(string); !ok {
		violations = append(violations, "timestamp must be an ISO-8601 string")
	} else {
		parsed, err := ParseTimestamp(s)
		if err != nil {
			violations = append(violations, fmt.Sprintf("timestamp %q is not ISO-8601 parseable", s))
		} else {
			env.Timestamp = parsed
		}
	}

	if agent := getsafe.String(payload, "agent"); len(agent) == 0 {
		violations = append(violations, "agent must be a non-empty string")
	} else {
		env.Agent = agent
	}

	if _, ok := payload["session_id"]; !ok {
		violations = append(violations, "session_id is required")
	} else {
		env.SessionID = getsafe.String(payload, "session_id")
	}

	if _, ok := payload["type"]; !ok {
		violations = append(violations, "type is required")
	} else {
		env.Type = getsafe.String(payload, "type")
	}

	raw, ok = payload["content"]
	if !ok {
		violations = append(violations, "content is required")
	} else if content, ok := raw.(map[string]any); !ok || content == nil {
		violations = append(violations, "content must be a key-value mapping")
	} else {
		env.Content = content
	}

	if len(violations) > 0 {
		return nil, &ContractViolationError{Violations: violations}
	}

	return env, nil
}

// Validate re-checks an already-typed envelope.
func (e *Envelope) Validate() error {
	var violations []string

	if e.Timestamp.IsZero() {
		violations = append(violations, "timestamp is required")
	}
	if len(e.Agent) == 0 {
		violations = append(violations, "agent must be a non-empty string")
	}
	if len(e.SessionID) == 0 {
		violations = append(violations, "session_id is required")
	}
	if len(e.Type) == 0 {
		violations = append(violations, "type is required")
	}
	if e.Content == nil {
		violations = append(violations, "content must be a key-value mapping")
	}

	if len(violations) > 0 {
		return &ContractViolationError{Violations: violations}
	}

	return nil
}

// ParseTimestamp accepts the ISO-8601 layouts seen in the wild, with or
// without an offset.
func ParseTimestamp(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
