package vector

import (
	"context"
	"errors"
	"time"
)

// ErrDeleteNotSupported is returned by providers that cannot bulk-delete
// by filter. Callers must report zero deletions rather than guessing.
var ErrDeleteNotSupported = errors.New("vector store does not support delete by filter")

type Store interface {
	Add(ctx context.Context, content string, meta Metadata) (string, error)
	Search(ctx context.Context, query string, filter Filter, limit int) ([]Record, error)
	DeleteBefore(ctx context.Context, filter Filter, cutoff time.Time) (int, error)
}

// Metadata carries the correlating fields persisted alongside a vector entry
// so the entry can be re-filtered and joined back to the structured log.
type Metadata struct {
	UserID     string
	SessionID  string
	AgentName  string
	MemoryKind string
	Tags       []string
	Timestamp  time.Time
}

func (m Metadata) Map() map[string]any {
	tags := make([]any, 0, len(m.Tags))
	for _, t := range m.Tags {
		tags = append(tags, t)
	}
	payload := map[string]any{
		"user_id":      m.UserID,
		"session_id":   m.SessionID,
		"agent_name":   m.AgentName,
		"memory_type":  m.MemoryKind,
		"tags":         tags,
		"created_at":   m.Timestamp.UTC().Format(time.RFC3339Nano),
		"access_count": 0,
	}
	return payload
}

type Filter struct {
	UserID     string
	SessionID  string
	AgentName  string
	MemoryKind string
	Tags       []string
}

// Matches reports whether a stored metadata payload satisfies every
// non-empty field of the filter. Tag filters require all listed tags.
func (f Filter) Matches(meta map[string]any) bool {
	match := func(key, want string) bool {
		if len(want) == 0 {
			return true
		}
		got, _ := meta[key].(string)
		return got == want
	}

	if !match("user_id", f.UserID) ||
		!match("session_id", f.SessionID) ||
		!match("agent_name", f.AgentName) ||
		!match("memory_type", f.MemoryKind) {
		return false
	}

	if len(f.Tags) == 0 {
		return true
	}

	stored := map[string]struct{}{}
	if raw, ok := meta["tags"].([]any); ok {
		for _, t := range raw {
			if s, ok := t.(string); ok {
				stored[s] = struct{}{}
			}
		}
	}
	if raw, ok := meta["tags"].([]string); ok {
		for _, s := range raw {
			stored[s] = struct{}{}
		}
	}

	for _, want := range f.Tags {
		if _, ok := stored[want]; !ok {
			return false
		}
	}

	return true
}

type Record struct {
	Id        string         `json:"id"`
	Content   string         `json:"content"`
	Score     float32        `json:"score"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}
