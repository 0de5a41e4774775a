package memory

import (
	"context"
	"time"

	"github.com/ybryx/robolease/memory/providers/structured"
)

// Memory kinds.
const (
	KindShortTerm  = "short_term"
	KindLongTerm   = "long_term"
	KindEpisodic   = "episodic"
	KindSemantic   = "semantic"
	KindProcedural = "procedural"
)

// Manager coordinates the structured log and the vector store. It is
// constructed once at startup and passed explicitly to every collaborator;
// it holds no per-call state, so a single instance is safe to share.
type Manager interface {
	LoadContext(ctx context.Context, userID string, sessionID string, opts ...LoadContextOption) (*ContextSnapshot, error)
	WriteMemory(ctx context.Context, userID string, sessionID string, payload map[string]any, opts ...WriteMemoryOption) (*WriteResult, error)
	RecallMemory(ctx context.Context, userID string, query string, opts ...RecallMemoryOption) ([]Recalled, error)
	DecayMemory(ctx context.Context, userID string, opts ...DecayMemoryOption) (*DecayResult, error)

	ResolveSession(ctx context.Context, sessionID string, userID string, agentName string) (string, bool)
	CloseSession(ctx context.Context, sessionID string, status string) error
	LogAgentExecution(ctx context.Context, exec structured.AgentExecution) (string, error)
	LogEvent(ctx context.Context, event structured.AuditEvent)
}

// ContextSnapshot is rebuilt on every LoadContext call and never persisted.
type ContextSnapshot struct {
	Session  *structured.Session `json:"session,omitempty"`
	Memories []Recalled          `json:"memories"`
	Goals    []structured.Goal   `json:"goals,omitempty"`
	Beliefs  []structured.Belief `json:"beliefs,omitempty"`
	LoadedAt time.Time           `json:"loaded_at"`
}

// WriteResult reports the per-store outcome of one memory write. An empty
// field means that store's write did not happen; callers inspect the fields
// instead of assuming both stores succeeded.
type WriteResult struct {
	StructuredID string `json:"structured_id,omitempty"`
	VectorID     string `json:"vector_id,omitempty"`
}

// Recalled is one vector hit, optionally enriched with its structured row
// joined by the vector id, re-ranked by the composite scorer.
type Recalled struct {
	ID          string                   `json:"id"`
	Content     string                   `json:"content"`
	Relevance   float64                  `json:"relevance"`
	Composite   float64                  `json:"composite_score"`
	Metadata    map[string]any           `json:"metadata,omitempty"`
	CreatedAt   time.Time                `json:"created_at,omitempty"`
	Enrichment  *structured.MemoryRecord `json:"structured_data,omitempty"`
	AccessCount int                      `json:"access_count"`
}

// DecayResult reports how many rows each store pruned. VectorDeleted is 0
// when the provider cannot bulk-delete, never an estimate.
type DecayResult struct {
	StructuredDeleted int `json:"structured_deleted"`
	VectorDeleted     int `json:"vector_deleted"`
}
