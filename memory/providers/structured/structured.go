package structured

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("row not found")
	// ErrDuplicateSession is returned when a session insert collides with
	// the uniqueness constraint on the external session id. Callers treat
	// it as "already exists" and re-resolve.
	ErrDuplicateSession = errors.New("session already exists")
)

// Session statuses.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusTimeout   = "timeout"
)

// Session is an interaction window. SessionID is the caller-supplied
// external identifier; ID is the store-generated key other rows reference.
type Session struct {
	ID         string         `json:"id"`
	SessionID  string         `json:"session_id"`
	UserID     string         `json:"user_id,omitempty"`
	AgentName  string         `json:"agent_name"`
	Status     string         `json:"status"`
	ClientInfo map[string]any `json:"client_info,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	EndedAt    *time.Time     `json:"ended_at,omitempty"`
}

// MemoryRecord is a write-once entry in the structured memory log.
// SessionRef holds the resolved internal session id, never the external one.
// VectorID back-references the vector store entry when that write succeeded.
type MemoryRecord struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	SessionRef    string         `json:"session_id"`
	AgentName     string         `json:"agent_name"`
	OperationType string         `json:"operation_type"`
	MemoryType    string         `json:"memory_type"`
	Content       string         `json:"content"`
	Tags          []string       `json:"tags"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	VectorID      string         `json:"vector_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Goal rows are owned by the goal-assessment collaborators; the memory
// subsystem only reads them.
type Goal struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	SessionRef  string    `json:"session_id"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    int       `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
}

// Belief rows are owned by the belief-graph collaborators; read-only here.
type Belief struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	SessionRef string    `json:"session_id"`
	Subject    string    `json:"subject"`
	Statement  string    `json:"statement"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditEvent is append-only and never read back by the memory subsystem.
type AuditEvent struct {
	UserID        string         `json:"user_id"`
	SessionRef    string         `json:"session_id,omitempty"`
	AgentName     string         `json:"agent_name,omitempty"`
	EventType     string         `json:"event_type"`
	EventCategory string         `json:"event_category"`
	Severity      string         `json:"severity"`
	Message       string         `json:"message"`
	Data          map[string]any `json:"data"`
}

// AgentExecution records one agent turn.
type AgentExecution struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	SessionRef    string         `json:"session_id,omitempty"`
	AgentName     string         `json:"agent_name"`
	ExecutionID   string         `json:"execution_id"`
	InputPayload  map[string]any `json:"input_payload"`
	OutputPayload map[string]any `json:"output_payload,omitempty"`
	Status        string         `json:"status"`
	ErrorDetails  map[string]any `json:"error_details,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

type Store interface {
	GetSessionByExternalID(ctx context.Context, sessionID string) (*Session, error)
	CreateSession(ctx context.Context, sess Session) (*Session, error)
	CloseSession(ctx context.Context, sessionID string, status string) error

	InsertMemory(ctx context.Context, rec MemoryRecord) (string, error)
	GetMemoryByVectorID(ctx context.Context, vectorID string) (*MemoryRecord, error)
	DeleteMemoriesBefore(ctx context.Context, userID string, cutoff time.Time, memoryType string) (int, error)

	ListActiveGoals(ctx context.Context, userID, sessionID string) ([]Goal, error)
	ListBeliefs(ctx context.Context, userID, sessionID string) ([]Belief, error)

	InsertAudit(ctx context.Context, event AuditEvent) error
	InsertExecution(ctx context.Context, exec AgentExecution) (string, error)
}
