package unified

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ybryx/robolease/memory"
	"github.com/ybryx/robolease/memory/providers/structured"
	"github.com/ybryx/robolease/memory/providers/vector"
)

const (
	maxAttempts = 3

	auditCategory = "memory"

	queryAuditLimit = 100
)

// Manager coordinates the structured log and the vector store. The two
// stores are independent; there is no transaction spanning them. A write
// goes to the vector store first so the structured row can carry the
// cross-reference id, and each store's failure is absorbed into an empty
// result field rather than failing the call.
type Manager struct {
	options memory.Options

	// retryWait is swapped out by tests to avoid real backoff sleeps.
	retryWait func(attempt int) time.Duration
}

func (m *Manager) LoadContext(ctx context.Context, userID string, sessionID string, opts ...memory.LoadContextOption) (*memory.ContextSnapshot, error) {
	options := memory.NewLoadContextOptions(opts...)

	snapshot := &memory.ContextSnapshot{
		Memories: []memory.Recalled{},
		LoadedAt: time.Now().UTC(),
	}

	if m.options.Structured != nil {
		var sess *structured.Session
		err := m.retry(ctx, func() error {
			var inner error
			sess, inner = m.options.Structured.GetSessionByExternalID(ctx, sessionID)
			return inner
		})
		switch {
		case err == nil:
			snapshot.Session = sess
		case errors.Is(err, structured.ErrNotFound):
			// no session row yet, the rest of the snapshot is still useful
		default:
			m.auditError(ctx, userID, sessionID, "context_load_failed", err)
			return nil, &memory.CoordinatorError{Op: "load_context", Err: err}
		}
	}

	if m.options.Vector != nil && options.MaxMemories > 0 {
		filter := vector.Filter{
			UserID:    userID,
			SessionID: sessionID,
			AgentName: options.AgentName,
		}

		records, err := m.options.Vector.Search(ctx, "", filter, options.MaxMemories)
		if err != nil {
			slog.WarnContext(ctx, "context memories unavailable", "session_id", sessionID, "error", err)
		} else {
			snapshot.Memories = toRecalled(records)
		}
	}

	if options.IncludeGoals && m.options.Structured != nil {
		goals, err := m.options.Structured.ListActiveGoals(ctx, userID, sessionID)
		if err != nil {
			slog.WarnContext(ctx, "goals unavailable", "session_id", sessionID, "error", err)
		} else {
			snapshot.Goals = goals
		}
	}

	if options.IncludeBeliefs && m.options.Structured != nil {
		beliefs, err := m.options.Structured.ListBeliefs(ctx, userID, sessionID)
		if err != nil {
			slog.WarnContext(ctx, "beliefs unavailable", "session_id", sessionID, "error", err)
		} else {
			snapshot.Beliefs = beliefs
		}
	}

	m.LogEvent(ctx, structured.AuditEvent{
		UserID:    userID,
		EventType: "context_loaded",
		Severity:  "info",
		Message:   "context snapshot assembled",
		Data: map[string]any{
			"session_id":    sessionID,
			"session_found": snapshot.Session != nil,
			"memories":      len(snapshot.Memories),
			"goals":         len(snapshot.Goals),
			"beliefs":       len(snapshot.Beliefs),
		},
	})

	return snapshot, nil
}

func (m *Manager) WriteMemory(ctx context.Context, userID string, sessionID string, payload map[string]any, opts ...memory.WriteMemoryOption) (*memory.WriteResult, error) {
	options := memory.NewWriteMemoryOptions(opts...)

	env, err := memory.ParseEnvelope(payload)
	if err != nil {
		return nil, err
	}

	result := &memory.WriteResult{}

	internalID, resolved := m.ResolveSession(ctx, sessionID, userID, env.Agent)

	if m.options.Vector != nil {
		meta := vector.Metadata{
			UserID:     userID,
			SessionID:  sessionID,
			AgentName:  env.Agent,
			MemoryKind: options.MemoryKind,
			Tags:       options.Tags,
			Timestamp:  env.Timestamp,
		}

		var vectorID string
		err := m.retry(ctx, func() error {
			var inner error
			vectorID, inner = m.options.Vector.Add(ctx, stringify(env.Content), meta)
			return inner
		})
		if err != nil {
			slog.WarnContext(ctx, "vector write failed", "session_id", sessionID, "error", err)
		} else {
			result.VectorID = vectorID
		}
	}

	if m.options.Structured != nil && resolved {
		rec := structured.MemoryRecord{
			UserID:        userID,
			SessionRef:    internalID,
			AgentName:     env.Agent,
			OperationType: "write",
			MemoryType:    options.MemoryKind,
			Content:       stringify(env.Content),
			Tags:          options.Tags,
			Metadata:      map[string]any{"type": env.Type},
			VectorID:      result.VectorID,
		}

		var structuredID string
		err := m.retry(ctx, func() error {
			var inner error
			structuredID, inner = m.options.Structured.InsertMemory(ctx, rec)
			return inner
		})
		if err != nil {
			slog.WarnContext(ctx, "structured write failed", "session_id", sessionID, "error", err)
		} else {
			result.StructuredID = structuredID
		}
	}

	m.LogEvent(ctx, structured.AuditEvent{
		UserID:    userID,
		AgentName: env.Agent,
		EventType: "memory_written",
		Severity:  "info",
		Message:   "memory write completed",
		Data: map[string]any{
			"session_id":    sessionID,
			"memory_type":   options.MemoryKind,
			"structured_id": result.StructuredID,
			"vector_id":     result.VectorID,
		},
	})

	return result, nil
}

func (m *Manager) RecallMemory(ctx context.Context, userID string, query string, opts ...memory.RecallMemoryOption) ([]memory.Recalled, error) {
	options := memory.NewRecallMemoryOptions(opts...)

	if m.options.Vector == nil {
		return []memory.Recalled{}, nil
	}

	filter := vector.Filter{
		UserID:    userID,
		SessionID: options.SessionID,
		AgentName: options.AgentName,
		Tags:      options.Tags,
	}

	var records []vector.Record
	err := m.retry(ctx, func() error {
		var inner error
		records, inner = m.options.Vector.Search(ctx, query, filter, options.Limit)
		return inner
	})
	if err != nil {
		slog.WarnContext(ctx, "vector search failed", "user_id", userID, "error", err)
		return []memory.Recalled{}, nil
	}

	recalled := toRecalled(records)

	if m.options.Structured != nil {
		for i := range recalled {
			row, err := m.options.Structured.GetMemoryByVectorID(ctx, recalled[i].ID)
			if err != nil {
				continue
			}
			recalled[i].Enrichment = row
		}
	}

	recalled = memory.Rank(recalled, time.Now().UTC())

	m.LogEvent(ctx, structured.AuditEvent{
		UserID:    userID,
		EventType: "memory_recalled",
		Severity:  "info",
		Message:   "memory recall completed",
		Data: map[string]any{
			"query":   truncate(query, queryAuditLimit),
			"results": len(recalled),
		},
	})

	return recalled, nil
}

func (m *Manager) DecayMemory(ctx context.Context, userID string, opts ...memory.DecayMemoryOption) (*memory.DecayResult, error) {
	options := memory.NewDecayMemoryOptions(opts...)

	cutoff := time.Now().UTC().AddDate(0, 0, -options.ThresholdDays)

	result := &memory.DecayResult{}

	if m.options.Structured == nil {
		err := errors.New("structured store unavailable")
		m.auditError(ctx, userID, "", "memory_decay_failed", err)
		return nil, &memory.CoordinatorError{Op: "decay_memory", Err: err}
	}

	err := m.retry(ctx, func() error {
		var inner error
		result.StructuredDeleted, inner = m.options.Structured.DeleteMemoriesBefore(ctx, userID, cutoff, options.MemoryKind)
		return inner
	})
	if err != nil {
		m.auditError(ctx, userID, "", "memory_decay_failed", err)
		return nil, &memory.CoordinatorError{Op: "decay_memory", Err: err}
	}

	if m.options.Vector != nil {
		filter := vector.Filter{
			UserID:     userID,
			MemoryKind: options.MemoryKind,
		}

		deleted, err := m.options.Vector.DeleteBefore(ctx, filter, cutoff)
		switch {
		case errors.Is(err, vector.ErrDeleteNotSupported):
			// provider cannot bulk-delete, report zero rather than guess
		case err != nil:
			slog.WarnContext(ctx, "vector decay failed", "user_id", userID, "error", err)
		default:
			result.VectorDeleted = deleted
		}
	}

	m.LogEvent(ctx, structured.AuditEvent{
		UserID:    userID,
		EventType: "memory_decayed",
		Severity:  "info",
		Message:   "memory decay completed",
		Data: map[string]any{
			"threshold_days":     options.ThresholdDays,
			"memory_type":        options.MemoryKind,
			"structured_deleted": result.StructuredDeleted,
			"vector_deleted":     result.VectorDeleted,
		},
	})

	return result, nil
}

// ResolveSession maps an external session id to the store's internal id,
// creating an active session row on first use. A second return of false
// means "skip structured persistence for this call", never a fatal error.
func (m *Manager) ResolveSession(ctx context.Context, sessionID string, userID string, agentName string) (string, bool) {
	if m.options.Structured == nil || len(sessionID) == 0 {
		return "", false
	}

	sess, err := m.options.Structured.GetSessionByExternalID(ctx, sessionID)
	if err == nil {
		return sess.ID, true
	}
	if !errors.Is(err, structured.ErrNotFound) {
		slog.WarnContext(ctx, "session lookup failed", "session_id", sessionID, "error", err)
		return "", false
	}

	if len(agentName) == 0 {
		agentName = "unknown"
	}

	created, err := m.options.Structured.CreateSession(ctx, structured.Session{
		SessionID: sessionID,
		UserID:    userID,
		AgentName: agentName,
		Status:    structured.StatusActive,
	})
	if err == nil {
		return created.ID, true
	}

	// lost the create race, the winner's row is authoritative
	if errors.Is(err, structured.ErrDuplicateSession) {
		sess, err := m.options.Structured.GetSessionByExternalID(ctx, sessionID)
		if err == nil {
			return sess.ID, true
		}
	}

	slog.WarnContext(ctx, "session create failed", "session_id", sessionID, "error", err)
	return "", false
}

func (m *Manager) CloseSession(ctx context.Context, sessionID string, status string) error {
	if m.options.Structured == nil {
		return &memory.CoordinatorError{Op: "close_session", Err: errors.New("structured store unavailable")}
	}

	return m.retry(ctx, func() error {
		return m.options.Structured.CloseSession(ctx, sessionID, status)
	})
}

func (m *Manager) LogAgentExecution(ctx context.Context, exec structured.AgentExecution) (string, error) {
	if m.options.Structured == nil {
		return "", nil
	}

	if len(exec.ExecutionID) == 0 {
		exec.ExecutionID = uuid.New().String()
	}

	return m.options.Structured.InsertExecution(ctx, exec)
}

// LogEvent appends an audit event. It never errors; a failed audit write is
// logged and dropped.
func (m *Manager) LogEvent(ctx context.Context, event structured.AuditEvent) {
	if m.options.Structured == nil {
		return
	}

	if len(event.EventCategory) == 0 {
		event.EventCategory = auditCategory
	}
	if len(event.Severity) == 0 {
		event.Severity = "info"
	}

	if err := m.options.Structured.InsertAudit(ctx, event); err != nil {
		slog.WarnContext(ctx, "audit write failed", "event_type", event.EventType, "error", err)
	}
}

func (m *Manager) auditError(ctx context.Context, userID, sessionID, eventType string, cause error) {
	m.LogEvent(ctx, structured.AuditEvent{
		UserID:    userID,
		EventType: eventType,
		Severity:  "error",
		Message:   cause.Error(),
		Data: map[string]any{
			"session_id": sessionID,
		},
	})
}

// retry runs fn up to maxAttempts times, backing off between attempts, for
// transient connectivity failures only. Contract violations and permanent
// store errors surface on the first attempt.
func (m *Manager) retry(ctx context.Context, fn func() error) error {
	var err error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !memory.IsTransient(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.retryWait(attempt)):
		}
	}

	return err
}

func defaultRetryWait(attempt int) time.Duration {
	wait := time.Second * (1 << (attempt - 1))
	if wait < 2*time.Second {
		wait = 2 * time.Second
	}
	if wait > 10*time.Second {
		wait = 10 * time.Second
	}
	return wait
}

func toRecalled(records []vector.Record) []memory.Recalled {
	recalled := make([]memory.Recalled, 0, len(records))
	for _, rec := range records {
		recalled = append(recalled, memory.Recalled{
			ID:        rec.Id,
			Content:   rec.Content,
			Relevance: float64(rec.Score),
			Metadata:  rec.Metadata,
			CreatedAt: rec.CreatedAt,
		})
	}
	return recalled
}

func stringify(content map[string]any) string {
	encoded, err := json.Marshal(content)
	if err != nil {
		return fmt.Sprintf("%v", content)
	}
	return string(encoded)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	// back up to a rune boundary so the cut never splits a character
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

func NewManager(opts ...memory.Option) *Manager {
	options := memory.NewOptions(opts...)

	return &Manager{
		options:   options,
		retryWait: defaultRetryWait,
	}
}
