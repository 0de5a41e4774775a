package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ybryx/robolease/memory/providers/structured"
)

// Store keeps every table in maps guarded by one mutex. It backs tests and
// single-process deployments where durability is not required. The type is
// exported so tests can reach the seeding and snapshot helpers.
type Store struct {
	options structured.Options

	mu         sync.Mutex
	sessions   map[string]*structured.Session // keyed by external session id
	memories   map[string]*structured.MemoryRecord
	goals      []structured.Goal
	beliefs    []structured.Belief
	audits     []structured.AuditEvent
	executions []structured.AgentExecution
}

func (s *Store) GetSessionByExternalID(_ context.Context, sessionID string) (*structured.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, structured.ErrNotFound
	}

	copied := *sess
	return &copied, nil
}

func (s *Store) CreateSession(_ context.Context, sess structured.Session) (*structured.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess.SessionID]; ok {
		return nil, structured.ErrDuplicateSession
	}

	if len(sess.ID) == 0 {
		sess.ID = uuid.New().String()
	}
	if len(sess.AgentName) == 0 {
		sess.AgentName = "unknown"
	}
	if len(sess.Status) == 0 {
		sess.Status = structured.StatusActive
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}

	s.sessions[sess.SessionID] = &sess

	copied := sess
	return &copied, nil
}

func (s *Store) CloseSession(_ context.Context, sessionID string, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return structured.ErrNotFound
	}

	now := time.Now().UTC()
	sess.Status = status
	sess.EndedAt = &now

	return nil
}

func (s *Store) InsertMemory(_ context.Context, rec structured.MemoryRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(rec.ID) == 0 {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	s.memories[rec.ID] = &rec

	return rec.ID, nil
}

func (s *Store) GetMemoryByVectorID(_ context.Context, vectorID string) (*structured.MemoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(vectorID) > 0 {
		for _, rec := range s.memories {
			if rec.VectorID == vectorID {
				copied := *rec
				return &copied, nil
			}
		}
	}

	return nil, structured.ErrNotFound
}

func (s *Store) DeleteMemoriesBefore(_ context.Context, userID string, cutoff time.Time, memoryType string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, rec := range s.memories {
		if rec.UserID != userID {
			continue
		}
		if !rec.CreatedAt.Before(cutoff) {
			continue
		}
		if len(memoryType) > 0 && rec.MemoryType != memoryType {
			continue
		}

		delete(s.memories, id)
		deleted++
	}

	return deleted, nil
}

func (s *Store) ListActiveGoals(_ context.Context, userID, sessionID string) ([]structured.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}

	var goals []structured.Goal
	for _, g := range s.goals {
		if g.UserID == userID && g.SessionRef == sess.ID && g.Status == "active" {
			goals = append(goals, g)
		}
	}

	return goals, nil
}

func (s *Store) ListBeliefs(_ context.Context, userID, sessionID string) ([]structured.Belief, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}

	var beliefs []structured.Belief
	for _, b := range s.beliefs {
		if b.UserID == userID && b.SessionRef == sess.ID {
			beliefs = append(beliefs, b)
		}
	}

	return beliefs, nil
}

func (s *Store) InsertAudit(_ context.Context, event structured.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.audits = append(s.audits, event)

	return nil
}

func (s *Store) InsertExecution(_ context.Context, exec structured.AgentExecution) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(exec.ID) == 0 {
		exec.ID = uuid.New().String()
	}
	if exec.CreatedAt.IsZero() {
		exec.CreatedAt = time.Now().UTC()
	}

	s.executions = append(s.executions, exec)

	return exec.ID, nil
}

// AddGoal seeds a goal row. Goal rows are written by collaborators outside
// this subsystem, so the store exposes a seeding hook instead of a full CRUD
// surface.
func (s *Store) AddGoal(goal structured.Goal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(goal.ID) == 0 {
		goal.ID = uuid.New().String()
	}

	s.goals = append(s.goals, goal)
}

// AddBelief seeds a belief row.
func (s *Store) AddBelief(belief structured.Belief) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(belief.ID) == 0 {
		belief.ID = uuid.New().String()
	}

	s.beliefs = append(s.beliefs, belief)
}

// Audits returns a snapshot of recorded audit events.
func (s *Store) Audits() []structured.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]structured.AuditEvent, len(s.audits))
	copy(out, s.audits)

	return out
}

// Executions returns a snapshot of recorded agent executions.
func (s *Store) Executions() []structured.AgentExecution {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]structured.AgentExecution, len(s.executions))
	copy(out, s.executions)

	return out
}

func NewStore(opts ...structured.Option) *Store {
	options := structured.NewOptions(opts...)

	return &Store{
		options:  options,
		sessions: map[string]*structured.Session{},
		memories: map[string]*structured.MemoryRecord{},
	}
}
