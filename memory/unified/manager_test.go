package unified

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ybryx/robolease/memory"
	"github.com/ybryx/robolease/memory/providers/structured"
	"github.com/ybryx/robolease/memory/providers/structured/inmemory"
	"github.com/ybryx/robolease/memory/providers/vector"
)

// fakeVector is a controllable vector store. Search scores by substring
// match so tests stay deterministic without an embedder.
type fakeVector struct {
	mu      sync.Mutex
	entries []vector.Record

	failAdd      error
	failSearch   error
	deleteErr    error
	addAttempts  int
	searchCalls  int
	deleteBefore func(filter vector.Filter, cutoff time.Time) (int, error)
}

func (f *fakeVector) Add(_ context.Context, content string, meta vector.Metadata) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.addAttempts++
	if f.failAdd != nil {
		return "", f.failAdd
	}

	rec := vector.Record{
		Id:        uuid.New().String(),
		Content:   content,
		Metadata:  meta.Map(),
		CreatedAt: meta.Timestamp,
	}
	f.entries = append(f.entries, rec)

	return rec.Id, nil
}

func (f *fakeVector) Search(_ context.Context, query string, filter vector.Filter, limit int) ([]vector.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.searchCalls++
	if f.failSearch != nil {
		return nil, f.failSearch
	}

	var hits []vector.Record
	for _, rec := range f.entries {
		if !filter.Matches(rec.Metadata) {
			continue
		}

		hit := rec
		if len(query) == 0 {
			hit.Score = 0.5
		} else if strings.Contains(rec.Content, query) {
			hit.Score = 0.9
		} else {
			hit.Score = 0.1
		}
		hits = append(hits, hit)
	}

	if len(query) == 0 {
		sort.SliceStable(hits, func(i, j int) bool {
			return hits[i].CreatedAt.After(hits[j].CreatedAt)
		})
	} else {
		sort.SliceStable(hits, func(i, j int) bool {
			return hits[i].Score > hits[j].Score
		})
	}

	if len(hits) > limit {
		hits = hits[:limit]
	}

	return hits, nil
}

func (f *fakeVector) DeleteBefore(_ context.Context, filter vector.Filter, cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	if f.deleteBefore != nil {
		return f.deleteBefore(filter, cutoff)
	}

	kept := f.entries[:0]
	deleted := 0
	for _, rec := range f.entries {
		if filter.Matches(rec.Metadata) && rec.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	f.entries = kept

	return deleted, nil
}

func newTestManager(store structured.Store, vec vector.Store) *Manager {
	opts := []memory.Option{}
	if store != nil {
		opts = append(opts, memory.WithStructured(store))
	}
	if vec != nil {
		opts = append(opts, memory.WithVector(vec))
	}

	m := NewManager(opts...)
	m.retryWait = func(int) time.Duration { return time.Millisecond }

	return m
}

func validPayload(content map[string]any) map[string]any {
	return map[string]any{
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		"agent":      "financing",
		"session_id": "sess-1",
		"type":       "observation",
		"content":    content,
	}
}

func TestWriteThenRecallRoundTrip(t *testing.T) {
	store := inmemory.NewStore()
	vec := &fakeVector{}
	m := newTestManager(store, vec)

	ctx := context.Background()

	result, err := m.WriteMemory(ctx, "u1", "sess-1", validPayload(map[string]any{"note": "approved tier A lease"}))
	require.NoError(t, err)
	require.NotEmpty(t, result.VectorID)
	require.NotEmpty(t, result.StructuredID)

	recalled, err := m.RecallMemory(ctx, "u1", "approved tier A")
	require.NoError(t, err)
	require.NotEmpty(t, recalled)

	hit := recalled[0]
	assert.Equal(t, result.VectorID, hit.ID)
	require.NotNil(t, hit.Enrichment)
	assert.Equal(t, hit.Content, hit.Enrichment.Content)
	assert.Equal(t, result.StructuredID, hit.Enrichment.ID)
	assert.Greater(t, hit.Composite, 0.0)
}

func TestWriteMemoryContractViolations(t *testing.T) {
	base := validPayload(map[string]any{"note": "x"})

	broken := map[string]map[string]any{}
	for _, key := range []string{"timestamp", "agent", "session_id", "type", "content"} {
		payload := map[string]any{}
		for k, v := range base {
			if k != key {
				payload[k] = v
			}
		}
		broken["missing "+key] = payload
	}

	scalar := map[string]any{}
	for k, v := range base {
		scalar[k] = v
	}
	scalar["content"] = "not a mapping"
	broken["scalar content"] = scalar

	badTime := map[string]any{}
	for k, v := range base {
		badTime[k] = v
	}
	badTime["timestamp"] = "yesterday-ish"
	broken["malformed timestamp"] = badTime

	for name, payload := range broken {
		t.Run(name, func(t *testing.T) {
			store := inmemory.NewStore()
			vec := &fakeVector{}
			m := newTestManager(store, vec)

			_, err := m.WriteMemory(context.Background(), "u1", "sess-1", payload)

			var violation *memory.ContractViolationError
			require.ErrorAs(t, err, &violation)

			assert.Zero(t, vec.addAttempts, "vector store must not be touched")
			assert.Empty(t, store.Audits())
		})
	}
}

func TestWriteMemoryVectorDown(t *testing.T) {
	store := inmemory.NewStore()
	vec := &fakeVector{failAdd: errors.New("qdrant exploded")}
	m := newTestManager(store, vec)

	result, err := m.WriteMemory(context.Background(), "u1", "sess-1", validPayload(map[string]any{"note": "x"}))
	require.NoError(t, err)

	assert.Empty(t, result.VectorID)
	assert.NotEmpty(t, result.StructuredID)

	rec, err := store.GetMemoryByVectorID(context.Background(), "anything")
	assert.ErrorIs(t, err, structured.ErrNotFound)
	assert.Nil(t, rec)
}

func TestWriteMemoryStructuredDown(t *testing.T) {
	vec := &fakeVector{}
	m := newTestManager(nil, vec)

	result, err := m.WriteMemory(context.Background(), "u1", "sess-1", validPayload(map[string]any{"note": "x"}))
	require.NoError(t, err)

	assert.NotEmpty(t, result.VectorID)
	assert.Empty(t, result.StructuredID)
}

func TestWriteMemoryRetriesTransientVectorFailure(t *testing.T) {
	store := inmemory.NewStore()
	vec := &fakeVector{failAdd: errors.New("dial tcp: connection refused")}
	m := newTestManager(store, vec)

	result, err := m.WriteMemory(context.Background(), "u1", "sess-1", validPayload(map[string]any{"note": "x"}))
	require.NoError(t, err)

	assert.Empty(t, result.VectorID)
	assert.Equal(t, 3, vec.addAttempts)
}

func TestWriteMemoryDoesNotRetryPermanentFailure(t *testing.T) {
	store := inmemory.NewStore()
	vec := &fakeVector{failAdd: errors.New("collection not found")}
	m := newTestManager(store, vec)

	_, err := m.WriteMemory(context.Background(), "u1", "sess-1", validPayload(map[string]any{"note": "x"}))
	require.NoError(t, err)

	assert.Equal(t, 1, vec.addAttempts)
}

func TestResolveSessionIdempotent(t *testing.T) {
	store := inmemory.NewStore()
	m := newTestManager(store, nil)

	ctx := context.Background()

	first, ok := m.ResolveSession(ctx, "sess-9", "u1", "financing")
	require.True(t, ok)
	require.NotEmpty(t, first)

	second, ok := m.ResolveSession(ctx, "sess-9", "u1", "financing")
	require.True(t, ok)
	assert.Equal(t, first, second)
}

func TestResolveSessionConcurrent(t *testing.T) {
	store := inmemory.NewStore()
	m := newTestManager(store, nil)

	const callers = 16

	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, ok := m.ResolveSession(context.Background(), "sess-race", "u1", "")
			assert.True(t, ok)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Equal(t, ids[0], ids[i])
	}

	sess, err := store.GetSessionByExternalID(context.Background(), "sess-race")
	require.NoError(t, err)
	assert.Equal(t, "unknown", sess.AgentName)
}

// flakySessions wraps the in-memory store and fails session lookups with a
// scripted error sequence before delegating.
type flakySessions struct {
	*inmemory.Store
	errs  []error
	calls int
}

func (f *flakySessions) GetSessionByExternalID(ctx context.Context, sessionID string) (*structured.Session, error) {
	f.calls++
	if f.calls <= len(f.errs) {
		return nil, f.errs[f.calls-1]
	}
	return f.Store.GetSessionByExternalID(ctx, sessionID)
}

func TestLoadContextStructuredHardFailure(t *testing.T) {
	transient := errors.New("dial tcp: connection refused")
	store := &flakySessions{Store: inmemory.NewStore(), errs: []error{transient, transient, transient}}
	m := newTestManager(store, nil)

	_, err := m.LoadContext(context.Background(), "u1", "s1")

	var coordErr *memory.CoordinatorError
	require.ErrorAs(t, err, &coordErr)
	assert.Equal(t, "load_context", coordErr.Op)

	assert.Equal(t, 3, store.calls, "transient lookup failures are retried")

	audits := store.Audits()
	require.Len(t, audits, 1)
	assert.Equal(t, "context_load_failed", audits[0].EventType)
	assert.Equal(t, "error", audits[0].Severity)
}

func TestLoadContextStructuredPermanentFailureNotRetried(t *testing.T) {
	store := &flakySessions{Store: inmemory.NewStore(), errs: []error{errors.New("relation does not exist")}}
	m := newTestManager(store, nil)

	_, err := m.LoadContext(context.Background(), "u1", "s1")

	var coordErr *memory.CoordinatorError
	require.ErrorAs(t, err, &coordErr)
	assert.Equal(t, 1, store.calls)
}

func TestLoadContextRecoversFromTransientFailure(t *testing.T) {
	store := &flakySessions{Store: inmemory.NewStore()}
	m := newTestManager(store, nil)

	ctx := context.Background()

	_, ok := m.ResolveSession(ctx, "s1", "u1", "financing")
	require.True(t, ok)

	store.calls = 0
	store.errs = []error{errors.New("dial tcp: connection refused")}

	snapshot, err := m.LoadContext(ctx, "u1", "s1")
	require.NoError(t, err)

	require.NotNil(t, snapshot.Session)
	assert.Equal(t, "s1", snapshot.Session.SessionID)
}

func TestLoadContextMaxMemories(t *testing.T) {
	store := inmemory.NewStore()
	vec := &fakeVector{}
	m := newTestManager(store, vec)

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		payload := validPayload(map[string]any{"note": "memory", "n": i})
		payload["timestamp"] = time.Now().UTC().Add(time.Duration(-i) * time.Hour).Format(time.RFC3339Nano)
		_, err := m.WriteMemory(ctx, "u1", "s1", payload)
		require.NoError(t, err)
	}

	snapshot, err := m.LoadContext(ctx, "u1", "s1", memory.WithMaxMemories(2))
	require.NoError(t, err)

	assert.Len(t, snapshot.Memories, 2)
	require.NotNil(t, snapshot.Session)
	assert.Equal(t, "s1", snapshot.Session.SessionID)
}

func TestLoadContextGoalsAndBeliefs(t *testing.T) {
	store := inmemory.NewStore()
	m := newTestManager(store, nil)

	ctx := context.Background()

	internalID, ok := m.ResolveSession(ctx, "s1", "u1", "financing")
	require.True(t, ok)

	store.AddGoal(structured.Goal{UserID: "u1", SessionRef: internalID, Description: "lease two AMRs", Status: "active"})
	store.AddGoal(structured.Goal{UserID: "u1", SessionRef: internalID, Description: "done already", Status: "completed"})
	store.AddBelief(structured.Belief{UserID: "u1", SessionRef: internalID, Subject: "budget", Statement: "under 300k", Confidence: 0.8})

	snapshot, err := m.LoadContext(ctx, "u1", "s1")
	require.NoError(t, err)

	require.Len(t, snapshot.Goals, 1)
	assert.Equal(t, "lease two AMRs", snapshot.Goals[0].Description)
	require.Len(t, snapshot.Beliefs, 1)

	excluded, err := m.LoadContext(ctx, "u1", "s1", memory.WithIncludeGoals(false), memory.WithIncludeBeliefs(false))
	require.NoError(t, err)
	assert.Empty(t, excluded.Goals)
	assert.Empty(t, excluded.Beliefs)
}

func TestRecallMemoryNoVectorStore(t *testing.T) {
	store := inmemory.NewStore()
	m := newTestManager(store, nil)

	recalled, err := m.RecallMemory(context.Background(), "u1", "anything")
	require.NoError(t, err)
	assert.Empty(t, recalled)
}

func TestRecallMemoryVectorFailureDegrades(t *testing.T) {
	store := inmemory.NewStore()
	vec := &fakeVector{failSearch: errors.New("search unavailable")}
	m := newTestManager(store, vec)

	recalled, err := m.RecallMemory(context.Background(), "u1", "anything")
	require.NoError(t, err)
	assert.Empty(t, recalled)
}

func TestRecallMemoryFilters(t *testing.T) {
	store := inmemory.NewStore()
	vec := &fakeVector{}
	m := newTestManager(store, vec)

	ctx := context.Background()

	_, err := m.WriteMemory(ctx, "u1", "s1", validPayload(map[string]any{"note": "robot specs"}), memory.WithTags("robots"))
	require.NoError(t, err)
	_, err = m.WriteMemory(ctx, "u2", "s2", validPayload(map[string]any{"note": "robot specs"}), memory.WithTags("robots"))
	require.NoError(t, err)

	recalled, err := m.RecallMemory(ctx, "u1", "robot", memory.WithRecallTags("robots"))
	require.NoError(t, err)

	require.Len(t, recalled, 1)
	assert.Equal(t, "u1", recalled[0].Metadata["user_id"])
}

func TestDecayMemory(t *testing.T) {
	store := inmemory.NewStore()
	vec := &fakeVector{deleteErr: vector.ErrDeleteNotSupported}
	m := newTestManager(store, vec)

	ctx := context.Background()

	internalID, ok := m.ResolveSession(ctx, "s1", "u1", "financing")
	require.True(t, ok)

	old := structured.MemoryRecord{
		UserID: "u1", SessionRef: internalID, AgentName: "financing",
		OperationType: "write", MemoryType: memory.KindLongTerm,
		Content: "stale", CreatedAt: time.Now().UTC().AddDate(0, 0, -45),
	}
	fresh := old
	fresh.Content = "fresh"
	fresh.CreatedAt = time.Now().UTC().AddDate(0, 0, -5)

	_, err := store.InsertMemory(ctx, old)
	require.NoError(t, err)
	_, err = store.InsertMemory(ctx, fresh)
	require.NoError(t, err)

	result, err := m.DecayMemory(ctx, "u1", memory.WithThresholdDays(30))
	require.NoError(t, err)

	assert.Equal(t, 1, result.StructuredDeleted)
	assert.Equal(t, 0, result.VectorDeleted)

	remaining, err := store.DeleteMemoriesBefore(ctx, "u1", time.Now().UTC().AddDate(0, 1, 0), "")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

func TestDecayMemoryRequiresStructuredStore(t *testing.T) {
	vec := &fakeVector{}
	m := newTestManager(nil, vec)

	_, err := m.DecayMemory(context.Background(), "u1")

	var coordErr *memory.CoordinatorError
	require.ErrorAs(t, err, &coordErr)
	assert.Equal(t, "decay_memory", coordErr.Op)
}

func TestDecayMemoryVectorBestEffort(t *testing.T) {
	store := inmemory.NewStore()
	vec := &fakeVector{}
	m := newTestManager(store, vec)

	ctx := context.Background()

	payload := validPayload(map[string]any{"note": "stale"})
	payload["timestamp"] = time.Now().UTC().AddDate(0, 0, -45).Format(time.RFC3339Nano)
	_, err := m.WriteMemory(ctx, "u1", "s1", payload)
	require.NoError(t, err)

	result, err := m.DecayMemory(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, result.VectorDeleted)
}

func TestLogEventNeverErrors(t *testing.T) {
	m := newTestManager(nil, nil)

	// no structured store at all; must still be safe to call
	m.LogEvent(context.Background(), structured.AuditEvent{EventType: "anything"})
}

func TestAuditTrail(t *testing.T) {
	store := inmemory.NewStore()
	vec := &fakeVector{}
	m := newTestManager(store, vec)

	ctx := context.Background()

	_, err := m.WriteMemory(ctx, "u1", "s1", validPayload(map[string]any{"note": "x"}))
	require.NoError(t, err)

	longQuery := strings.Repeat("q", 500)
	_, err = m.RecallMemory(ctx, "u1", longQuery)
	require.NoError(t, err)

	audits := store.Audits()
	require.Len(t, audits, 2)

	assert.Equal(t, "memory_written", audits[0].EventType)
	assert.Equal(t, "memory", audits[0].EventCategory)

	assert.Equal(t, "memory_recalled", audits[1].EventType)
	recorded, _ := audits[1].Data["query"].(string)
	assert.Len(t, recorded, 100)
}

func TestAuditQueryTruncatesOnRuneBoundary(t *testing.T) {
	store := inmemory.NewStore()
	vec := &fakeVector{}
	m := newTestManager(store, vec)

	query := strings.Repeat("q", 99) + "日本語"
	_, err := m.RecallMemory(context.Background(), "u1", query)
	require.NoError(t, err)

	audits := store.Audits()
	require.Len(t, audits, 1)

	recorded, _ := audits[0].Data["query"].(string)
	assert.True(t, utf8.ValidString(recorded))
	assert.LessOrEqual(t, len(recorded), 100)
	assert.Equal(t, strings.Repeat("q", 99), recorded)
}

func TestLogAgentExecution(t *testing.T) {
	store := inmemory.NewStore()
	m := newTestManager(store, nil)

	id, err := m.LogAgentExecution(context.Background(), structured.AgentExecution{
		UserID:    "u1",
		AgentName: "supervisor",
		Status:    "completed",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	execs := store.Executions()
	require.Len(t, execs, 1)
	assert.NotEmpty(t, execs[0].ExecutionID)
}

func TestCloseSession(t *testing.T) {
	store := inmemory.NewStore()
	m := newTestManager(store, nil)

	ctx := context.Background()

	_, ok := m.ResolveSession(ctx, "s1", "u1", "financing")
	require.True(t, ok)

	require.NoError(t, m.CloseSession(ctx, "s1", structured.StatusCompleted))

	sess, err := store.GetSessionByExternalID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, structured.StatusCompleted, sess.Status)
	assert.NotNil(t, sess.EndedAt)
}
