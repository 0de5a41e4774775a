package inmemory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ybryx/robolease/memory/providers/vector"
)

type entry struct {
	record    vector.Record
	embedding []float32
}

type memoryStore struct {
	options vector.Options
	entries map[string]entry
	mtx     sync.RWMutex
}

func (s *memoryStore) Add(ctx context.Context, content string, meta vector.Metadata) (string, error) {
	vec, err := s.options.Embedder.Embed(ctx, content)
	if err != nil {
		return "", fmt.Errorf("embed content: %w", err)
	}

	id := uuid.New().String()

	createdAt := meta.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	cpy := make([]float32, len(vec))
	copy(cpy, vec)

	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.entries[id] = entry{
		record: vector.Record{
			Id:        id,
			Content:   content,
			Metadata:  meta.Map(),
			CreatedAt: createdAt,
		},
		embedding: cpy,
	}

	return id, nil
}

func (s *memoryStore) Search(ctx context.Context, query string, filter vector.Filter, limit int) ([]vector.Record, error) {
	if limit < 1 {
		return nil, nil
	}

	var vec []float32
	byRecency := len(strings.TrimSpace(query)) == 0
	if !byRecency {
		var err error
		vec, err = s.options.Embedder.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
	}

	s.mtx.RLock()
	defer s.mtx.RUnlock()

	candidates := make([]vector.Record, 0, len(s.entries))

	for _, e := range s.entries {
		if !filter.Matches(e.record.Metadata) {
			continue
		}
		rec := e.record
		if byRecency {
			rec.Score = 0.5
		} else {
			rec.Score = float32(vector.CosineSimilarity(vec, e.embedding))
		}
		candidates = append(candidates, rec)
	}

	if byRecency {
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
		})
	} else {
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].Score > candidates[j].Score
		})
	}

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return candidates, nil
}

func (s *memoryStore) DeleteBefore(ctx context.Context, filter vector.Filter, cutoff time.Time) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	deleted := 0
	for id, e := range s.entries {
		if !filter.Matches(e.record.Metadata) {
			continue
		}
		if e.record.CreatedAt.Before(cutoff) {
			delete(s.entries, id)
			deleted++
		}
	}

	return deleted, nil
}

func NewStore(opts ...vector.Option) vector.Store {
	options := vector.NewOptions(opts...)

	if options.Embedder == nil {
		panic("in-memory vector store requires an embedder")
	}

	return &memoryStore{
		options: options,
		entries: map[string]entry{},
	}
}
