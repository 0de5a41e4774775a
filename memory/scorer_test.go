package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCompositeWeights(t *testing.T) {
	now := time.Now().UTC()

	// fresh, maximally relevant, saturated frequency
	assert.InDelta(t, 1.0, Composite(1.0, now, 10, now), 1e-9)

	// no timestamp metadata falls back to neutral recency
	assert.InDelta(t, 0.5*0.5+0.3*0.5+0.2*0, Composite(0.5, time.Time{}, 0, now), 1e-9)

	// past the horizon, recency contributes nothing
	stale := now.AddDate(0, 0, -60)
	assert.InDelta(t, 0.5*1.0, Composite(1.0, stale, 0, now), 1e-9)
}

func TestCompositeZeroRelevanceIsNotInflated(t *testing.T) {
	now := time.Now().UTC()
	stale := now.AddDate(0, 0, -60)

	// a reported zero contributes nothing
	assert.InDelta(t, 0.0, Composite(0, stale, 0, now), 1e-9)

	// only an unreported score falls back to the neutral default
	assert.InDelta(t, 0.5*0.5, Composite(RelevanceUnknown(), stale, 0, now), 1e-9)

	ranked := Rank([]Recalled{{ID: "zero", Relevance: 0, CreatedAt: stale}}, now)
	assert.InDelta(t, 0.0, ranked[0].Composite, 1e-9)
}

func TestRankSortsDescendingAndStable(t *testing.T) {
	now := time.Now().UTC()

	memories := []Recalled{
		{ID: "low", Relevance: 0.1, CreatedAt: now.AddDate(0, 0, -60)},
		{ID: "tie-a", Relevance: 0.6, CreatedAt: now.AddDate(0, 0, -60)},
		{ID: "tie-b", Relevance: 0.6, CreatedAt: now.AddDate(0, 0, -60)},
		{ID: "high", Relevance: 0.9, CreatedAt: now},
	}

	ranked := Rank(memories, now)

	require.Len(t, ranked, 4)
	assert.Equal(t, "high", ranked[0].ID)
	assert.Equal(t, "tie-a", ranked[1].ID)
	assert.Equal(t, "tie-b", ranked[2].ID)
	assert.Equal(t, "low", ranked[3].ID)
}

func TestRankReadsMetadata(t *testing.T) {
	now := time.Now().UTC()

	memories := []Recalled{
		{
			ID:        "from-meta",
			Relevance: 0.5,
			Metadata: map[string]any{
				"created_at":   now.Format(time.RFC3339Nano),
				"access_count": float64(10),
			},
		},
	}

	ranked := Rank(memories, now)

	assert.InDelta(t, 0.5*0.5+0.3*1.0+0.2*1.0, ranked[0].Composite, 1e-9)
}

func TestRankIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		now := time.Now().UTC()

		n := rapid.IntRange(0, 20).Draw(t, "n")
		memories := make([]Recalled, 0, n)
		for i := 0; i < n; i++ {
			memories = append(memories, Recalled{
				ID:          rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "id"),
				Relevance:   rapid.Float64Range(0, 1).Draw(t, "relevance"),
				CreatedAt:   now.AddDate(0, 0, -rapid.IntRange(0, 90).Draw(t, "age")),
				AccessCount: rapid.IntRange(0, 30).Draw(t, "accesses"),
			})
		}

		once := Rank(append([]Recalled(nil), memories...), now)
		twice := Rank(append([]Recalled(nil), once...), now)

		require.Equal(t, once, twice)
	})
}

func TestCompositeFrequencyMonotonicUntilSaturation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		now := time.Now().UTC()
		relevance := rapid.Float64Range(0, 1).Draw(t, "relevance")
		createdAt := now.AddDate(0, 0, -rapid.IntRange(0, 90).Draw(t, "age"))

		prev := Composite(relevance, createdAt, 0, now)
		for count := 1; count <= 10; count++ {
			next := Composite(relevance, createdAt, count, now)
			require.Greater(t, next, prev, "count %d", count)
			prev = next
		}

		saturated := Composite(relevance, createdAt, 10, now)
		for count := 11; count <= 25; count++ {
			require.InDelta(t, saturated, Composite(relevance, createdAt, count, now), 1e-12)
		}
	})
}
