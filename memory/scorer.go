package memory

import (
	"math"
	"sort"
	"time"

	getsafe "github.com/ybryx/robolease/util/get_safe"
)

// Scoring weights and decay horizon for recalled memories.
const (
	relevanceWeight = 0.5
	recencyWeight   = 0.3
	frequencyWeight = 0.2

	recencyHorizonDays  = 30.0
	frequencySaturation = 10.0
	defaultRelevance    = 0.5
	defaultRecency      = 0.5
)

// RelevanceUnknown marks a hit whose store reported no relevance score.
// Composite substitutes the neutral default for it; a reported zero stays zero.
func RelevanceUnknown() float64 {
	return math.NaN()
}

// Composite blends relevance, recency, and access frequency into one score.
// Deterministic and side-effect free.
func Composite(relevance float64, createdAt time.Time, accessCount int, now time.Time) float64 {
	if math.IsNaN(relevance) {
		relevance = defaultRelevance
	}

	recency := defaultRecency
	if !createdAt.IsZero() {
		ageDays := now.Sub(createdAt).Hours() / 24
		recency = 1 - ageDays/recencyHorizonDays
		if recency < 0 {
			recency = 0
		}
	}

	frequency := float64(accessCount) / frequencySaturation
	if frequency > 1 {
		frequency = 1
	}

	return relevanceWeight*relevance + recencyWeight*recency + frequencyWeight*frequency
}

// Rank annotates each memory with its composite score and stable-sorts the
// slice descending, so ties keep their input order. The input slice is
// modified in place and returned.
func Rank(memories []Recalled, now time.Time) []Recalled {
	for i := range memories {
		relevance := memories[i].Relevance

		createdAt := memories[i].CreatedAt
		accessCount := memories[i].AccessCount

		if memories[i].Metadata != nil {
			if ts := getsafe.String(memories[i].Metadata, "created_at"); len(ts) > 0 {
				if parsed, err := ParseTimestamp(ts); err == nil {
					createdAt = parsed
				}
			}
			if n, ok := getsafe.Float(memories[i].Metadata, "access_count"); ok {
				accessCount = int(n)
			}
		}

		memories[i].Composite = Composite(relevance, createdAt, accessCount, now)
	}

	sort.SliceStable(memories, func(i, j int) bool {
		return memories[i].Composite > memories[j].Composite
	})

	return memories
}
