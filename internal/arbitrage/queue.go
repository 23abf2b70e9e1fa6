package arbitrage

import (
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/pkosilov/skinsbot/internal/domain"
)

// DefaultQueueCapacity bounds the queue to the 500 most profitable
// candidates, matching the marketplace export cadence: a full refresh every
// five minutes can never outrun a five-second drain by more than that.
const DefaultQueueCapacity = 500

// Queue is a bounded, shuffled collection of opportunities shared between
// the refresh loop (Replace) and the drain loop (Take). A single mutex makes
// both operations atomic with respect to each other; the lock is never held
// across I/O.
//
// Candidates that survive a refresh are kept, so a slow consumer does not
// lose undrained high-value entries to a new cycle. Once the merged set
// exceeds the capacity the least profitable entries are dropped.
type Queue struct {
	mu       sync.Mutex
	items    []domain.Opportunity
	capacity int
	shuffle  func(n int, swap func(i, j int))
}

// NewQueue creates an empty queue with the given capacity. A capacity of
// zero or less falls back to DefaultQueueCapacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{
		capacity: capacity,
		shuffle:  rand.Shuffle,
	}
}

// Replace merges candidates with whatever is still undrained, keeps the
// capacity most profitable entries by ProfitPct, and randomizes their order
// so the drain loop does not always deliver the same relative ranking.
func (q *Queue) Replace(candidates []domain.Opportunity) {
	q.mu.Lock()
	defer q.mu.Unlock()

	merged := make([]domain.Opportunity, 0, len(q.items)+len(candidates))
	merged = append(merged, q.items...)
	merged = append(merged, candidates...)

	// Stable sort keeps ties deterministic within one call.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].ProfitPct > merged[j].ProfitPct
	})

	if len(merged) > q.capacity {
		merged = merged[:q.capacity]
	}

	q.shuffle(len(merged), func(i, j int) {
		merged[i], merged[j] = merged[j], merged[i]
	})

	q.items = merged
}

// Take removes and returns the first opportunity in the current (shuffled)
// order. It never blocks; the second return value is false when the queue is
// empty, which is a frequent and valid outcome.
func (q *Queue) Take() (domain.Opportunity, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return domain.Opportunity{}, false
	}

	opp := q.items[0]
	q.items = q.items[1:]
	return opp, true
}

// Len reports the number of undrained opportunities.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
