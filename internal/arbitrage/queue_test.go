package arbitrage

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkosilov/skinsbot/internal/domain"
)

// noShuffle keeps the ranked order so assertions can reason about it.
func noShuffle(n int, swap func(i, j int)) {}

func makeOpps(n int) []domain.Opportunity {
	opps := make([]domain.Opportunity, n)
	for i := range opps {
		opps[i] = domain.Opportunity{
			Name:      fmt.Sprintf("skin-%04d", i),
			ProfitPct: float64(i),
		}
	}
	return opps
}

func TestQueueReplaceTruncatesToMostProfitable(t *testing.T) {
	q := NewQueue(500)
	q.shuffle = noShuffle

	q.Replace(makeOpps(1000))

	require.Equal(t, 500, q.Len())

	// Top-N survives: everything kept has ProfitPct >= the 500th-highest
	// input value (999, 998, ... 500).
	for {
		opp, ok := q.Take()
		if !ok {
			break
		}
		assert.GreaterOrEqual(t, opp.ProfitPct, float64(500))
	}
}

func TestQueueTakeDrainsThenEmpty(t *testing.T) {
	q := NewQueue(500)
	q.Replace(makeOpps(500))

	for i := 0; i < 500; i++ {
		_, ok := q.Take()
		require.True(t, ok, "take %d should succeed", i)
	}

	_, ok := q.Take()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestQueueEmptyReplaceIsIdempotentAtCapacity(t *testing.T) {
	q := NewQueue(500)
	q.Replace(makeOpps(500))

	for i := 0; i < 10; i++ {
		q.Replace(nil)
		assert.Equal(t, 500, q.Len())
	}
}

func TestQueueReplaceKeepsUndrainedEntries(t *testing.T) {
	q := NewQueue(500)
	q.shuffle = noShuffle

	q.Replace([]domain.Opportunity{{Name: "old-high", ProfitPct: 90}})

	// A later cycle with a lower-value candidate must not evict the
	// undrained high-value one.
	q.Replace([]domain.Opportunity{{Name: "new-low", ProfitPct: 10}})

	require.Equal(t, 2, q.Len())
	first, ok := q.Take()
	require.True(t, ok)
	assert.Equal(t, "old-high", first.Name)
}

func TestQueueCapacityNeverExceeded(t *testing.T) {
	q := NewQueue(50)
	for i := 0; i < 5; i++ {
		q.Replace(makeOpps(40))
		assert.LessOrEqual(t, q.Len(), 50)
	}
}

func TestQueueDefaultCapacity(t *testing.T) {
	q := NewQueue(0)
	q.Replace(makeOpps(1000))
	assert.Equal(t, DefaultQueueCapacity, q.Len())
}

func TestQueueShuffleCoversAllEntries(t *testing.T) {
	q := NewQueue(100)
	q.Replace(makeOpps(100))

	seen := make(map[string]bool, 100)
	for {
		opp, ok := q.Take()
		if !ok {
			break
		}
		assert.False(t, seen[opp.Name], "duplicate delivery of %s", opp.Name)
		seen[opp.Name] = true
	}
	assert.Len(t, seen, 100)
}
