package entity

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskLedgerAppendAssignsSequence(t *testing.T) {
	ledger := NewRiskLedger("run-1", MustAddress("0x1111111111111111111111111111111111111111"))

	first := ledger.Append(RiskEvent{Kind: RiskEventWhale})
	second := ledger.Append(RiskEvent{Kind: RiskEventLayeringHop})

	assert.Equal(t, uint64(0), first.Sequence)
	assert.Equal(t, uint64(1), second.Sequence)
	assert.False(t, first.ObservedAt.IsZero())
	require.Len(t, ledger.Events, 2)
	assert.Equal(t, RiskEventWhale, ledger.Events[0].Kind)
}

func TestRiskLedgerConcurrentAppend(t *testing.T) {
	ledger := NewRiskLedger("run-1", MustAddress("0x1111111111111111111111111111111111111111"))

	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				ledger.Append(RiskEvent{Kind: RiskEventLayeringHop})
			}
		}()
	}
	wg.Wait()

	require.Equal(t, writers*perWriter, ledger.EventCount())

	// Sequence numbers form a total order with no gaps or duplicates.
	seen := make(map[uint64]bool, writers*perWriter)
	for _, e := range ledger.Events {
		assert.False(t, seen[e.Sequence], "duplicate sequence %d", e.Sequence)
		seen[e.Sequence] = true
		assert.Less(t, e.Sequence, uint64(writers*perWriter))
	}
}

func TestRiskLedgerCountByKind(t *testing.T) {
	ledger := NewRiskLedger("run-1", MustAddress("0x1111111111111111111111111111111111111111"))
	ledger.Append(RiskEvent{Kind: RiskEventWhale})
	ledger.Append(RiskEvent{Kind: RiskEventWhale})
	ledger.Append(RiskEvent{Kind: RiskEventKnownBadActorHit})

	counts := ledger.CountByKind()
	assert.Equal(t, 2, counts[RiskEventWhale])
	assert.Equal(t, 1, counts[RiskEventKnownBadActorHit])
	assert.Equal(t, 0, counts[RiskEventLayeringHop])
}
