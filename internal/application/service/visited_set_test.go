package service

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-taint-tracer/internal/domain/entity"
)

var (
	visitAddr  = entity.MustAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	otherAddr  = entity.MustAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	failedAddr = entity.MustAddress("0xcccccccccccccccccccccccccccccccccccccccc")
)

func TestTryClaimSingleWinnerUnderConcurrency(t *testing.T) {
	visited := NewVisitedSet()

	const claimers = 64
	var winners atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(depth int) {
			defer wg.Done()
			if visited.TryClaim(visitAddr, depth) {
				winners.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), winners.Load())
	assert.Equal(t, 1, visited.Len())
}

func TestFirstSeenDepthIsFixed(t *testing.T) {
	visited := NewVisitedSet()

	require.True(t, visited.TryClaim(visitAddr, 3))
	require.False(t, visited.TryClaim(visitAddr, 1), "shorter path found later must not re-claim")

	rec, ok := visited.Record(visitAddr)
	require.True(t, ok)
	assert.Equal(t, 3, rec.FirstSeenDepth)
}

func TestStateTransitions(t *testing.T) {
	visited := NewVisitedSet()
	require.True(t, visited.TryClaim(visitAddr, 0))

	rec, _ := visited.Record(visitAddr)
	assert.Equal(t, entity.VisitPending, rec.State)

	assert.True(t, visited.MarkInFlight(visitAddr))
	assert.False(t, visited.MarkInFlight(visitAddr), "second in-flight transition must lose")

	visited.MarkDone(visitAddr, 10, 100)
	rec, _ = visited.Record(visitAddr)
	assert.Equal(t, entity.VisitDone, rec.State)
	assert.Equal(t, 10, rec.AggregateSeverity)
}

func TestMarkFailedKeepsReason(t *testing.T) {
	visited := NewVisitedSet()
	require.True(t, visited.TryClaim(failedAddr, 1))
	visited.MarkInFlight(failedAddr)
	visited.MarkFailed(failedAddr, "upstream says no such address")

	rec, _ := visited.Record(failedAddr)
	assert.Equal(t, entity.VisitFailed, rec.State)
	assert.Equal(t, "upstream says no such address", rec.FailReason)
}

func TestAggregateSeverityMonotonicAndCapped(t *testing.T) {
	visited := NewVisitedSet()
	require.True(t, visited.TryClaim(visitAddr, 0))

	visited.MarkDone(visitAddr, 60, 100)
	rec, _ := visited.Record(visitAddr)
	assert.Equal(t, 60, rec.AggregateSeverity)

	// More evidence never decreases the score and never exceeds the cap.
	visited.MarkDone(visitAddr, 70, 100)
	rec, _ = visited.Record(visitAddr)
	assert.Equal(t, 100, rec.AggregateSeverity)

	visited.MarkDone(visitAddr, 0, 100)
	rec, _ = visited.Record(visitAddr)
	assert.Equal(t, 100, rec.AggregateSeverity)
}

func TestSnapshot(t *testing.T) {
	visited := NewVisitedSet()
	require.True(t, visited.TryClaim(visitAddr, 0))
	require.True(t, visited.TryClaim(otherAddr, 1))
	require.True(t, visited.TryClaim(failedAddr, 1))

	visited.MarkInFlight(visitAddr)
	visited.MarkDone(visitAddr, 30, 100)
	visited.MarkInFlight(failedAddr)
	visited.MarkFailed(failedAddr, "rate limited")
	// otherAddr stays Pending.

	scores, failed, pending := visited.Snapshot()

	assert.Equal(t, 30, scores[visitAddr])
	assert.Equal(t, "rate limited", failed[failedAddr])
	require.Len(t, pending, 1)
	assert.Equal(t, otherAddr, pending[0])
}
