package service

import (
	"context"
	"errors"
	"math/big"
	"time"

	"crypto-taint-tracer/internal/domain/entity"
)

// ErrStartAddressUnreachable is returned when the starting address itself
// cannot be fetched. This is the only fatal condition; any other address
// failure stays local to its branch.
var ErrStartAddressUnreachable = errors.New("start address unreachable")

// TraversalConfig is the full tuning surface of a run. Severity weights and
// the whale threshold are the only numeric knobs in the system and always
// arrive from configuration, never constants in the engine.
type TraversalConfig struct {
	// WhaleThreshold is the inclusive lower bound, in base units, above
	// which a transfer is flagged as a whale event.
	WhaleThreshold *big.Int

	MaxDepth            int
	MaxAddressesVisited int
	Concurrency         int
	FetchTimeout        time.Duration

	// ExpandFlaggedActors controls whether an address already flagged by
	// the registry is still explored for its own outflows.
	ExpandFlaggedActors bool

	// ExclusionList holds addresses that are classified against but never
	// enqueued: exchange hot wallets, the zero address and similar sinks.
	ExclusionList map[entity.Address]struct{}

	// Severity weights. WhaleWeight applies per whale transfer,
	// BadActorWeight per registry hit; layering hops carry no direct
	// severity. SeverityCap bounds runaway fan-in scores.
	WhaleWeight    int
	BadActorWeight int
	SeverityCap    int

	// Retry policy for transient upstream failures.
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	RetryJitter      time.Duration
}

// Excluded reports whether addr is on the exclusion list.
func (c *TraversalConfig) Excluded(addr entity.Address) bool {
	if addr.IsZero() {
		return true
	}
	_, ok := c.ExclusionList[addr]
	return ok
}

// TraversalService runs one investigation from a starting address and
// produces the risk ledger handed to reporters.
type TraversalService interface {
	RunTraversal(ctx context.Context, start entity.Address, cfg TraversalConfig) (*entity.RiskLedger, error)
}
