package service

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"crypto-taint-tracer/internal/domain/entity"
	"crypto-taint-tracer/internal/domain/service"
	"crypto-taint-tracer/internal/infrastructure/logger"
	"crypto-taint-tracer/internal/retry"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TraversalEngine implements service.TraversalService: breadth-first
// expansion of an address's outbound fund flow with a bounded worker pool.
// The visited set gates every enqueue so cycles and fan-in cost one fetch
// per address, never one per inbound edge.
type TraversalEngine struct {
	ledgerClient service.LedgerClient
	classifier   *service.RiskClassifier
	logger       *logger.Logger
}

// NewTraversalEngine creates the traversal engine.
func NewTraversalEngine(
	ledgerClient service.LedgerClient,
	classifier *service.RiskClassifier,
	logger *logger.Logger,
) service.TraversalService {
	return &TraversalEngine{
		ledgerClient: ledgerClient,
		classifier:   classifier,
		logger:       logger.WithComponent("traversal-engine"),
	}
}

// run carries the shared state of one traversal.
type run struct {
	cfg      service.TraversalConfig
	ledger   *entity.RiskLedger
	visited  *VisitedSet
	frontier *frontier

	// scheduled counts addresses admitted to the frontier, checked
	// against MaxAddressesVisited at enqueue time.
	scheduled atomic.Int64
	truncated atomic.Bool

	// startErr is set when the starting address itself cannot be
	// fetched, the only failure that aborts the whole run.
	startErr atomic.Value
}

// RunTraversal explores the outbound transfer graph from start and returns
// the completed risk ledger. The returned error is non-nil only for an
// invalid or unreachable starting address; every other failure stays local
// to its branch and surfaces through the ledger's failed-address set.
func (e *TraversalEngine) RunTraversal(ctx context.Context, start entity.Address, cfg service.TraversalConfig) (*entity.RiskLedger, error) {
	cfg = withDefaults(cfg)

	r := &run{
		cfg:      cfg,
		ledger:   entity.NewRiskLedger(uuid.NewString(), start),
		visited:  NewVisitedSet(),
		frontier: newFrontier(),
	}

	e.logger.Info("Starting traversal",
		zap.String("run_id", r.ledger.RunID),
		zap.String("start", start.String()),
		zap.Int("max_depth", cfg.MaxDepth),
		zap.Int("max_addresses", cfg.MaxAddressesVisited),
		zap.Int("concurrency", cfg.Concurrency))

	// The start address is always explored at depth 0.
	r.visited.TryClaim(start, 0)
	r.scheduled.Store(1)
	r.frontier.Push(start, 0)

	// Close the frontier as soon as the run is cancelled so blocked
	// workers drain instead of waiting for quiescence.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			r.frontier.Close()
		case <-watchDone:
		}
	}()

	var g errgroup.Group
	for i := 0; i < cfg.Concurrency; i++ {
		g.Go(func() error {
			for {
				item, ok := r.frontier.Pop()
				if !ok {
					return nil
				}
				e.processAddress(ctx, r, item)
				r.frontier.Done()
			}
		})
	}
	_ = g.Wait()
	close(watchDone)

	if err, ok := r.startErr.Load().(error); ok && err != nil {
		e.logger.Error("Start address unreachable, aborting run",
			zap.String("run_id", r.ledger.RunID),
			zap.String("start", start.String()),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", service.ErrStartAddressUnreachable, err)
	}

	e.finalize(ctx, r)

	e.logger.Info("Traversal finished",
		zap.String("run_id", r.ledger.RunID),
		zap.String("status", string(r.ledger.Status)),
		zap.Int("events", len(r.ledger.Events)),
		zap.Int("visited", r.ledger.VisitedCount),
		zap.Int("failed", len(r.ledger.FailedAddresses)))

	return r.ledger, nil
}

// processAddress handles one dequeued (address, depth) unit: fetch with
// retry, classify every transfer in upstream order, expand the frontier,
// retire the address.
func (e *TraversalEngine) processAddress(ctx context.Context, r *run, item frontierItem) {
	if ctx.Err() != nil {
		// Cancelled before the fetch started; the record stays Pending
		// and shows up in the ledger's pending set.
		return
	}

	if !r.visited.MarkInFlight(item.addr) {
		// Duplicate unit; the claim gate already handed this address to
		// another worker.
		return
	}

	txs, err := e.fetchWithRetry(ctx, r, item.addr)
	if err != nil {
		r.visited.MarkFailed(item.addr, err.Error())
		if item.depth == 0 && item.addr == r.ledger.StartAddress {
			r.startErr.Store(err)
			r.frontier.Close()
			return
		}
		e.logger.Warn("Address fetch failed, continuing run",
			zap.String("address", item.addr.Short()),
			zap.Int("depth", item.depth),
			zap.Error(err))
		return
	}

	severityDelta := 0
	for i := range txs {
		tx := &txs[i]
		for _, finding := range e.classifier.Classify(tx, item.depth, &r.cfg) {
			r.ledger.Append(finding.Event)
			severityDelta += finding.SeverityContribution

			if finding.EnqueueCandidate {
				e.enqueue(ctx, r, tx.To, item.depth+1)
			}
		}
	}

	r.visited.MarkDone(item.addr, severityDelta, r.cfg.SeverityCap)

	e.logger.Debug("Address processed",
		zap.String("address", item.addr.Short()),
		zap.Int("depth", item.depth),
		zap.Int("transfers", len(txs)),
		zap.Int("severity_delta", severityDelta))
}

// enqueue admits a destination to the frontier if it survives the claim
// gate, the visit cap, and cancellation. A destination seen twice in one
// batch loses the second TryClaim and is enqueued once; its transactions
// still produced their own events above.
func (e *TraversalEngine) enqueue(ctx context.Context, r *run, dest entity.Address, depth int) {
	if !r.visited.TryClaim(dest, depth) {
		return
	}

	if ctx.Err() != nil {
		// Claimed but never scheduled: reported as pending, run is Partial.
		return
	}

	if r.scheduled.Load() >= int64(r.cfg.MaxAddressesVisited) {
		// Claimed but over budget: reported as pending, run is Truncated.
		r.truncated.Store(true)
		e.logger.Warn("Visit cap reached, truncating traversal",
			zap.String("address", dest.Short()),
			zap.Int("cap", r.cfg.MaxAddressesVisited))
		return
	}

	r.scheduled.Add(1)
	r.frontier.Push(dest, depth)
}

// fetchWithRetry wraps the ledger client in the run's backoff policy and a
// per-fetch timeout that is independent of any run-level deadline.
func (e *TraversalEngine) fetchWithRetry(ctx context.Context, r *run, addr entity.Address) ([]entity.Transaction, error) {
	policy := retry.Policy{
		MaxAttempts: r.cfg.RetryMaxAttempts,
		BaseDelay:   r.cfg.RetryBaseDelay,
		MaxDelay:    r.cfg.RetryMaxDelay,
		Jitter:      r.cfg.RetryJitter,
		Classify: func(err error) retry.Class {
			if service.IsRetryableFetchError(err) {
				return retry.Retryable
			}
			return retry.Fatal
		},
		OnRetry: func(attempt int, wait time.Duration, err error) {
			e.logger.Warn("Retrying ledger fetch",
				zap.String("address", addr.Short()),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err))
		},
	}

	var txs []entity.Transaction
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout)
		defer cancel()

		out, err := e.ledgerClient.GetOutgoingTransfers(fetchCtx, addr)
		if err != nil {
			return err
		}
		txs = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// finalize snapshots the visited set into the ledger and decides the
// terminal status. Cancellation wins over truncation: a cancelled run is
// Partial even when a cap was also hit.
func (e *TraversalEngine) finalize(ctx context.Context, r *run) {
	scores, failed, pending := r.visited.Snapshot()

	r.ledger.AggregateScores = scores
	r.ledger.FailedAddresses = failed
	r.ledger.PendingAtStop = pending
	r.ledger.VisitedCount = len(scores) - len(pending)
	r.ledger.FinishedAt = time.Now().UTC()

	switch {
	case ctx.Err() != nil:
		r.ledger.Status = entity.StatusPartial
	case r.truncated.Load():
		r.ledger.Status = entity.StatusTruncated
	default:
		r.ledger.Status = entity.StatusCompleted
	}
}

// withDefaults fills unset config fields so a zero-heavy config still runs.
func withDefaults(cfg service.TraversalConfig) service.TraversalConfig {
	if cfg.WhaleThreshold == nil {
		// 2 native units in base units (2e18 wei).
		cfg.WhaleThreshold = new(big.Int).Mul(big.NewInt(2), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	}
	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = 0
	}
	if cfg.MaxAddressesVisited <= 0 {
		cfg.MaxAddressesVisited = 250
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.WhaleWeight <= 0 {
		cfg.WhaleWeight = 5
	}
	if cfg.BadActorWeight <= 0 {
		cfg.BadActorWeight = 25
	}
	if cfg.SeverityCap <= 0 {
		cfg.SeverityCap = 100
	}
	if cfg.RetryMaxAttempts <= 0 {
		cfg.RetryMaxAttempts = 3
	}
	return cfg
}
