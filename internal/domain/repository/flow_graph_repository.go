package repository

import (
	"context"

	"crypto-taint-tracer/internal/domain/entity"
)

// FlowGraphRepository persists the discovered fund-flow graph of a run:
// address nodes with their aggregate scores, the transfers that connected
// them, and the risk events raised along the way.
type FlowGraphRepository interface {
	// SaveRun writes the whole ledger as a graph. Idempotent per run so a
	// re-run for the same investigation merges instead of duplicating.
	SaveRun(ctx context.Context, ledger *entity.RiskLedger) error

	// GetAddressScore reads back the stored aggregate severity for an
	// address across runs, zero when unknown.
	GetAddressScore(ctx context.Context, address entity.Address) (int, error)
}
