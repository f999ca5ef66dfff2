package service

import (
	"context"

	"crypto-taint-tracer/internal/domain/entity"
)

// Reporter consumes the finished risk ledger and renders or forwards it.
// A reporter failure never fails the investigation itself.
type Reporter interface {
	Report(ctx context.Context, ledger *entity.RiskLedger) error
}
