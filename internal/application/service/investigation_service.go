package service

import (
	"context"
	"fmt"

	"crypto-taint-tracer/internal/domain/entity"
	"crypto-taint-tracer/internal/domain/repository"
	"crypto-taint-tracer/internal/domain/service"
	"crypto-taint-tracer/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// InvestigationApplicationService drives a full investigation: run the
// traversal, persist the flow graph, fan the ledger out to reporters.
type InvestigationApplicationService struct {
	traversal service.TraversalService
	flowGraph repository.FlowGraphRepository
	reporters []service.Reporter
	logger    *logger.Logger
}

// NewInvestigationApplicationService creates the orchestrating service.
// flowGraph may be nil when graph persistence is disabled.
func NewInvestigationApplicationService(
	traversal service.TraversalService,
	flowGraph repository.FlowGraphRepository,
	reporters []service.Reporter,
	logger *logger.Logger,
) *InvestigationApplicationService {
	return &InvestigationApplicationService{
		traversal: traversal,
		flowGraph: flowGraph,
		reporters: reporters,
		logger:    logger.WithComponent("investigation-service"),
	}
}

// Investigate validates the raw target address, runs the traversal, and
// hands the ledger downstream. Persistence and reporter failures are logged
// and never fail the investigation; only an invalid or unreachable start
// address returns an error.
func (s *InvestigationApplicationService) Investigate(ctx context.Context, rawAddress string, cfg service.TraversalConfig) (*entity.RiskLedger, error) {
	start, err := entity.NormalizeAddress(rawAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid target address: %w", err)
	}

	s.logger.Info("Starting investigation", zap.String("target", start.String()))

	ledger, err := s.traversal.RunTraversal(ctx, start, cfg)
	if err != nil {
		return nil, fmt.Errorf("traversal failed: %w", err)
	}

	if s.flowGraph != nil {
		if err := s.flowGraph.SaveRun(ctx, ledger); err != nil {
			s.logger.Error("Failed to persist flow graph",
				zap.String("run_id", ledger.RunID),
				zap.Error(err))
			// Persistence is best effort; the ledger is still reported.
		}
	}

	for _, reporter := range s.reporters {
		if err := reporter.Report(ctx, ledger); err != nil {
			s.logger.Error("Reporter failed",
				zap.String("run_id", ledger.RunID),
				zap.Error(err))
		}
	}

	s.logger.Info("Investigation finished",
		zap.String("run_id", ledger.RunID),
		zap.String("status", string(ledger.Status)),
		zap.Int("events", len(ledger.Events)))

	return ledger, nil
}
