package database

import (
	"context"
	"fmt"

	"crypto-taint-tracer/internal/domain/entity"
	"crypto-taint-tracer/internal/domain/repository"
	"crypto-taint-tracer/internal/infrastructure/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Neo4JFlowGraphRepository implements FlowGraphRepository interface
type Neo4JFlowGraphRepository struct {
	client *Neo4JClient
	logger *logger.Logger
}

// NewNeo4JFlowGraphRepository creates a new Neo4J flow graph repository
func NewNeo4JFlowGraphRepository(client *Neo4JClient, logger *logger.Logger) repository.FlowGraphRepository {
	return &Neo4JFlowGraphRepository{
		client: client,
		logger: logger.WithComponent("neo4j-flow-graph-repo"),
	}
}

// SaveRun persists the run node, every scored address, the transfer edges
// and the risk events of a finished ledger. MERGE keyed on run id and
// address keeps re-runs idempotent.
func (r *Neo4JFlowGraphRepository) SaveRun(ctx context.Context, ledger *entity.RiskLedger) error {
	session := r.client.GetDriver().NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		runQuery := `
			MERGE (r:Run {run_id: $run_id})
			SET r.start_address = $start_address,
				r.status = $status,
				r.started_at = $started_at,
				r.finished_at = $finished_at,
				r.event_count = $event_count
		`
		if _, err := tx.Run(ctx, runQuery, map[string]interface{}{
			"run_id":        ledger.RunID,
			"start_address": ledger.StartAddress.String(),
			"status":        string(ledger.Status),
			"started_at":    ledger.StartedAt,
			"finished_at":   ledger.FinishedAt,
			"event_count":   len(ledger.Events),
		}); err != nil {
			return nil, err
		}

		addressQuery := `
			MERGE (a:Address {address: $address})
			ON CREATE SET a.aggregate_severity = $severity
			SET a.aggregate_severity = CASE
				WHEN a.aggregate_severity < $severity THEN $severity
				ELSE a.aggregate_severity END
		`
		for addr, severity := range ledger.AggregateScores {
			if _, err := tx.Run(ctx, addressQuery, map[string]interface{}{
				"address":  addr.String(),
				"severity": severity,
			}); err != nil {
				return nil, err
			}
		}

		transferQuery := `
			MATCH (from:Address {address: $from_address})
			MERGE (to:Address {address: $to_address})
			MERGE (from)-[t:SENT_TO {tx_hash: $tx_hash}]->(to)
			SET t.value = $value,
				t.timestamp = $timestamp,
				t.depth = $depth
		`
		eventQuery := `
			MATCH (r:Run {run_id: $run_id})
			MATCH (a:Address {address: $address})
			MERGE (r)-[f:FLAGGED {sequence: $sequence}]->(a)
			SET f.kind = $kind,
				f.severity = $severity,
				f.depth = $depth,
				f.label = $label,
				f.tx_hash = $tx_hash
		`
		for _, event := range ledger.Events {
			txHash := ""
			if event.Transaction != nil {
				txHash = event.Transaction.Hash
				if _, err := tx.Run(ctx, transferQuery, map[string]interface{}{
					"from_address": event.Transaction.From.String(),
					"to_address":   event.Transaction.To.String(),
					"tx_hash":      event.Transaction.Hash,
					"value":        event.Transaction.ValueString(),
					"timestamp":    event.Transaction.Timestamp,
					"depth":        event.Depth,
				}); err != nil {
					return nil, err
				}
			}

			if _, err := tx.Run(ctx, eventQuery, map[string]interface{}{
				"run_id":   ledger.RunID,
				"address":  event.Subject.String(),
				"sequence": int64(event.Sequence),
				"kind":     string(event.Kind),
				"severity": event.Severity,
				"depth":    event.Depth,
				"label":    event.Label,
				"tx_hash":  txHash,
			}); err != nil {
				return nil, err
			}
		}

		return nil, nil
	})

	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", ledger.RunID, err)
	}

	r.logger.Info("Saved flow graph",
		zap.String("run_id", ledger.RunID),
		zap.Int("addresses", len(ledger.AggregateScores)),
		zap.Int("events", len(ledger.Events)))

	return nil
}

// GetAddressScore reads the stored aggregate severity for an address.
func (r *Neo4JFlowGraphRepository) GetAddressScore(ctx context.Context, address entity.Address) (int, error) {
	session := r.client.GetDriver().NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	query := `
		MATCH (a:Address {address: $address})
		RETURN a.aggregate_severity AS severity
	`

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]interface{}{
			"address": address.String(),
		})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return int64(0), nil
		}
		severity, _ := record.Get("severity")
		if severity == nil {
			return int64(0), nil
		}
		return severity, nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get score for %s: %w", address.Short(), err)
	}

	if severity, ok := result.(int64); ok {
		return int(severity), nil
	}
	return 0, nil
}
