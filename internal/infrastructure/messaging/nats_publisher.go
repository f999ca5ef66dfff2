package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"crypto-taint-tracer/internal/domain/entity"
	"crypto-taint-tracer/internal/infrastructure/config"
	"crypto-taint-tracer/internal/infrastructure/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSPublisher forwards risk events to NATS so downstream consumers
// (alerting, dashboards) see them without polling report files. Implements
// the Reporter interface.
type NATSPublisher struct {
	conn   *nats.Conn
	config *config.NATSConfig
	logger *logger.Logger
}

// NewNATSPublisher creates a new NATS publisher
func NewNATSPublisher(cfg *config.NATSConfig, logger *logger.Logger) *NATSPublisher {
	return &NATSPublisher{
		config: cfg,
		logger: logger.WithComponent("nats-publisher"),
	}
}

// Connect connects to the NATS server
func (p *NATSPublisher) Connect(ctx context.Context) error {
	if !p.config.Enabled {
		p.logger.Info("NATS is disabled, skipping connection")
		return nil
	}

	p.logger.Info("Connecting to NATS server", zap.String("url", p.config.URL))

	opts := []nats.Option{
		nats.Name("taint-tracer"),
		nats.Timeout(p.config.ConnectTimeout),
		nats.ReconnectWait(p.config.ReconnectDelay),
		nats.MaxReconnects(p.config.ReconnectAttempts),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			p.logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			p.logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			p.logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(p.config.URL, opts...)
	if err != nil {
		p.logger.Error("Failed to connect to NATS", zap.Error(err))
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p.conn = conn
	p.logger.Info("Successfully connected to NATS")
	return nil
}

// Disconnect drains and closes the connection
func (p *NATSPublisher) Disconnect() error {
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			return fmt.Errorf("failed to drain NATS connection: %w", err)
		}
	}
	return nil
}

// riskEventMessage is the wire format of one published event.
type riskEventMessage struct {
	RunID        string           `json:"run_id"`
	StartAddress entity.Address   `json:"start_address"`
	Event        entity.RiskEvent `json:"event"`
}

// Report publishes every ledger event to <prefix>.events.<kind> and a run
// summary to <prefix>.runs.
func (p *NATSPublisher) Report(ctx context.Context, ledger *entity.RiskLedger) error {
	if p.conn == nil {
		p.logger.Debug("NATS not connected, skipping publish")
		return nil
	}

	for _, event := range ledger.Events {
		payload, err := json.Marshal(riskEventMessage{
			RunID:        ledger.RunID,
			StartAddress: ledger.StartAddress,
			Event:        event,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal risk event: %w", err)
		}

		subject := fmt.Sprintf("%s.events.%s", p.config.SubjectPrefix, event.Kind)
		if err := p.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("failed to publish risk event: %w", err)
		}
	}

	summary, err := json.Marshal(map[string]interface{}{
		"run_id":        ledger.RunID,
		"start_address": ledger.StartAddress,
		"status":        ledger.Status,
		"event_count":   len(ledger.Events),
		"visited_count": ledger.VisitedCount,
		"failed_count":  len(ledger.FailedAddresses),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}

	subject := fmt.Sprintf("%s.runs", p.config.SubjectPrefix)
	if err := p.conn.Publish(subject, summary); err != nil {
		return fmt.Errorf("failed to publish run summary: %w", err)
	}

	if err := p.conn.Flush(); err != nil {
		return fmt.Errorf("failed to flush NATS connection: %w", err)
	}

	p.logger.Info("Published risk events",
		zap.String("run_id", ledger.RunID),
		zap.Int("events", len(ledger.Events)))

	return nil
}
