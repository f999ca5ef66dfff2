package reporting

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"crypto-taint-tracer/internal/domain/entity"
	"crypto-taint-tracer/internal/infrastructure/config"
	"crypto-taint-tracer/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// CSVReporter writes the event timeline of a run to a CSV file in the
// configured output directory. Implements the Reporter interface.
type CSVReporter struct {
	cfg    *config.ReportConfig
	logger *logger.Logger
}

// NewCSVReporter creates a new CSV reporter
func NewCSVReporter(cfg *config.ReportConfig, logger *logger.Logger) *CSVReporter {
	return &CSVReporter{
		cfg:    cfg,
		logger: logger.WithComponent("csv-reporter"),
	}
}

// Report writes investigation_report_<run_id>.csv with one row per event
// in sequence order.
func (r *CSVReporter) Report(ctx context.Context, ledger *entity.RiskLedger) error {
	path := filepath.Join(r.cfg.OutputDir, fmt.Sprintf("investigation_report_%s.csv", ledger.RunID))

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"sequence", "kind", "depth", "subject", "destination", "tx_hash", "value_wei", "severity", "label", "observed_at"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, event := range ledger.Events {
		destination := ""
		txHash := ""
		valueWei := ""
		if event.Transaction != nil {
			destination = event.Transaction.To.String()
			txHash = event.Transaction.Hash
			valueWei = event.Transaction.ValueString()
		}

		row := []string{
			strconv.FormatUint(event.Sequence, 10),
			string(event.Kind),
			strconv.Itoa(event.Depth),
			event.Subject.String(),
			destination,
			txHash,
			valueWei,
			strconv.Itoa(event.Severity),
			event.Label,
			event.ObservedAt.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush report: %w", err)
	}

	r.logger.Info("Wrote CSV report",
		zap.String("run_id", ledger.RunID),
		zap.String("path", path),
		zap.Int("events", len(ledger.Events)))

	return nil
}
