package reporting

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"

	"crypto-taint-tracer/internal/domain/entity"
)

// ConsoleReporter prints the investigation summary to a writer, stdout in
// production. Implements the Reporter interface.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a reporter writing to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: os.Stdout}
}

// NewConsoleReporterTo creates a reporter writing to the given writer.
func NewConsoleReporterTo(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

// Report renders the event timeline and the run summary.
func (r *ConsoleReporter) Report(ctx context.Context, ledger *entity.RiskLedger) error {
	fmt.Fprintf(r.out, "==================================================\n")
	fmt.Fprintf(r.out, " INVESTIGATION REPORT %s\n", ledger.RunID)
	fmt.Fprintf(r.out, " Target: %s   Status: %s\n", ledger.StartAddress, ledger.Status)
	fmt.Fprintf(r.out, "==================================================\n")

	for _, event := range ledger.Events {
		detail := ""
		if event.Transaction != nil {
			detail = fmt.Sprintf(" | %s ETH -> %s", formatEth(event.Transaction.Value), event.Transaction.To.Short())
		}
		if event.Label != "" {
			detail += " | " + event.Label
		}
		fmt.Fprintf(r.out, "  [depth %d] %s%s\n", event.Depth, event.Kind, detail)
	}

	counts := ledger.CountByKind()
	score := InvestigationScore(ledger)

	fmt.Fprintf(r.out, "--------------------------------------------------\n")
	fmt.Fprintf(r.out, " Total events:        %d\n", len(ledger.Events))
	fmt.Fprintf(r.out, " Bad actor hits:      %d\n", counts[entity.RiskEventKnownBadActorHit])
	fmt.Fprintf(r.out, " Whale transfers:     %d\n", counts[entity.RiskEventWhale])
	fmt.Fprintf(r.out, " Layering hops:       %d\n", counts[entity.RiskEventLayeringHop])
	fmt.Fprintf(r.out, " Addresses visited:   %d\n", ledger.VisitedCount)
	fmt.Fprintf(r.out, " Addresses failed:    %d\n", len(ledger.FailedAddresses))
	fmt.Fprintf(r.out, " RISK SCORE: %d/100 (%s)\n", score, RiskBand(score))

	return nil
}

// formatEth renders a wei amount as a whole-unit string with remainder,
// avoiding float conversion.
func formatEth(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	whole, frac := new(big.Int).QuoRem(wei, weiPerEth, new(big.Int))
	if frac.Sign() == 0 {
		return whole.String()
	}
	return fmt.Sprintf("%s.%018s", whole.String(), frac.String())
}
