package entity

import (
	"sync"
	"time"
)

// TerminalStatus describes how a traversal run ended.
type TerminalStatus string

const (
	// StatusCompleted means the frontier drained with no cap hit.
	StatusCompleted TerminalStatus = "completed"
	// StatusTruncated means a visit or depth cap stopped the run while
	// work was still pending. Not an error.
	StatusTruncated TerminalStatus = "truncated"
	// StatusPartial means the run was cancelled; events gathered so far
	// are still valid output.
	StatusPartial TerminalStatus = "partial"
)

// RiskLedger is the append-only record of a single investigation run:
// every risk event in discovery order plus the per-address aggregate scores.
// It is the sole artifact handed to reporters.
type RiskLedger struct {
	RunID        string         `json:"run_id"`
	StartAddress Address        `json:"start_address"`
	Status       TerminalStatus `json:"status"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`

	Events          []RiskEvent        `json:"events"`
	AggregateScores map[Address]int    `json:"aggregate_scores"`
	FailedAddresses map[Address]string `json:"failed_addresses,omitempty"`
	PendingAtStop   []Address          `json:"pending_at_stop,omitempty"`
	VisitedCount    int                `json:"visited_count"`

	mu      sync.Mutex
	nextSeq uint64
}

// NewRiskLedger creates an empty ledger for one run.
func NewRiskLedger(runID string, start Address) *RiskLedger {
	return &RiskLedger{
		RunID:           runID,
		StartAddress:    start,
		StartedAt:       time.Now().UTC(),
		AggregateScores: make(map[Address]int),
		FailedAddresses: make(map[Address]string),
	}
}

// Append records an event, assigning the next sequence number under the
// ledger's single counter. Safe for concurrent workers.
func (l *RiskLedger) Append(event RiskEvent) RiskEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	event.Sequence = l.nextSeq
	l.nextSeq++
	if event.ObservedAt.IsZero() {
		event.ObservedAt = time.Now().UTC()
	}
	l.Events = append(l.Events, event)
	return event
}

// EventCount returns the number of appended events. Safe for concurrent use.
func (l *RiskLedger) EventCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Events)
}

// CountByKind tallies events per kind. Intended for reporters once the run
// has finished.
func (l *RiskLedger) CountByKind() map[RiskEventKind]int {
	counts := make(map[RiskEventKind]int)
	for _, e := range l.Events {
		counts[e.Kind]++
	}
	return counts
}
