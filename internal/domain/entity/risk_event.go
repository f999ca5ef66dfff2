package entity

import (
	"time"
)

// RiskEventKind enumerates the risk signals the classifier can emit.
type RiskEventKind string

const (
	// RiskEventWhale marks a transfer at or above the whale threshold.
	RiskEventWhale RiskEventKind = "whale"
	// RiskEventKnownBadActorHit marks a transfer to an address on the
	// bad-actor registry. Strongest signal.
	RiskEventKnownBadActorHit RiskEventKind = "known_bad_actor_hit"
	// RiskEventLayeringHop marks a destination eligible for recursive
	// exploration. Carries no direct severity.
	RiskEventLayeringHop RiskEventKind = "layering_hop"
)

// RiskEvent is a single immutable entry in the risk ledger. Sequence is
// assigned under the ledger's counter at append time, giving a total
// discovery order even when workers finish out of wall-clock order.
type RiskEvent struct {
	Kind        RiskEventKind `json:"kind"`
	Subject     Address       `json:"subject"`
	Transaction *Transaction  `json:"transaction,omitempty"`
	Label       string        `json:"label,omitempty"`
	Severity    int           `json:"severity"`
	Depth       int           `json:"depth"`
	Sequence    uint64        `json:"sequence"`
	ObservedAt  time.Time     `json:"observed_at"`
}
