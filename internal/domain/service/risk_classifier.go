package service

import (
	"crypto-taint-tracer/internal/domain/entity"
)

// Finding is one classifier verdict for a single transaction: the candidate
// risk event, the severity it contributes to the address under scan, and
// whether the destination is eligible for the frontier.
type Finding struct {
	Event                entity.RiskEvent
	SeverityContribution int
	EnqueueCandidate     bool
}

// RiskClassifier maps a transaction plus a registry lookup to zero or more
// findings. Classification is pure and deterministic: same transaction, same
// config, same findings. All state changes stay with the traversal engine.
type RiskClassifier struct {
	registry ActorRegistry
}

// NewRiskClassifier creates a classifier backed by the given registry.
func NewRiskClassifier(registry ActorRegistry) *RiskClassifier {
	return &RiskClassifier{registry: registry}
}

// Classify inspects one outgoing transfer observed at the given depth.
//
// Rules, in order:
//   - value >= WhaleThreshold (inclusive, exact big.Int comparison) emits a
//     whale event weighted by WhaleWeight;
//   - a registry hit on the destination emits a bad-actor event weighted by
//     BadActorWeight, and suppresses expansion unless ExpandFlaggedActors;
//   - otherwise a clean, non-excluded, non-self destination within the depth
//     budget emits a zero-severity layering hop marking it for the frontier.
func (c *RiskClassifier) Classify(tx *entity.Transaction, depth int, cfg *TraversalConfig) []Finding {
	var findings []Finding

	if tx.Value != nil && cfg.WhaleThreshold != nil && tx.Value.Cmp(cfg.WhaleThreshold) >= 0 {
		findings = append(findings, Finding{
			Event: entity.RiskEvent{
				Kind:        entity.RiskEventWhale,
				Subject:     tx.From,
				Transaction: tx,
				Severity:    cfg.WhaleWeight,
				Depth:       depth,
			},
			SeverityContribution: cfg.WhaleWeight,
		})
	}

	if hit, label := c.registry.IsKnownBadActor(tx.To); hit {
		findings = append(findings, Finding{
			Event: entity.RiskEvent{
				Kind:        entity.RiskEventKnownBadActorHit,
				Subject:     tx.From,
				Transaction: tx,
				Label:       label,
				Severity:    cfg.BadActorWeight,
				Depth:       depth,
			},
			SeverityContribution: cfg.BadActorWeight,
			EnqueueCandidate:     cfg.ExpandFlaggedActors && depth+1 <= cfg.MaxDepth && !tx.IsSelfTransfer(),
		})
		return findings
	}

	if !tx.IsSelfTransfer() && !cfg.Excluded(tx.To) && depth+1 <= cfg.MaxDepth {
		findings = append(findings, Finding{
			Event: entity.RiskEvent{
				Kind:        entity.RiskEventLayeringHop,
				Subject:     tx.From,
				Transaction: tx,
				Severity:    0,
				Depth:       depth,
			},
			EnqueueCandidate: true,
		})
	}

	return findings
}
