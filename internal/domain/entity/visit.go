package entity

// VisitState tracks the lifecycle of an address within a single run.
// Transitions are Pending -> InFlight -> Done or Failed, exactly once.
type VisitState string

const (
	VisitPending  VisitState = "pending"
	VisitInFlight VisitState = "in_flight"
	VisitDone     VisitState = "done"
	VisitFailed   VisitState = "failed"
)

// VisitRecord is the per-address bookkeeping held by the visited set.
// FirstSeenDepth is fixed at the first claim and never changes, even when a
// shorter path to the same address is discovered later. AggregateSeverity
// only grows and is clamped to the configured cap.
type VisitRecord struct {
	Address           Address    `json:"address"`
	State             VisitState `json:"state"`
	FirstSeenDepth    int        `json:"first_seen_depth"`
	AggregateSeverity int        `json:"aggregate_severity"`
	FailReason        string     `json:"fail_reason,omitempty"`
}
