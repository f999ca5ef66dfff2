package service

import (
	"sync"

	"crypto-taint-tracer/internal/domain/entity"
)

// VisitedSet is the single deduplication and cycle-breaking gate of the
// traversal. Every address gets exactly one VisitRecord for the lifetime of
// a run; TryClaim has exactly one winner per address under concurrency.
type VisitedSet struct {
	mu      sync.Mutex
	records map[entity.Address]*entity.VisitRecord
}

// NewVisitedSet creates an empty visited set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{
		records: make(map[entity.Address]*entity.VisitRecord),
	}
}

// TryClaim atomically creates a Pending record for address at the given
// depth and returns true, or returns false when the address was already
// claimed. The first claim fixes FirstSeenDepth for the rest of the run.
func (v *VisitedSet) TryClaim(address entity.Address, depth int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, exists := v.records[address]; exists {
		return false
	}
	v.records[address] = &entity.VisitRecord{
		Address:        address,
		State:          entity.VisitPending,
		FirstSeenDepth: depth,
	}
	return true
}

// MarkInFlight transitions a Pending address to InFlight and reports
// whether the transition happened. A false return means the address was
// already picked up or retired; the caller must not fetch it again.
func (v *VisitedSet) MarkInFlight(address entity.Address) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	rec, ok := v.records[address]
	if !ok || rec.State != entity.VisitPending {
		return false
	}
	rec.State = entity.VisitInFlight
	return true
}

// MarkDone retires an address, adding severityDelta to its aggregate and
// clamping the result to cap. Aggregates only ever grow.
func (v *VisitedSet) MarkDone(address entity.Address, severityDelta, cap int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	rec, ok := v.records[address]
	if !ok {
		return
	}
	rec.State = entity.VisitDone
	v.addSeverity(rec, severityDelta, cap)
}

// MarkFailed retires an address with the failure reason. Severity gathered
// before the failure is kept.
func (v *VisitedSet) MarkFailed(address entity.Address, reason string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if rec, ok := v.records[address]; ok {
		rec.State = entity.VisitFailed
		rec.FailReason = reason
	}
}

func (v *VisitedSet) addSeverity(rec *entity.VisitRecord, delta, cap int) {
	if delta <= 0 {
		return
	}
	rec.AggregateSeverity += delta
	if cap > 0 && rec.AggregateSeverity > cap {
		rec.AggregateSeverity = cap
	}
}

// Record returns a copy of the record for address, if any.
func (v *VisitedSet) Record(address entity.Address) (entity.VisitRecord, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	rec, ok := v.records[address]
	if !ok {
		return entity.VisitRecord{}, false
	}
	return *rec, true
}

// Len returns the number of claimed addresses.
func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.records)
}

// Snapshot copies out the final aggregates, the failed set, and every
// address still Pending or InFlight when the run stopped.
func (v *VisitedSet) Snapshot() (scores map[entity.Address]int, failed map[entity.Address]string, pending []entity.Address) {
	v.mu.Lock()
	defer v.mu.Unlock()

	scores = make(map[entity.Address]int, len(v.records))
	failed = make(map[entity.Address]string)
	for addr, rec := range v.records {
		scores[addr] = rec.AggregateSeverity
		switch rec.State {
		case entity.VisitFailed:
			failed[addr] = rec.FailReason
		case entity.VisitPending, entity.VisitInFlight:
			pending = append(pending, addr)
		}
	}
	return scores, failed, pending
}
