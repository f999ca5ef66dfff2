package service

import (
	"crypto-taint-tracer/internal/domain/entity"
)

// ActorRegistry answers membership of the known-bad-actor list. Lookups are
// in-memory and O(1); loading the registry happens before a run starts.
type ActorRegistry interface {
	// IsKnownBadActor returns true and a human-readable label (for example
	// "Tornado Cash Router") when the address is on the registry.
	IsKnownBadActor(address entity.Address) (bool, string)
}
