package service

import (
	"context"
	"errors"
	"fmt"

	"crypto-taint-tracer/internal/domain/entity"
)

// FetchErrorKind splits upstream failures into the two classes the retry
// policy cares about.
type FetchErrorKind int

const (
	// FetchErrorTransient covers rate limits, timeouts and upstream
	// hiccups; worth retrying with backoff.
	FetchErrorTransient FetchErrorKind = iota
	// FetchErrorPermanent covers malformed addresses and "no such
	// address" responses; retrying cannot help.
	FetchErrorPermanent
)

// FetchError is returned by LedgerClient implementations so callers can
// classify without depending on transport details.
type FetchError struct {
	Kind    FetchErrorKind
	Address entity.Address
	Err     error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchErrorTransient:
		return fmt.Sprintf("transient fetch failure for %s: %v", e.Address.Short(), e.Err)
	default:
		return fmt.Sprintf("permanent fetch failure for %s: %v", e.Address.Short(), e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewTransientFetchError wraps err as retryable.
func NewTransientFetchError(addr entity.Address, err error) *FetchError {
	return &FetchError{Kind: FetchErrorTransient, Address: addr, Err: err}
}

// NewPermanentFetchError wraps err as non-retryable.
func NewPermanentFetchError(addr entity.Address, err error) *FetchError {
	return &FetchError{Kind: FetchErrorPermanent, Address: addr, Err: err}
}

// IsRetryableFetchError reports whether err should go through the backoff
// loop. Unclassified errors are treated as transient so a misbehaving
// upstream does not silently drop branches.
func IsRetryableFetchError(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind == FetchErrorTransient
	}
	return true
}

// LedgerClient fetches an address's outgoing native-currency transfers from
// the remote ledger. Implementations must return transfers in ascending
// chronological order and wrap failures in FetchError.
type LedgerClient interface {
	GetOutgoingTransfers(ctx context.Context, address entity.Address) ([]entity.Transaction, error)
}
