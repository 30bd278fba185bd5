package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPriceNotFound is terminal for a single event: it is excluded from the result.
	ErrPriceNotFound = errors.New("price not found")
	// ErrThrottled marks a transient upstream refusal. Once retries are
	// exhausted it is terminal for the event.
	ErrThrottled           = errors.New("throttled by upstream")
	ErrUnsupportedNetwork  = errors.New("unsupported network")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrInvalidAddress      = errors.New("invalid address")
)

// TransportError aborts a pagination run.
type TransportError struct {
	Page int
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetching reward page %d: %v", e.Page, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RefreshError is returned by the price maintenance operation.
type RefreshError struct {
	Currency string
	Coin     string
	Err      error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refreshing %s/%s prices: %v", e.Currency, e.Coin, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}
