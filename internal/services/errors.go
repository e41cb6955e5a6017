package services

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderRejected means the initiation call failed and no local row
	// was created; the user can retry with a fresh initiation
	ErrProviderRejected = errors.New("payment provider rejected the request")

	// ErrTransactionNotFound means no row exists for a correlation id. Status
	// queries treat this as "no transaction", not a failure
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrUnknownCorrelationID means a callback referenced a transaction we
	// never initiated. Logged internally; the provider still gets a neutral
	// acknowledgement
	ErrUnknownCorrelationID = errors.New("callback for unknown correlation id")

	// ErrEmailTaken means a registration email is already in use
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials means login failed
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// CascadeError records a transaction that was durably updated while the
// dependent-row update failed. It is logged for batch reconciliation and
// never propagated to the provider.
type CascadeError struct {
	CorrelationID  string
	ContributionID string
	Err            error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("cascade failed for transaction %s (contribution %s): %v", e.CorrelationID, e.ContributionID, e.Err)
}

func (e *CascadeError) Unwrap() error {
	return e.Err
}
