package ledger

import "fmt"

// InvalidInputError signals malformed numeric input (negative or
// non-finite buy price, non-positive split ratio). Never retried.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

// NegativeRemainingSharesError signals an edit that would push a wallet
// with recorded sales below zero remaining shares. The write is aborted.
type NegativeRemainingSharesError struct {
	WalletID  string
	Remaining float64
}

func (e *NegativeRemainingSharesError) Error() string {
	return fmt.Sprintf("wallet %s: edit would leave %.5f remaining shares against recorded sales", e.WalletID, e.Remaining)
}

// NegativeSharesError signals an adjustment that would make a wallet's
// total shares negative. Defensive; not reachable through normal flows.
type NegativeSharesError struct {
	WalletID string
	Total    float64
}

func (e *NegativeSharesError) Error() string {
	return fmt.Sprintf("wallet %s: adjustment would leave %.5f total shares", e.WalletID, e.Total)
}

// PersistenceError wraps a store read or write failure. Callers may retry
// the whole operation; the wrapped error is never swallowed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
