// Package apperr holds the error kinds surfaced by the eco-points services.
// Callers match them with errors.Is; wrapped context is never part of the
// contract exposed to API consumers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                  = errors.New("not found")
	ErrInvalidInput              = errors.New("invalid input")
	ErrClassificationUnavailable = errors.New("classification unavailable")
	ErrStorageFailure            = errors.New("storage failure")
	ErrInsufficientPoints        = errors.New("insufficient eco points")
	ErrUnauthorized              = errors.New("unauthorized")
)

const (
	KindNotFound                  = "not_found"
	KindInvalidInput              = "invalid_input"
	KindClassificationUnavailable = "classification_unavailable"
	KindStorageFailure            = "storage_failure"
	KindInsufficientPoints        = "insufficient_points"
	KindUnauthorized              = "unauthorized"
	KindInternal                  = "internal"
)

var kinds = []struct {
	err     error
	kind    string
	message string
}{
	{ErrNotFound, KindNotFound, "resource not found"},
	{ErrInvalidInput, KindInvalidInput, "invalid or missing input"},
	{ErrClassificationUnavailable, KindClassificationUnavailable, "waste classification is unavailable, try again later"},
	{ErrInsufficientPoints, KindInsufficientPoints, "not enough eco points"},
	{ErrUnauthorized, KindUnauthorized, "unauthorized"},
	{ErrStorageFailure, KindStorageFailure, "storage failure"},
}

// Kind returns the stable kind name of err.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// Message returns the stable user-facing message for err.
func Message(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.message
		}
	}
	return "internal error"
}

// Invalid wraps ErrInvalidInput with a short reason.
func Invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, reason)
}

// Storage marks err as a persistence failure while keeping it in the chain.
// Errors that already carry a kind are only annotated with op.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != KindInternal {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err)
}

// ReconcileError reports a multi-step write whose rollback could not be
// confirmed. The ledger of UserID must be checked by an operator.
type ReconcileError struct {
	Op     string
	UserID string
	Err    error
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("%s: ledger of user %s needs reconciliation: %v", e.Op, e.UserID, e.Err)
}

func (e *ReconcileError) Unwrap() []error {
	return []error{ErrStorageFailure, e.Err}
}

// NeedsReconciliation reports whether err carries a ReconcileError.
func NeedsReconciliation(err error) bool {
	var re *ReconcileError
	return errors.As(err, &re)
}
