package model

import (
	"github.com/pkg/errors"
)

// Error kinds returned by the ledger core. Callers match them with errors.Is;
// the wrapped message carries the detail.
var (
	ErrValidation          = errors.New("validation error")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrRateNotFound        = errors.New("rate not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrReconciliation      = errors.New("reconciliation error")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrConflict            = errors.New("concurrent update conflict")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrValidation, "validation_error"},
	{ErrInvalidTransition, "invalid_transition"},
	{ErrRateNotFound, "rate_not_found"},
	{ErrInsufficientBalance, "insufficient_balance"},
	{ErrReconciliation, "reconciliation_error"},
	{ErrNotFound, "not_found"},
	{ErrForbidden, "forbidden"},
	{ErrConflict, "conflict"},
}

func Validationf(format string, args ...any) error {
	return errors.Wrapf(ErrValidation, format, args...)
}

func InvalidTransitionf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidTransition, format, args...)
}

func RateNotFoundf(format string, args ...any) error {
	return errors.Wrapf(ErrRateNotFound, format, args...)
}

func InsufficientBalancef(format string, args ...any) error {
	return errors.Wrapf(ErrInsufficientBalance, format, args...)
}

func Reconciliationf(format string, args ...any) error {
	return errors.Wrapf(ErrReconciliation, format, args...)
}

func NotFoundf(format string, args ...any) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

func Forbiddenf(format string, args ...any) error {
	return errors.Wrapf(ErrForbidden, format, args...)
}

// KindOf returns the snake_case name of the error kind, or "internal" when err
// does not belong to the taxonomy.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}
