package lifecycle

import (
	"strings"
	"time"

	"github.com/nimasrn/merchant-ledger/internal/model"
)

// WithdrawalCommand is one edge of the withdrawal state machine.
type WithdrawalCommand interface {
	Transition() string
	Actor() string
	Access() Access
	apply(w *model.Withdrawal, now time.Time) (model.EventType, error)
}

// PayWithdrawal settles a pending payout; proof, payer and time are set together.
type PayWithdrawal struct {
	AdminID  string
	ProofURL string
}

func (c PayWithdrawal) Transition() string { return "pay" }
func (c PayWithdrawal) Actor() string      { return c.AdminID }
func (c PayWithdrawal) Access() Access     { return AdminOnly }

func (c PayWithdrawal) apply(w *model.Withdrawal, now time.Time) (model.EventType, error) {
	if w.Status != model.WithdrawalPending {
		return "", model.InvalidTransitionf("cannot pay withdrawal %s in status %s", w.ID, w.Status)
	}
	proof := strings.TrimSpace(c.ProofURL)
	if proof == "" {
		return "", model.Validationf("payment proof is required")
	}
	w.Status = model.WithdrawalPaid
	w.Payment = &model.WithdrawalPayment{ProofURL: proof, PaidBy: c.AdminID, PaidAt: now}
	return model.EventWithdrawalPaid, nil
}

type CancelWithdrawal struct {
	ActorID string
}

func (c CancelWithdrawal) Transition() string { return "cancel" }
func (c CancelWithdrawal) Actor() string      { return c.ActorID }
func (c CancelWithdrawal) Access() Access     { return OwnerOrAdmin }

func (c CancelWithdrawal) apply(w *model.Withdrawal, now time.Time) (model.EventType, error) {
	if w.Status != model.WithdrawalPending {
		return "", model.InvalidTransitionf("cannot cancel withdrawal %s in status %s", w.ID, w.Status)
	}
	w.Status = model.WithdrawalCancelled
	w.Cancellation = &model.WithdrawalCancellation{By: c.ActorID, At: now}
	return model.EventWithdrawalCancelled, nil
}
