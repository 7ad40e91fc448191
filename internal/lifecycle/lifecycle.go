// Package lifecycle holds the transaction and withdrawal state machines.
// Every status change goes through a command object applied here; services
// only load, persist and publish.
package lifecycle

import (
	"strings"
	"time"

	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/nimasrn/merchant-ledger/internal/rates"
	"github.com/shopspring/decimal"
)

// Access describes who may issue a command against an entity.
type Access int

const (
	AdminOnly Access = iota
	OwnerOnly
	OwnerOrAdmin
)

// Authorize checks the actor against the command's access rule. Non-owners
// get NotFound so foreign entities stay invisible.
func Authorize(access Access, actor *model.Profile, ownerID string) error {
	if actor == nil {
		return model.Forbiddenf("unknown actor")
	}
	switch access {
	case AdminOnly:
		if !actor.IsAdmin() {
			return model.Forbiddenf("actor %s is not an admin", actor.ID)
		}
	case OwnerOnly:
		if actor.ID != ownerID {
			return model.NotFoundf("entity not found for actor %s", actor.ID)
		}
	case OwnerOrAdmin:
		if !actor.IsAdmin() && actor.ID != ownerID {
			return model.NotFoundf("entity not found for actor %s", actor.ID)
		}
	}
	return nil
}

// OpenTransaction builds a new sale with its fee frozen at pct. A sale created
// with evidence starts in pending_verification.
func OpenTransaction(id string, req model.TransactionCreateRequest, pct decimal.Decimal, now time.Time) (*model.Transaction, model.EventType, error) {
	if err := req.Validate(); err != nil {
		return nil, "", err
	}
	fee, net := rates.NetValue(req.GrossValue, pct)
	t := &model.Transaction{
		ID:            id,
		ClientID:      req.ClientID,
		GrossValue:    req.GrossValue,
		FeePercentage: pct,
		FeeValue:      fee,
		NetValue:      net,
		Brand:         req.Brand,
		PaymentType:   req.PaymentType,
		Installments:  req.Installments,
		Status:        model.TransactionPendingReceipt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.Evidence != nil {
		ev := normalizeEvidence(*req.Evidence)
		t.Evidence = &ev
		t.Status = model.TransactionPendingVerification
	}
	if err := t.CheckInvariants(); err != nil {
		return nil, "", err
	}
	return t, model.EventTransactionCreated, nil
}

// OpenWithdrawal builds a pending payout. The balance check belongs to the
// caller's store transaction.
func OpenWithdrawal(id string, req model.WithdrawalCreateRequest, now time.Time) (*model.Withdrawal, model.EventType, error) {
	if err := req.Validate(); err != nil {
		return nil, "", err
	}
	w := &model.Withdrawal{
		ID:          id,
		ClientID:    req.ClientID,
		Amount:      req.Amount,
		Method:      req.Method,
		Destination: req.Destination,
		Status:      model.WithdrawalPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := w.CheckInvariants(); err != nil {
		return nil, "", err
	}
	return w, model.EventWithdrawalRequested, nil
}

// ApplyTransaction runs cmd against t. On error t is left untouched.
func ApplyTransaction(t *model.Transaction, cmd TransactionCommand, now time.Time) (model.EventType, error) {
	if t.Status.IsTerminal() {
		return "", model.InvalidTransitionf("transaction %s is %s", t.ID, t.Status)
	}
	next := *t
	event, err := cmd.apply(&next, now)
	if err != nil {
		return "", err
	}
	next.UpdatedAt = now
	if err := next.CheckInvariants(); err != nil {
		return "", err
	}
	*t = next
	return event, nil
}

// ApplyWithdrawal runs cmd against w. On error w is left untouched.
func ApplyWithdrawal(w *model.Withdrawal, cmd WithdrawalCommand, now time.Time) (model.EventType, error) {
	if w.Status.IsTerminal() {
		return "", model.InvalidTransitionf("withdrawal %s is %s", w.ID, w.Status)
	}
	next := *w
	event, err := cmd.apply(&next, now)
	if err != nil {
		return "", err
	}
	next.UpdatedAt = now
	if err := next.CheckInvariants(); err != nil {
		return "", err
	}
	*w = next
	return event, nil
}

func normalizeEvidence(e model.Evidence) model.Evidence {
	return model.Evidence{
		ReceiptURL:      strings.TrimSpace(e.ReceiptURL),
		NoReceiptReason: strings.TrimSpace(e.NoReceiptReason),
	}
}
