package lifecycle

import (
	"strings"
	"time"

	"github.com/nimasrn/merchant-ledger/internal/model"
)

// TransactionCommand is one edge of the transaction state machine.
type TransactionCommand interface {
	// Transition is the stable name used in logs and metrics.
	Transition() string
	Actor() string
	Access() Access
	apply(t *model.Transaction, now time.Time) (model.EventType, error)
}

// SubmitReceipt attaches a receipt or a no-receipt reason to a sale.
type SubmitReceipt struct {
	ActorID  string
	Evidence model.Evidence
}

func (c SubmitReceipt) Transition() string { return "submit_receipt" }
func (c SubmitReceipt) Actor() string      { return c.ActorID }
func (c SubmitReceipt) Access() Access     { return OwnerOrAdmin }

func (c SubmitReceipt) apply(t *model.Transaction, _ time.Time) (model.EventType, error) {
	if t.Status != model.TransactionPendingReceipt {
		return "", model.InvalidTransitionf("cannot submit receipt for transaction %s in status %s", t.ID, t.Status)
	}
	if err := c.Evidence.Validate(); err != nil {
		return "", err
	}
	ev := normalizeEvidence(c.Evidence)
	t.Evidence = &ev
	t.Status = model.TransactionPendingVerification
	return model.EventTransactionReceiptSubmitted, nil
}

type Verify struct {
	AdminID string
}

func (c Verify) Transition() string { return "verify" }
func (c Verify) Actor() string      { return c.AdminID }
func (c Verify) Access() Access     { return AdminOnly }

func (c Verify) apply(t *model.Transaction, now time.Time) (model.EventType, error) {
	if t.Status != model.TransactionPendingVerification {
		return "", model.InvalidTransitionf("cannot verify transaction %s in status %s", t.ID, t.Status)
	}
	t.Status = model.TransactionVerified
	t.Verification = &model.Verification{At: now, By: c.AdminID}
	return model.EventTransactionVerified, nil
}

type Reject struct {
	AdminID string
	Reason  string
}

func (c Reject) Transition() string { return "reject" }
func (c Reject) Actor() string      { return c.AdminID }
func (c Reject) Access() Access     { return AdminOnly }

func (c Reject) apply(t *model.Transaction, now time.Time) (model.EventType, error) {
	if t.Status != model.TransactionPendingVerification {
		return "", model.InvalidTransitionf("cannot reject transaction %s in status %s", t.ID, t.Status)
	}
	reason := strings.TrimSpace(c.Reason)
	if reason == "" {
		return "", model.Validationf("rejection reason is required")
	}
	t.Status = model.TransactionRejected
	t.Rejection = &model.Rejection{Reason: reason, At: now, By: c.AdminID}
	return model.EventTransactionRejected, nil
}

// MarkPaid records that a verified sale was paid out to the client.
type MarkPaid struct {
	AdminID string
}

func (c MarkPaid) Transition() string { return "mark_paid" }
func (c MarkPaid) Actor() string      { return c.AdminID }
func (c MarkPaid) Access() Access     { return AdminOnly }

func (c MarkPaid) apply(t *model.Transaction, now time.Time) (model.EventType, error) {
	if t.Status != model.TransactionVerified {
		return "", model.InvalidTransitionf("cannot mark transaction %s paid in status %s", t.ID, t.Status)
	}
	t.Status = model.TransactionPaid
	t.Payout = &model.Payout{At: now, By: c.AdminID}
	return model.EventTransactionPaid, nil
}

// RequestChargeback only sets the pending marker; the status is unchanged
// until an admin approves.
type RequestChargeback struct {
	ClientID string
	Reason   string
}

func (c RequestChargeback) Transition() string { return "request_chargeback" }
func (c RequestChargeback) Actor() string      { return c.ClientID }
func (c RequestChargeback) Access() Access     { return OwnerOnly }

func (c RequestChargeback) apply(t *model.Transaction, now time.Time) (model.EventType, error) {
	if !settled(t) {
		return "", model.InvalidTransitionf("cannot request chargeback for transaction %s in status %s", t.ID, t.Status)
	}
	if t.ChargebackPending() {
		return "", model.InvalidTransitionf("chargeback already requested for transaction %s", t.ID)
	}
	reason := strings.TrimSpace(c.Reason)
	if reason == "" {
		return "", model.Validationf("chargeback reason is required")
	}
	at := now
	t.Chargeback = &model.Chargeback{Reason: reason, RequestedAt: &at, RequestedBy: c.ClientID}
	return model.EventTransactionChargebackRequested, nil
}

// ApproveChargeback reverses a settled sale. Reason falls back to the one the
// client gave with the request.
type ApproveChargeback struct {
	AdminID string
	Reason  string
}

func (c ApproveChargeback) Transition() string { return "approve_chargeback" }
func (c ApproveChargeback) Actor() string      { return c.AdminID }
func (c ApproveChargeback) Access() Access     { return AdminOnly }

func (c ApproveChargeback) apply(t *model.Transaction, now time.Time) (model.EventType, error) {
	if !settled(t) {
		return "", model.InvalidTransitionf("cannot charge back transaction %s in status %s", t.ID, t.Status)
	}

	var cb model.Chargeback
	if t.Chargeback != nil {
		cb = *t.Chargeback
	}
	if reason := strings.TrimSpace(c.Reason); reason != "" {
		cb.Reason = reason
	}
	if strings.TrimSpace(cb.Reason) == "" {
		return "", model.Validationf("chargeback reason is required")
	}
	at := now
	cb.ApprovedAt = &at
	cb.ApprovedBy = c.AdminID

	t.Chargeback = &cb
	t.Status = model.TransactionChargeback
	t.IsChargeback = true
	return model.EventTransactionChargebackApproved, nil
}

// DismissChargeback clears a pending client request without reversing funds.
type DismissChargeback struct {
	AdminID string
}

func (c DismissChargeback) Transition() string { return "dismiss_chargeback" }
func (c DismissChargeback) Actor() string      { return c.AdminID }
func (c DismissChargeback) Access() Access     { return AdminOnly }

func (c DismissChargeback) apply(t *model.Transaction, _ time.Time) (model.EventType, error) {
	if !settled(t) || !t.ChargebackPending() {
		return "", model.InvalidTransitionf("no pending chargeback on transaction %s", t.ID)
	}
	t.Chargeback = nil
	return model.EventTransactionChargebackDismissed, nil
}

func settled(t *model.Transaction) bool {
	return t.Status == model.TransactionVerified || t.Status == model.TransactionPaid
}
