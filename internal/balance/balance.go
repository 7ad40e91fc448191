// Package balance derives a client's balances from a consistent snapshot of
// its ledger records. It is the only place balances are computed.
package balance

import (
	"math"
	"time"

	"github.com/nimasrn/merchant-ledger/internal/model"
)

// Snapshot is every ledger record of one client, read in a single store
// transaction.
type Snapshot struct {
	ClientID     string
	Transactions []model.Transaction
	Withdrawals  []model.Withdrawal
	Adjustments  []model.BalanceAdjustment
}

// Breakdown exposes the intermediate sums behind ClientBalances.
type Breakdown struct {
	Pending            int64 `json:"pending"`
	VerifiedTotal      int64 `json:"verified_total"`
	AdjustmentsNet     int64 `json:"adjustments_net"`
	WithdrawnCommitted int64 `json:"withdrawn_committed"`
	WithdrawnPaid      int64 `json:"withdrawn_paid"`
}

// Available may be negative: an admin can place a client in debt and the
// debt must stay visible.
func (b Breakdown) Available() (int64, error) {
	v, err := add(b.VerifiedTotal, b.AdjustmentsNet)
	if err != nil {
		return 0, err
	}
	return sub(v, b.WithdrawnCommitted)
}

// Compute fails closed with ErrReconciliation on any inconsistent input.
func Compute(s Snapshot, now time.Time) (model.ClientBalances, error) {
	b, err := Explain(s)
	if err != nil {
		return model.ClientBalances{}, err
	}
	available, err := b.Available()
	if err != nil {
		return model.ClientBalances{}, err
	}
	total, err := add(b.Pending, available)
	if err != nil {
		return model.ClientBalances{}, err
	}
	if total, err = add(total, b.WithdrawnPaid); err != nil {
		return model.ClientBalances{}, err
	}

	return model.ClientBalances{
		ClientID:   s.ClientID,
		Available:  available,
		Pending:    b.Pending,
		Withdrawn:  b.WithdrawnPaid,
		Total:      total,
		ComputedAt: now,
	}, nil
}

// Explain validates the snapshot and returns its component sums.
func Explain(s Snapshot) (Breakdown, error) {
	var b Breakdown
	if s.ClientID == "" {
		return b, model.Reconciliationf("snapshot without client")
	}

	var err error
	for i := range s.Transactions {
		t := &s.Transactions[i]
		if t.ClientID != s.ClientID {
			return b, model.Reconciliationf("transaction %s belongs to %s, not %s", t.ID, t.ClientID, s.ClientID)
		}
		if err = t.CheckInvariants(); err != nil {
			return b, err
		}
		switch t.Status {
		case model.TransactionPendingReceipt, model.TransactionPendingVerification:
			b.Pending, err = add(b.Pending, t.NetValue)
		case model.TransactionVerified, model.TransactionPaid:
			b.VerifiedTotal, err = add(b.VerifiedTotal, t.NetValue)
		}
		if err != nil {
			return b, err
		}
	}

	for i := range s.Withdrawals {
		w := &s.Withdrawals[i]
		if w.ClientID != s.ClientID {
			return b, model.Reconciliationf("withdrawal %s belongs to %s, not %s", w.ID, w.ClientID, s.ClientID)
		}
		if err = w.CheckInvariants(); err != nil {
			return b, err
		}
		switch w.Status {
		case model.WithdrawalPending:
			b.WithdrawnCommitted, err = add(b.WithdrawnCommitted, w.Amount)
		case model.WithdrawalPaid:
			if b.WithdrawnCommitted, err = add(b.WithdrawnCommitted, w.Amount); err == nil {
				b.WithdrawnPaid, err = add(b.WithdrawnPaid, w.Amount)
			}
		}
		if err != nil {
			return b, err
		}
	}

	for i := range s.Adjustments {
		a := &s.Adjustments[i]
		if a.ClientID != s.ClientID {
			return b, model.Reconciliationf("adjustment %s belongs to %s, not %s", a.ID, a.ClientID, s.ClientID)
		}
		if !a.Type.Valid() || a.Amount <= 0 {
			return b, model.Reconciliationf("adjustment %s: invalid type %q or amount %d", a.ID, a.Type, a.Amount)
		}
		if b.AdjustmentsNet, err = add(b.AdjustmentsNet, a.Signed()); err != nil {
			return b, err
		}
	}
	return b, nil
}

func add(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, model.Reconciliationf("balance overflow adding %d to %d", b, a)
	}
	return a + b, nil
}

func sub(a, b int64) (int64, error) {
	if b == math.MinInt64 {
		return 0, model.Reconciliationf("balance overflow subtracting %d from %d", b, a)
	}
	return add(a, -b)
}
