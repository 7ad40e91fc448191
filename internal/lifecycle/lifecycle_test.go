package lifecycle

import (
	"testing"
	"time"

	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newSale(t *testing.T, evidence *model.Evidence) *model.Transaction {
	t.Helper()
	tx, event, err := OpenTransaction("tx-1", model.TransactionCreateRequest{
		ClientID:     "client-1",
		GrossValue:   1000,
		Brand:        model.BrandVisaMaster,
		PaymentType:  model.PaymentCredit,
		Installments: 1,
		Evidence:     evidence,
	}, decimal.NewFromInt(5), now)
	require.NoError(t, err)
	require.Equal(t, model.EventTransactionCreated, event)
	return tx
}

func moveTo(t *testing.T, tx *model.Transaction, cmds ...TransactionCommand) {
	t.Helper()
	for _, cmd := range cmds {
		_, err := ApplyTransaction(tx, cmd, now)
		require.NoError(t, err, cmd.Transition())
	}
}

func TestOpenTransaction(t *testing.T) {
	t.Run("without evidence waits for receipt", func(t *testing.T) {
		tx := newSale(t, nil)
		assert.Equal(t, model.TransactionPendingReceipt, tx.Status)
		assert.Equal(t, int64(50), tx.FeeValue)
		assert.Equal(t, int64(950), tx.NetValue)
		assert.Equal(t, "5", tx.FeePercentage.String())
	})

	t.Run("with evidence goes to verification", func(t *testing.T) {
		tx := newSale(t, &model.Evidence{ReceiptURL: " https://r/1.jpg "})
		assert.Equal(t, model.TransactionPendingVerification, tx.Status)
		assert.Equal(t, "https://r/1.jpg", tx.Evidence.ReceiptURL)
	})

	t.Run("invalid request", func(t *testing.T) {
		_, _, err := OpenTransaction("tx-2", model.TransactionCreateRequest{
			ClientID:     "client-1",
			GrossValue:   1000,
			Brand:        model.BrandPix,
			PaymentType:  model.PaymentCredit,
			Installments: 1,
		}, decimal.NewFromInt(1), now)
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("evidence with both fields", func(t *testing.T) {
		_, _, err := OpenTransaction("tx-3", model.TransactionCreateRequest{
			ClientID:     "client-1",
			GrossValue:   1000,
			Brand:        model.BrandVisaMaster,
			PaymentType:  model.PaymentDebit,
			Installments: 1,
			Evidence:     &model.Evidence{ReceiptURL: "u", NoReceiptReason: "r"},
		}, decimal.NewFromInt(1), now)
		assert.ErrorIs(t, err, model.ErrValidation)
	})
}

func TestTransactionHappyPath(t *testing.T) {
	tx := newSale(t, nil)

	event, err := ApplyTransaction(tx, SubmitReceipt{ActorID: "client-1", Evidence: model.Evidence{NoReceiptReason: "lost"}}, now)
	require.NoError(t, err)
	assert.Equal(t, model.EventTransactionReceiptSubmitted, event)
	assert.Equal(t, model.TransactionPendingVerification, tx.Status)

	event, err = ApplyTransaction(tx, Verify{AdminID: "admin-1"}, now)
	require.NoError(t, err)
	assert.Equal(t, model.EventTransactionVerified, event)
	require.NotNil(t, tx.Verification)
	assert.Equal(t, "admin-1", tx.Verification.By)

	event, err = ApplyTransaction(tx, MarkPaid{AdminID: "admin-1"}, now)
	require.NoError(t, err)
	assert.Equal(t, model.EventTransactionPaid, event)
	assert.Equal(t, model.TransactionPaid, tx.Status)
	assert.Equal(t, int64(950), tx.NetValue)
}

func TestReject(t *testing.T) {
	t.Run("requires reason and leaves status unchanged", func(t *testing.T) {
		tx := newSale(t, &model.Evidence{ReceiptURL: "u"})

		_, err := ApplyTransaction(tx, Reject{AdminID: "admin-1", Reason: "  "}, now)
		assert.ErrorIs(t, err, model.ErrValidation)
		assert.Equal(t, model.TransactionPendingVerification, tx.Status)
		assert.Nil(t, tx.Rejection)
	})

	t.Run("sets rejection fields", func(t *testing.T) {
		tx := newSale(t, &model.Evidence{ReceiptURL: "u"})

		event, err := ApplyTransaction(tx, Reject{AdminID: "admin-1", Reason: "blurry"}, now)
		require.NoError(t, err)
		assert.Equal(t, model.EventTransactionRejected, event)
		assert.Equal(t, model.TransactionRejected, tx.Status)
		assert.Equal(t, "blurry", tx.Rejection.Reason)
	})

	t.Run("not from pending receipt", func(t *testing.T) {
		tx := newSale(t, nil)
		_, err := ApplyTransaction(tx, Reject{AdminID: "admin-1", Reason: "x"}, now)
		assert.ErrorIs(t, err, model.ErrInvalidTransition)
	})
}

func TestChargebackFlow(t *testing.T) {
	tx := newSale(t, &model.Evidence{ReceiptURL: "u"})
	moveTo(t, tx, Verify{AdminID: "admin-1"})

	event, err := ApplyTransaction(tx, RequestChargeback{ClientID: "client-1", Reason: "disputed"}, now)
	require.NoError(t, err)
	assert.Equal(t, model.EventTransactionChargebackRequested, event)
	assert.Equal(t, model.TransactionVerified, tx.Status)
	assert.True(t, tx.ChargebackPending())
	assert.False(t, tx.IsChargeback)

	_, err = ApplyTransaction(tx, RequestChargeback{ClientID: "client-1", Reason: "again"}, now)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	event, err = ApplyTransaction(tx, ApproveChargeback{AdminID: "admin-1"}, now)
	require.NoError(t, err)
	assert.Equal(t, model.EventTransactionChargebackApproved, event)
	assert.Equal(t, model.TransactionChargeback, tx.Status)
	assert.True(t, tx.IsChargeback)
	assert.Equal(t, "disputed", tx.Chargeback.Reason)
	assert.Equal(t, "admin-1", tx.Chargeback.ApprovedBy)
	assert.False(t, tx.ChargebackPending())
}

func TestApproveChargeback(t *testing.T) {
	t.Run("admin reason without client request", func(t *testing.T) {
		tx := newSale(t, &model.Evidence{ReceiptURL: "u"})
		moveTo(t, tx, Verify{AdminID: "a"}, MarkPaid{AdminID: "a"})

		_, err := ApplyTransaction(tx, ApproveChargeback{AdminID: "a", Reason: "fraud"}, now)
		require.NoError(t, err)
		assert.Equal(t, model.TransactionChargeback, tx.Status)
		assert.Equal(t, "fraud", tx.Chargeback.Reason)
		assert.NotNil(t, tx.Payout)
	})

	t.Run("no reason anywhere", func(t *testing.T) {
		tx := newSale(t, &model.Evidence{ReceiptURL: "u"})
		moveTo(t, tx, Verify{AdminID: "a"})

		_, err := ApplyTransaction(tx, ApproveChargeback{AdminID: "a"}, now)
		assert.ErrorIs(t, err, model.ErrValidation)
		assert.Equal(t, model.TransactionVerified, tx.Status)
	})

	t.Run("not before verification", func(t *testing.T) {
		tx := newSale(t, &model.Evidence{ReceiptURL: "u"})
		_, err := ApplyTransaction(tx, ApproveChargeback{AdminID: "a", Reason: "x"}, now)
		assert.ErrorIs(t, err, model.ErrInvalidTransition)
	})
}

func TestDismissChargeback(t *testing.T) {
	tx := newSale(t, &model.Evidence{ReceiptURL: "u"})
	moveTo(t, tx, Verify{AdminID: "a"})

	_, err := ApplyTransaction(tx, DismissChargeback{AdminID: "a"}, now)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	moveTo(t, tx, RequestChargeback{ClientID: "client-1", Reason: "why"})
	event, err := ApplyTransaction(tx, DismissChargeback{AdminID: "a"}, now)
	require.NoError(t, err)
	assert.Equal(t, model.EventTransactionChargebackDismissed, event)
	assert.Nil(t, tx.Chargeback)
	assert.Equal(t, model.TransactionVerified, tx.Status)
}

func TestTerminalTransactionStates(t *testing.T) {
	rejected := newSale(t, &model.Evidence{ReceiptURL: "u"})
	moveTo(t, rejected, Reject{AdminID: "a", Reason: "bad"})

	chargedBack := newSale(t, &model.Evidence{ReceiptURL: "u"})
	moveTo(t, chargedBack, Verify{AdminID: "a"}, ApproveChargeback{AdminID: "a", Reason: "fraud"})

	cmds := []TransactionCommand{
		SubmitReceipt{ActorID: "client-1", Evidence: model.Evidence{ReceiptURL: "u"}},
		Verify{AdminID: "a"},
		Reject{AdminID: "a", Reason: "r"},
		MarkPaid{AdminID: "a"},
		RequestChargeback{ClientID: "client-1", Reason: "r"},
		ApproveChargeback{AdminID: "a", Reason: "r"},
		DismissChargeback{AdminID: "a"},
	}

	for _, tx := range []*model.Transaction{rejected, chargedBack} {
		before := *tx
		for _, cmd := range cmds {
			_, err := ApplyTransaction(tx, cmd, now.Add(time.Hour))
			assert.ErrorIs(t, err, model.ErrInvalidTransition, "%s from %s", cmd.Transition(), tx.Status)
		}
		assert.Equal(t, before, *tx)
	}
}

func TestIllegalEdges(t *testing.T) {
	tx := newSale(t, nil)

	for _, cmd := range []TransactionCommand{
		Verify{AdminID: "a"},
		MarkPaid{AdminID: "a"},
		RequestChargeback{ClientID: "client-1", Reason: "r"},
	} {
		_, err := ApplyTransaction(tx, cmd, now)
		assert.ErrorIs(t, err, model.ErrInvalidTransition, cmd.Transition())
	}

	moveTo(t, tx, SubmitReceipt{ActorID: "client-1", Evidence: model.Evidence{ReceiptURL: "u"}})
	_, err := ApplyTransaction(tx, SubmitReceipt{ActorID: "client-1", Evidence: model.Evidence{ReceiptURL: "u2"}}, now)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	assert.Equal(t, "u", tx.Evidence.ReceiptURL)

	moveTo(t, tx, Verify{AdminID: "a"}, MarkPaid{AdminID: "a"})
	_, err = ApplyTransaction(tx, MarkPaid{AdminID: "a"}, now)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	_, err = ApplyTransaction(tx, Verify{AdminID: "a"}, now)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestSubmitReceiptValidation(t *testing.T) {
	tx := newSale(t, nil)

	_, err := ApplyTransaction(tx, SubmitReceipt{ActorID: "client-1"}, now)
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, model.TransactionPendingReceipt, tx.Status)
	assert.Nil(t, tx.Evidence)
}

func TestAuthorize(t *testing.T) {
	admin := &model.Profile{ID: "admin-1", Role: model.RoleAdmin}
	owner := &model.Profile{ID: "client-1", Role: model.RoleClient}
	other := &model.Profile{ID: "client-2", Role: model.RoleClient}

	assert.NoError(t, Authorize(AdminOnly, admin, "client-1"))
	assert.ErrorIs(t, Authorize(AdminOnly, owner, "client-1"), model.ErrForbidden)

	assert.NoError(t, Authorize(OwnerOnly, owner, "client-1"))
	assert.ErrorIs(t, Authorize(OwnerOnly, other, "client-1"), model.ErrNotFound)
	assert.ErrorIs(t, Authorize(OwnerOnly, admin, "client-1"), model.ErrNotFound)

	assert.NoError(t, Authorize(OwnerOrAdmin, owner, "client-1"))
	assert.NoError(t, Authorize(OwnerOrAdmin, admin, "client-1"))
	assert.ErrorIs(t, Authorize(OwnerOrAdmin, other, "client-1"), model.ErrNotFound)

	assert.ErrorIs(t, Authorize(AdminOnly, nil, "client-1"), model.ErrForbidden)
}

func pixWithdrawal(t *testing.T) *model.Withdrawal {
	t.Helper()
	w, event, err := OpenWithdrawal("w-1", model.WithdrawalCreateRequest{
		ClientID: "client-1",
		Amount:   500,
		Method:   model.WithdrawalPix,
		Destination: model.Destination{Pix: &model.PixDestination{
			Key: "client@example.com", KeyType: model.PixKeyEmail, OwnerName: "Client One",
		}},
	}, now)
	require.NoError(t, err)
	require.Equal(t, model.EventWithdrawalRequested, event)
	return w
}

func TestOpenWithdrawal_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  model.WithdrawalCreateRequest
	}{
		{"zero amount", model.WithdrawalCreateRequest{ClientID: "c", Amount: 0, Method: model.WithdrawalBoleto,
			Destination: model.Destination{Boleto: &model.BoletoDestination{Code: "123", BeneficiaryName: "B"}}}},
		{"method mismatch", model.WithdrawalCreateRequest{ClientID: "c", Amount: 10, Method: model.WithdrawalPix,
			Destination: model.Destination{Boleto: &model.BoletoDestination{Code: "123", BeneficiaryName: "B"}}}},
		{"two destinations", model.WithdrawalCreateRequest{ClientID: "c", Amount: 10, Method: model.WithdrawalBank,
			Destination: model.Destination{
				Bank:   &model.BankDestination{BankCode: "001", Agency: "1", Account: "2", AccountHolder: "H"},
				Boleto: &model.BoletoDestination{Code: "123", BeneficiaryName: "B"},
			}}},
		{"incomplete bank", model.WithdrawalCreateRequest{ClientID: "c", Amount: 10, Method: model.WithdrawalBank,
			Destination: model.Destination{Bank: &model.BankDestination{BankCode: "001"}}}},
		{"bad pix key type", model.WithdrawalCreateRequest{ClientID: "c", Amount: 10, Method: model.WithdrawalPix,
			Destination: model.Destination{Pix: &model.PixDestination{Key: "k", KeyType: "iban", OwnerName: "O"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := OpenWithdrawal("w", tt.req, now)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
}

func TestWithdrawalTransitions(t *testing.T) {
	t.Run("pay requires proof", func(t *testing.T) {
		w := pixWithdrawal(t)
		_, err := ApplyWithdrawal(w, PayWithdrawal{AdminID: "a"}, now)
		assert.ErrorIs(t, err, model.ErrValidation)
		assert.Equal(t, model.WithdrawalPending, w.Status)
		assert.Nil(t, w.Payment)
	})

	t.Run("pay sets payment fields together", func(t *testing.T) {
		w := pixWithdrawal(t)
		event, err := ApplyWithdrawal(w, PayWithdrawal{AdminID: "a", ProofURL: "https://proof"}, now)
		require.NoError(t, err)
		assert.Equal(t, model.EventWithdrawalPaid, event)
		assert.Equal(t, model.WithdrawalPaid, w.Status)
		assert.Equal(t, model.WithdrawalPayment{ProofURL: "https://proof", PaidBy: "a", PaidAt: now}, *w.Payment)
		assert.Equal(t, int64(500), w.Amount)
	})

	t.Run("cancel records actor", func(t *testing.T) {
		w := pixWithdrawal(t)
		event, err := ApplyWithdrawal(w, CancelWithdrawal{ActorID: "client-1"}, now)
		require.NoError(t, err)
		assert.Equal(t, model.EventWithdrawalCancelled, event)
		assert.Equal(t, "client-1", w.Cancellation.By)
	})

	t.Run("terminal states", func(t *testing.T) {
		paid := pixWithdrawal(t)
		_, err := ApplyWithdrawal(paid, PayWithdrawal{AdminID: "a", ProofURL: "p"}, now)
		require.NoError(t, err)

		cancelled := pixWithdrawal(t)
		_, err = ApplyWithdrawal(cancelled, CancelWithdrawal{ActorID: "a"}, now)
		require.NoError(t, err)

		for _, w := range []*model.Withdrawal{paid, cancelled} {
			before := *w
			_, err := ApplyWithdrawal(w, PayWithdrawal{AdminID: "a", ProofURL: "p2"}, now)
			assert.ErrorIs(t, err, model.ErrInvalidTransition)
			_, err = ApplyWithdrawal(w, CancelWithdrawal{ActorID: "a"}, now)
			assert.ErrorIs(t, err, model.ErrInvalidTransition)
			assert.Equal(t, before, *w)
		}
	})
}
