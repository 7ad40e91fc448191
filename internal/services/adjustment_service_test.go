package services

import (
	"context"
	"testing"
	"time"

	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adjustment(typ model.AdjustmentType, amount int64) model.AdjustmentCreateRequest {
	return model.AdjustmentCreateRequest{
		ClientID: clientID,
		AdminID:  adminID,
		Type:     typ,
		Amount:   amount,
		Reason:   "ajuste manual",
	}
}

func TestAdjustmentService_AddThenRemove(t *testing.T) {
	f := setupLedger(t, false)
	ctx := context.Background()

	add, err := f.ledger.Adjustments.Append(ctx, adjustment(model.AdjustmentAdd, 100))
	require.NoError(t, err)
	assert.Equal(t, testNow, add.CreatedAt)
	assert.Equal(t, int64(100), f.balances(t, clientID).Available)

	f.clock.Advance(time.Second)
	_, err = f.ledger.Adjustments.Append(ctx, adjustment(model.AdjustmentRemove, 100))
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.balances(t, clientID).Available)

	items, err := f.ledger.Adjustments.List(ctx, clientID, clientID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, model.AdjustmentAdd, items[0].Type)
	assert.Equal(t, model.AdjustmentRemove, items[1].Type)

	events := f.recorder.Events()
	require.Len(t, events, 2)
	assert.Equal(t, model.EventAdjustmentAppended, events[0].Type)
	assert.Equal(t, int64(100), events[0].Amount)
	assert.Equal(t, int64(-100), events[1].Amount)
}

func TestAdjustmentService_CanCreateDebt(t *testing.T) {
	f := setupLedger(t, false)
	ctx := context.Background()

	_, err := f.ledger.Adjustments.Append(ctx, adjustment(model.AdjustmentRemove, 200))
	require.NoError(t, err)

	b := f.balances(t, clientID)
	assert.Equal(t, int64(-200), b.Available)
	assert.Equal(t, int64(-200), b.Total)
}

func TestAdjustmentService_Errors(t *testing.T) {
	f := setupLedger(t, false)
	ctx := context.Background()

	req := adjustment(model.AdjustmentAdd, 100)
	req.Reason = " "
	_, err := f.ledger.Adjustments.Append(ctx, req)
	assert.ErrorIs(t, err, model.ErrValidation)

	req = adjustment(model.AdjustmentAdd, 0)
	_, err = f.ledger.Adjustments.Append(ctx, req)
	assert.ErrorIs(t, err, model.ErrValidation)

	req = adjustment(model.AdjustmentAdd, 100)
	req.AdminID = clientID
	_, err = f.ledger.Adjustments.Append(ctx, req)
	assert.ErrorIs(t, err, model.ErrForbidden)

	req = adjustment(model.AdjustmentAdd, 100)
	req.ClientID = "ghost"
	_, err = f.ledger.Adjustments.Append(ctx, req)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = f.ledger.Adjustments.List(ctx, clientID, otherID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Empty(t, f.recorder.Events())
}

func TestAdjustmentService_ListKeepsAppendOrderWithinOneInstant(t *testing.T) {
	f := setupLedger(t, false)
	ctx := context.Background()

	var want []string
	for i := int64(1); i <= 20; i++ {
		typ := model.AdjustmentAdd
		if i%2 == 0 {
			typ = model.AdjustmentRemove
		}
		a, err := f.ledger.Adjustments.Append(ctx, adjustment(typ, i))
		require.NoError(t, err)
		want = append(want, a.ID)
	}

	items, err := f.ledger.Adjustments.List(ctx, clientID, adminID)
	require.NoError(t, err)
	got := make([]string, 0, len(items))
	for _, it := range items {
		assert.Equal(t, testNow, it.CreatedAt)
		got = append(got, it.ID)
	}
	assert.Equal(t, want, got)
}

func TestLedger_OwnerMustBeAClient(t *testing.T) {
	f := setupLedger(t, false)
	ctx := context.Background()

	_, err := f.ledger.Transactions.Create(ctx, saleRequest(adminID, 1000))
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = f.ledger.Withdrawals.Request(ctx, pixWithdrawal(adminID, 10))
	assert.ErrorIs(t, err, model.ErrValidation)

	req := adjustment(model.AdjustmentAdd, 100)
	req.ClientID = adminID
	_, err = f.ledger.Adjustments.Append(ctx, req)
	assert.ErrorIs(t, err, model.ErrValidation)

	assert.Empty(t, f.recorder.Events())
}
