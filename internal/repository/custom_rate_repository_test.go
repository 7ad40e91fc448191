package repository

import (
	"context"
	"testing"

	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateRepository_ReplacePlan(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRateRepository(db)
	ctx := context.Background()

	rows := []model.CustomRate{
		{BrandGroup: model.BrandVisaMaster, PaymentType: model.PaymentCredit, Installments: 2, Percentage: decimal.RequireFromString("3.25")},
		{BrandGroup: model.BrandPix, PaymentType: model.PaymentPixConta, Installments: 1, Percentage: decimal.RequireFromString("0.5")},
	}
	require.NoError(t, repo.ReplacePlan(ctx, "acme", rows))

	got, err := repo.ListByPlan(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.BrandPix, got[0].BrandGroup)
	assert.True(t, got[0].Percentage.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, "acme", got[1].PlanID)
	assert.True(t, got[1].Percentage.Equal(decimal.RequireFromString("3.25")))

	t.Run("replace drops old rows", func(t *testing.T) {
		require.NoError(t, repo.ReplacePlan(ctx, "acme", rows[:1]))
		got, err := repo.ListByPlan(ctx, "acme")
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("unknown plan is empty", func(t *testing.T) {
		got, err := repo.ListByPlan(ctx, "ghost")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
