package repository

import (
	"context"
	"testing"

	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	seedProfile(t, db, "client-1", model.RoleClient)

	t.Run("get", func(t *testing.T) {
		p, err := repo.Get(ctx, "client-1")
		require.NoError(t, err)
		assert.Equal(t, model.RoleClient, p.Role)
		assert.Equal(t, model.PlanBasic, p.Plan)
		assert.Empty(t, p.CustomPlanID)
	})

	t.Run("missing profile", func(t *testing.T) {
		_, err := repo.Get(ctx, "nobody")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("lock inside transaction", func(t *testing.T) {
		err := db.WithinTransaction(ctx, func(ctx context.Context) error {
			p, err := repo.LockForUpdate(ctx, "client-1")
			if err != nil {
				return err
			}
			assert.Equal(t, "client-1", p.ID)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("update plan", func(t *testing.T) {
		require.NoError(t, repo.UpdatePlan(ctx, "client-1", model.PlanCustom, "acme"))
		p, err := repo.Get(ctx, "client-1")
		require.NoError(t, err)
		assert.Equal(t, model.PlanCustom, p.Plan)
		assert.Equal(t, "acme", p.CustomPlanID)

		assert.ErrorIs(t, repo.UpdatePlan(ctx, "nobody", model.PlanTop, ""), model.ErrNotFound)
	})
}
