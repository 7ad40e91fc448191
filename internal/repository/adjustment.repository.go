package repository

import (
	"context"

	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/nimasrn/merchant-ledger/pkg/pg"
)

// AdjustmentRepository is insert-only: there is no update or delete.
type AdjustmentRepository struct {
	*pg.DB
}

func NewAdjustmentRepository(db *pg.DB) *AdjustmentRepository {
	return &AdjustmentRepository{
		db,
	}
}

func (r *AdjustmentRepository) Append(ctx context.Context, a *model.BalanceAdjustment) error {
	if err := r.Write(ctx).Create(toAdjustmentEntity(a)).Error; err != nil {
		return translate(err, "append adjustment %s", a.ID)
	}
	return nil
}

// ListByClient returns the client's adjustments oldest first.
func (r *AdjustmentRepository) ListByClient(ctx context.Context, clientID string) ([]model.BalanceAdjustment, error) {
	var entities []*AdjustmentEntity
	if err := r.Read(ctx).Where("client_id = ?", clientID).Order("created_at, id").Find(&entities).Error; err != nil {
		return nil, translate(err, "adjustments of client %s", clientID)
	}
	out := make([]model.BalanceAdjustment, len(entities))
	for i, e := range entities {
		out[i] = toAdjustmentModel(e)
	}
	return out, nil
}

func (r *AdjustmentRepository) CountByClient(ctx context.Context, clientID string) (int64, error) {
	var n int64
	if err := r.Read(ctx).Model(&AdjustmentEntity{}).Where("client_id = ?", clientID).Count(&n).Error; err != nil {
		return 0, translate(err, "count adjustments of client %s", clientID)
	}
	return n, nil
}
