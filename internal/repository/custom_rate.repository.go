package repository

import (
	"context"

	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/nimasrn/merchant-ledger/pkg/pg"
)

type RateRepository struct {
	*pg.DB
}

func NewRateRepository(db *pg.DB) *RateRepository {
	return &RateRepository{
		db,
	}
}

// ListByPlan returns the normalized rate table of a custom plan. An unknown
// plan yields an empty slice.
func (r *RateRepository) ListByPlan(ctx context.Context, planID string) ([]model.CustomRate, error) {
	var entities []*CustomRateEntity
	err := r.Read(ctx).
		Where("plan_id = ?", planID).
		Order("brand_group, payment_type, installments").
		Find(&entities).
		Error
	if err != nil {
		return nil, translate(err, "rates of plan %s", planID)
	}
	return toCustomRateModels(entities), nil
}

// ReplacePlan swaps the whole table of planID in one transaction.
func (r *RateRepository) ReplacePlan(ctx context.Context, planID string, rows []model.CustomRate) error {
	return r.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := r.Write(ctx).Where("plan_id = ?", planID).Delete(&CustomRateEntity{}).Error; err != nil {
			return translate(err, "clear plan %s", planID)
		}
		if len(rows) == 0 {
			return nil
		}
		entities := make([]*CustomRateEntity, len(rows))
		for i := range rows {
			rows[i].PlanID = planID
			entities[i] = toCustomRateEntity(&rows[i])
		}
		if err := r.Write(ctx).CreateInBatches(entities, 100).Error; err != nil {
			return translate(err, "insert plan %s", planID)
		}
		return nil
	})
}
