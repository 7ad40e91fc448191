package repository

import (
	"context"

	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/nimasrn/merchant-ledger/pkg/pg"
	"gorm.io/gorm/clause"
)

type WithdrawalRepository struct {
	*pg.DB
}

func NewWithdrawalRepository(db *pg.DB) *WithdrawalRepository {
	return &WithdrawalRepository{
		db,
	}
}

func (r *WithdrawalRepository) Create(ctx context.Context, w *model.Withdrawal) error {
	if err := r.Write(ctx).Create(toWithdrawalEntity(w)).Error; err != nil {
		return translate(err, "create withdrawal %s", w.ID)
	}
	return nil
}

func (r *WithdrawalRepository) Get(ctx context.Context, id string) (*model.Withdrawal, error) {
	var entity WithdrawalEntity
	if err := r.Read(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, translate(err, "withdrawal %s", id)
	}
	return toWithdrawalModel(&entity), nil
}

func (r *WithdrawalRepository) GetForUpdate(ctx context.Context, id string) (*model.Withdrawal, error) {
	var entity WithdrawalEntity
	err := r.Write(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err, "withdrawal %s", id)
	}
	return toWithdrawalModel(&entity), nil
}

// Update writes status, payment and cancellation columns; amount and
// destination are fixed at creation.
func (r *WithdrawalRepository) Update(ctx context.Context, w *model.Withdrawal) error {
	result := r.Write(ctx).
		Model(&WithdrawalEntity{}).
		Where("id = ?", w.ID).
		Select("*").
		Omit(withdrawalImmutable...).
		Updates(toWithdrawalEntity(w))
	if result.Error != nil {
		return translate(result.Error, "update withdrawal %s", w.ID)
	}
	if result.RowsAffected == 0 {
		return model.NotFoundf("withdrawal %s", w.ID)
	}
	return nil
}

func (r *WithdrawalRepository) List(ctx context.Context, f model.WithdrawalFilter) ([]*model.Withdrawal, int64, error) {
	q := r.Read(ctx).Model(&WithdrawalEntity{})

	if f.ClientID != nil {
		q = q.Where("client_id = ?", *f.ClientID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count withdrawals")
	}

	order := "created_at ASC, id ASC"
	if f.Desc {
		order = "created_at DESC, id DESC"
	}
	limit, offset := limitOffset(f.Limit, f.Offset)

	var entities []*WithdrawalEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, translate(err, "list withdrawals")
	}
	return toWithdrawalModels(entities), total, nil
}

func (r *WithdrawalRepository) ListByClient(ctx context.Context, clientID string) ([]model.Withdrawal, error) {
	var entities []*WithdrawalEntity
	if err := r.Read(ctx).Where("client_id = ?", clientID).Order("created_at, id").Find(&entities).Error; err != nil {
		return nil, translate(err, "withdrawals of client %s", clientID)
	}
	out := make([]model.Withdrawal, len(entities))
	for i, e := range entities {
		out[i] = *toWithdrawalModel(e)
	}
	return out, nil
}

func (r *WithdrawalRepository) CountByClient(ctx context.Context, clientID string) (int64, error) {
	var n int64
	if err := r.Read(ctx).Model(&WithdrawalEntity{}).Where("client_id = ?", clientID).Count(&n).Error; err != nil {
		return 0, translate(err, "count withdrawals of client %s", clientID)
	}
	return n, nil
}
