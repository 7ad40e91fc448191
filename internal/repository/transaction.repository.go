package repository

import (
	"context"

	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/nimasrn/merchant-ledger/pkg/pg"
	"gorm.io/gorm/clause"
)

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) error {
	if err := r.Write(ctx).Create(toTransactionEntity(txn)).Error; err != nil {
		return translate(err, "create transaction %s", txn.ID)
	}
	return nil
}

func (r *TransactionRepository) Get(ctx context.Context, id string) (*model.Transaction, error) {
	var entity TransactionEntity
	if err := r.Read(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, translate(err, "transaction %s", id)
	}
	return toTransactionModel(&entity), nil
}

// GetForUpdate reads the row under a write lock; call it inside a transaction.
func (r *TransactionRepository) GetForUpdate(ctx context.Context, id string) (*model.Transaction, error) {
	var entity TransactionEntity
	err := r.Write(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err, "transaction %s", id)
	}
	return toTransactionModel(&entity), nil
}

// Update writes status and annotation columns. Money and classification
// columns are never rewritten.
func (r *TransactionRepository) Update(ctx context.Context, txn *model.Transaction) error {
	result := r.Write(ctx).
		Model(&TransactionEntity{}).
		Where("id = ?", txn.ID).
		Select("*").
		Omit(transactionImmutable...).
		Updates(toTransactionEntity(txn))
	if result.Error != nil {
		return translate(result.Error, "update transaction %s", txn.ID)
	}
	if result.RowsAffected == 0 {
		return model.NotFoundf("transaction %s", txn.ID)
	}
	return nil
}

func (r *TransactionRepository) List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	q := r.Read(ctx).Model(&TransactionEntity{})

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
	if f.ChargebackPending {
		q = q.Where("chargeback_requested_at IS NOT NULL AND chargeback_at IS NULL")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count transactions")
	}

	order := "created_at ASC, id ASC"
	if f.Desc {
		order = "created_at DESC, id DESC"
	}
	limit, offset := limitOffset(f.Limit, f.Offset)

	var entities []*TransactionEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, translate(err, "list transactions")
	}
	return toTransactionModels(entities), total, nil
}

// ListByClient returns every transaction of a client for balance snapshots.
func (r *TransactionRepository) ListByClient(ctx context.Context, clientID string) ([]model.Transaction, error) {
	var entities []*TransactionEntity
	if err := r.Read(ctx).Where("client_id = ?", clientID).Order("created_at, id").Find(&entities).Error; err != nil {
		return nil, translate(err, "transactions of client %s", clientID)
	}
	out := make([]model.Transaction, len(entities))
	for i, e := range entities {
		out[i] = *toTransactionModel(e)
	}
	return out, nil
}

func (r *TransactionRepository) CountByClient(ctx context.Context, clientID string) (int64, error) {
	var n int64
	if err := r.Read(ctx).Model(&TransactionEntity{}).Where("client_id = ?", clientID).Count(&n).Error; err != nil {
		return 0, translate(err, "count transactions of client %s", clientID)
	}
	return n, nil
}
