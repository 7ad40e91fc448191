package repository

import (
	"time"

	"github.com/nimasrn/merchant-ledger/internal/model"
)

type AdjustmentEntity struct {
	ID        string    `db:"id"         gorm:"primaryKey;column:id;type:varchar(64)"`
	ClientID  string    `db:"client_id"  gorm:"column:client_id;not null;index"`
	Type      string    `db:"type"       gorm:"column:type;not null"`
	Amount    int64     `db:"amount"     gorm:"column:amount;not null"`
	Reason    string    `db:"reason"     gorm:"column:reason;not null"`
	AdminID   string    `db:"admin_id"   gorm:"column:admin_id;not null"`
	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;not null;index"`
}

func (AdjustmentEntity) TableName() string {
	return "balance_adjustments"
}

func toAdjustmentEntity(m *model.BalanceAdjustment) *AdjustmentEntity {
	return &AdjustmentEntity{
		ID:        m.ID,
		ClientID:  m.ClientID,
		Type:      string(m.Type),
		Amount:    m.Amount,
		Reason:    m.Reason,
		AdminID:   m.AdminID,
		CreatedAt: m.CreatedAt,
	}
}

func toAdjustmentModel(e *AdjustmentEntity) model.BalanceAdjustment {
	return model.BalanceAdjustment{
		ID:        e.ID,
		ClientID:  e.ClientID,
		Type:      model.AdjustmentType(e.Type),
		Amount:    e.Amount,
		Reason:    e.Reason,
		AdminID:   e.AdminID,
		CreatedAt: e.CreatedAt,
	}
}
