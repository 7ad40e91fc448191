package repository

import (
	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/shopspring/decimal"
)

type CustomRateEntity struct {
	ID           int64           `db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	PlanID       string          `db:"plan_id"       gorm:"column:plan_id;not null;uniqueIndex:ux_custom_rate"`
	BrandGroup   string          `db:"brand_group"   gorm:"column:brand_group;not null;uniqueIndex:ux_custom_rate"`
	PaymentType  string          `db:"payment_type"  gorm:"column:payment_type;not null;uniqueIndex:ux_custom_rate"`
	Installments int             `db:"installments"  gorm:"column:installments;not null;uniqueIndex:ux_custom_rate"`
	Percentage   decimal.Decimal `db:"percentage"    gorm:"column:percentage;type:numeric(7,4);not null"`
}

func (CustomRateEntity) TableName() string {
	return "custom_rates"
}

func toCustomRateEntity(m *model.CustomRate) *CustomRateEntity {
	return &CustomRateEntity{
		PlanID:       m.PlanID,
		BrandGroup:   string(m.BrandGroup),
		PaymentType:  string(m.PaymentType),
		Installments: m.Installments,
		Percentage:   m.Percentage,
	}
}

func toCustomRateModels(entities []*CustomRateEntity) []model.CustomRate {
	models := make([]model.CustomRate, len(entities))
	for i, e := range entities {
		models[i] = model.CustomRate{
			PlanID:       e.PlanID,
			BrandGroup:   model.Brand(e.BrandGroup),
			PaymentType:  model.PaymentType(e.PaymentType),
			Installments: e.Installments,
			Percentage:   e.Percentage,
		}
	}
	return models
}
