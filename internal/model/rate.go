package model

import "github.com/shopspring/decimal"

// CustomRate is one row of a custom plan's normalized rate table.
type CustomRate struct {
	PlanID       string          `json:"plan_id"       yaml:"plan_id"`
	BrandGroup   Brand           `json:"brand_group"   yaml:"brand_group"`
	PaymentType  PaymentType     `json:"payment_type"  yaml:"payment_type"`
	Installments int             `json:"installments"  yaml:"installments"`
	Percentage   decimal.Decimal `json:"percentage"    yaml:"percentage"`
}
