package fixtures

import (
	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/shopspring/decimal"
)

const (
	AdminID       = "admin-1"
	MerchantID    = "merchant-1"
	OtherMerchant = "merchant-2"
	FlatPlanID    = "flat-five"
	ReceiptURL    = "https://receipts.example.com/r/1.pdf"
	ProofURL      = "https://proofs.example.com/p/1.pdf"
)

var (
	Admin = model.Profile{
		ID:   AdminID,
		Name: "Backoffice",
		Role: model.RoleAdmin,
		Plan: model.PlanBasic,
	}

	// Merchant pays a flat 5% on visa_master credit.
	Merchant = model.Profile{
		ID:           MerchantID,
		Name:         "Loja Um",
		Role:         model.RoleClient,
		Plan:         model.PlanCustom,
		CustomPlanID: FlatPlanID,
	}

	BasicMerchant = model.Profile{
		ID:   OtherMerchant,
		Name: "Loja Dois",
		Role: model.RoleClient,
		Plan: model.PlanBasic,
	}
)

func FlatPlan() []model.CustomRate {
	return []model.CustomRate{
		{BrandGroup: model.BrandVisaMaster, PaymentType: model.PaymentCredit, Installments: 1, Percentage: decimal.NewFromInt(5)},
		{BrandGroup: model.BrandVisaMaster, PaymentType: model.PaymentDebit, Installments: 1, Percentage: decimal.NewFromInt(2)},
		{BrandGroup: model.BrandPix, PaymentType: model.PaymentPixConta, Installments: 1, Percentage: decimal.NewFromInt(1)},
	}
}

func PixDestination() model.Destination {
	return model.Destination{Pix: &model.PixDestination{
		Key:       "loja@example.com",
		KeyType:   model.PixKeyEmail,
		OwnerName: "Loja Um",
	}}
}

// CreditSaleJSON is the POST /transactions body for a one-shot credit sale.
func CreditSaleJSON(gross int64) map[string]any {
	return map[string]any{
		"gross_value":  gross,
		"brand":        model.BrandVisaMaster,
		"payment_type": model.PaymentCredit,
		"installments": 1,
	}
}

func PixWithdrawalJSON(amount int64) map[string]any {
	return map[string]any{
		"amount":      amount,
		"method":      model.WithdrawalPix,
		"destination": PixDestination(),
	}
}
