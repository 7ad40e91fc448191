package model

import (
	"time"
)

type AdjustmentType string

const (
	AdjustmentAdd    AdjustmentType = "add"
	AdjustmentRemove AdjustmentType = "remove"
)

func (t AdjustmentType) Valid() bool {
	return t == AdjustmentAdd || t == AdjustmentRemove
}

// BalanceAdjustment is a manual admin credit or debit. Rows are never updated
// or deleted; a correction is a new adjustment of the opposite type.
type BalanceAdjustment struct {
	ID        string         `json:"id"`
	ClientID  string         `json:"client_id"`
	Type      AdjustmentType `json:"type"`
	Amount    int64          `json:"amount"`
	Reason    string         `json:"reason"`
	AdminID   string         `json:"admin_id"`
	CreatedAt time.Time      `json:"created_at"`
}

// Signed is the adjustment's contribution to the available balance.
func (a *BalanceAdjustment) Signed() int64 {
	if a.Type == AdjustmentRemove {
		return -a.Amount
	}
	return a.Amount
}

type AdjustmentCreateRequest struct {
	ClientID string
	AdminID  string
	Type     AdjustmentType
	Amount   int64
	Reason   string
}

func (p AdjustmentCreateRequest) Validate() error {
	if p.ClientID == "" {
		return Validationf("client_id is required")
	}
	if p.AdminID == "" {
		return Validationf("admin_id is required")
	}
	if !p.Type.Valid() {
		return Validationf("adjustment type must be add or remove")
	}
	if p.Amount <= 0 {
		return Validationf("amount must be positive")
	}
	if blank(p.Reason) {
		return Validationf("reason is required")
	}
	return nil
}
