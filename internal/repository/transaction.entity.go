package repository

import (
	"time"

	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/shopspring/decimal"
)

// TransactionEntity stores the status side-groups as flat nullable columns.
type TransactionEntity struct {
	ID                    string          `db:"id"                      gorm:"primaryKey;column:id;type:varchar(64)"`
	ClientID              string          `db:"client_id"               gorm:"column:client_id;not null;index"`
	GrossValue            int64           `db:"gross_value"             gorm:"column:gross_value;not null"`
	FeePercentage         decimal.Decimal `db:"fee_percentage"          gorm:"column:fee_percentage;type:numeric(7,4);not null"`
	FeeValue              int64           `db:"fee_value"               gorm:"column:fee_value;not null"`
	NetValue              int64           `db:"net_value"               gorm:"column:net_value;not null"`
	Brand                 string          `db:"brand"                   gorm:"column:brand;not null"`
	PaymentType           string          `db:"payment_type"            gorm:"column:payment_type;not null"`
	Installments          int             `db:"installments"            gorm:"column:installments;not null"`
	Status                string          `db:"status"                  gorm:"column:status;not null;index"`
	IsChargeback          bool            `db:"is_chargeback"           gorm:"column:is_chargeback;not null;default:false"`
	ReceiptURL            *string         `db:"receipt_url"             gorm:"column:receipt_url"`
	NoReceiptReason       *string         `db:"no_receipt_reason"       gorm:"column:no_receipt_reason"`
	VerifiedAt            *time.Time      `db:"verified_at"             gorm:"column:verified_at"`
	VerifiedBy            *string         `db:"verified_by"             gorm:"column:verified_by"`
	RejectionReason       *string         `db:"rejection_reason"        gorm:"column:rejection_reason"`
	RejectedAt            *time.Time      `db:"rejected_at"             gorm:"column:rejected_at"`
	RejectedBy            *string         `db:"rejected_by"             gorm:"column:rejected_by"`
	PaidAt                *time.Time      `db:"paid_at"                 gorm:"column:paid_at"`
	PaidBy                *string         `db:"paid_by"                 gorm:"column:paid_by"`
	ChargebackReason      *string         `db:"chargeback_reason"       gorm:"column:chargeback_reason"`
	ChargebackRequestedAt *time.Time      `db:"chargeback_requested_at" gorm:"column:chargeback_requested_at"`
	ChargebackRequestedBy *string         `db:"chargeback_requested_by" gorm:"column:chargeback_requested_by"`
	ChargebackAt          *time.Time      `db:"chargeback_at"           gorm:"column:chargeback_at"`
	ChargebackApprovedBy  *string         `db:"chargeback_approved_by"  gorm:"column:chargeback_approved_by"`
	CreatedAt             time.Time       `db:"created_at"              gorm:"column:created_at;not null;index"`
	UpdatedAt             time.Time       `db:"updated_at"              gorm:"column:updated_at;not null"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

// transactionImmutable lists the columns an update never touches.
var transactionImmutable = []string{
	"id", "client_id", "gross_value", "fee_percentage", "fee_value", "net_value",
	"brand", "payment_type", "installments", "created_at",
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	e := &TransactionEntity{
		ID:            m.ID,
		ClientID:      m.ClientID,
		GrossValue:    m.GrossValue,
		FeePercentage: m.FeePercentage,
		FeeValue:      m.FeeValue,
		NetValue:      m.NetValue,
		Brand:         string(m.Brand),
		PaymentType:   string(m.PaymentType),
		Installments:  m.Installments,
		Status:        string(m.Status),
		IsChargeback:  m.IsChargeback,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if ev := m.Evidence; ev != nil {
		e.ReceiptURL = nullable(ev.ReceiptURL)
		e.NoReceiptReason = nullable(ev.NoReceiptReason)
	}
	if v := m.Verification; v != nil {
		e.VerifiedAt, e.VerifiedBy = timePtr(v.At), nullable(v.By)
	}
	if rj := m.Rejection; rj != nil {
		e.RejectionReason, e.RejectedAt, e.RejectedBy = nullable(rj.Reason), timePtr(rj.At), nullable(rj.By)
	}
	if p := m.Payout; p != nil {
		e.PaidAt, e.PaidBy = timePtr(p.At), nullable(p.By)
	}
	if cb := m.Chargeback; cb != nil {
		e.ChargebackReason = nullable(cb.Reason)
		e.ChargebackRequestedAt = cb.RequestedAt
		e.ChargebackRequestedBy = nullable(cb.RequestedBy)
		e.ChargebackAt = cb.ApprovedAt
		e.ChargebackApprovedBy = nullable(cb.ApprovedBy)
	}
	return e
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	m := &model.Transaction{
		ID:            e.ID,
		ClientID:      e.ClientID,
		GrossValue:    e.GrossValue,
		FeePercentage: e.FeePercentage,
		FeeValue:      e.FeeValue,
		NetValue:      e.NetValue,
		Brand:         model.Brand(e.Brand),
		PaymentType:   model.PaymentType(e.PaymentType),
		Installments:  e.Installments,
		Status:        model.TransactionStatus(e.Status),
		IsChargeback:  e.IsChargeback,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
	if e.ReceiptURL != nil || e.NoReceiptReason != nil {
		m.Evidence = &model.Evidence{ReceiptURL: deref(e.ReceiptURL), NoReceiptReason: deref(e.NoReceiptReason)}
	}
	if e.VerifiedAt != nil {
		m.Verification = &model.Verification{At: *e.VerifiedAt, By: deref(e.VerifiedBy)}
	}
	if e.RejectedAt != nil {
		m.Rejection = &model.Rejection{Reason: deref(e.RejectionReason), At: *e.RejectedAt, By: deref(e.RejectedBy)}
	}
	if e.PaidAt != nil {
		m.Payout = &model.Payout{At: *e.PaidAt, By: deref(e.PaidBy)}
	}
	if e.ChargebackReason != nil || e.ChargebackAt != nil {
		m.Chargeback = &model.Chargeback{
			Reason:      deref(e.ChargebackReason),
			RequestedAt: e.ChargebackRequestedAt,
			RequestedBy: deref(e.ChargebackRequestedBy),
			ApprovedAt:  e.ChargebackAt,
			ApprovedBy:  deref(e.ChargebackApprovedBy),
		}
	}
	return m
}

func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	if entities == nil {
		return nil
	}
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
