package repository

import (
	"time"

	"github.com/nimasrn/merchant-ledger/internal/model"
)

type WithdrawalEntity struct {
	ID                string     `db:"id"                  gorm:"primaryKey;column:id;type:varchar(64)"`
	ClientID          string     `db:"client_id"           gorm:"column:client_id;not null;index"`
	Amount            int64      `db:"amount"              gorm:"column:amount;not null"`
	Method            string     `db:"method"              gorm:"column:method;not null"`
	Status            string     `db:"status"              gorm:"column:status;not null;index"`
	PixKey            *string    `db:"pix_key"             gorm:"column:pix_key"`
	PixKeyType        *string    `db:"pix_key_type"        gorm:"column:pix_key_type"`
	PixOwnerName      *string    `db:"pix_owner_name"      gorm:"column:pix_owner_name"`
	BankCode          *string    `db:"bank_code"           gorm:"column:bank_code"`
	BankAgency        *string    `db:"bank_agency"         gorm:"column:bank_agency"`
	BankAccount       *string    `db:"bank_account"        gorm:"column:bank_account"`
	BankAccountHolder *string    `db:"bank_account_holder" gorm:"column:bank_account_holder"`
	BoletoCode        *string    `db:"boleto_code"         gorm:"column:boleto_code"`
	BoletoBeneficiary *string    `db:"boleto_beneficiary"  gorm:"column:boleto_beneficiary"`
	AdminProofURL     *string    `db:"admin_proof_url"     gorm:"column:admin_proof_url"`
	PaidBy            *string    `db:"paid_by"             gorm:"column:paid_by"`
	PaidAt            *time.Time `db:"paid_at"             gorm:"column:paid_at"`
	CancelledBy       *string    `db:"cancelled_by"        gorm:"column:cancelled_by"`
	CancelledAt       *time.Time `db:"cancelled_at"        gorm:"column:cancelled_at"`
	CreatedAt         time.Time  `db:"created_at"          gorm:"column:created_at;not null;index"`
	UpdatedAt         time.Time  `db:"updated_at"          gorm:"column:updated_at;not null"`
}

func (WithdrawalEntity) TableName() string {
	return "withdrawals"
}

var withdrawalImmutable = []string{
	"id", "client_id", "amount", "method",
	"pix_key", "pix_key_type", "pix_owner_name",
	"bank_code", "bank_agency", "bank_account", "bank_account_holder",
	"boleto_code", "boleto_beneficiary", "created_at",
}

func toWithdrawalEntity(m *model.Withdrawal) *WithdrawalEntity {
	if m == nil {
		return nil
	}
	e := &WithdrawalEntity{
		ID:        m.ID,
		ClientID:  m.ClientID,
		Amount:    m.Amount,
		Method:    string(m.Method),
		Status:    string(m.Status),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if d := m.Destination.Pix; d != nil {
		e.PixKey, e.PixKeyType, e.PixOwnerName = nullable(d.Key), nullable(string(d.KeyType)), nullable(d.OwnerName)
	}
	if d := m.Destination.Bank; d != nil {
		e.BankCode, e.BankAgency = nullable(d.BankCode), nullable(d.Agency)
		e.BankAccount, e.BankAccountHolder = nullable(d.Account), nullable(d.AccountHolder)
	}
	if d := m.Destination.Boleto; d != nil {
		e.BoletoCode, e.BoletoBeneficiary = nullable(d.Code), nullable(d.BeneficiaryName)
	}
	if p := m.Payment; p != nil {
		e.AdminProofURL, e.PaidBy, e.PaidAt = nullable(p.ProofURL), nullable(p.PaidBy), timePtr(p.PaidAt)
	}
	if c := m.Cancellation; c != nil {
		e.CancelledBy, e.CancelledAt = nullable(c.By), timePtr(c.At)
	}
	return e
}

func toWithdrawalModel(e *WithdrawalEntity) *model.Withdrawal {
	if e == nil {
		return nil
	}
	m := &model.Withdrawal{
		ID:        e.ID,
		ClientID:  e.ClientID,
		Amount:    e.Amount,
		Method:    model.WithdrawalMethod(e.Method),
		Status:    model.WithdrawalStatus(e.Status),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	switch m.Method {
	case model.WithdrawalPix:
		m.Destination.Pix = &model.PixDestination{
			Key:       deref(e.PixKey),
			KeyType:   model.PixKeyType(deref(e.PixKeyType)),
			OwnerName: deref(e.PixOwnerName),
		}
	case model.WithdrawalBank:
		m.Destination.Bank = &model.BankDestination{
			BankCode:      deref(e.BankCode),
			Agency:        deref(e.BankAgency),
			Account:       deref(e.BankAccount),
			AccountHolder: deref(e.BankAccountHolder),
		}
	case model.WithdrawalBoleto:
		m.Destination.Boleto = &model.BoletoDestination{
			Code:            deref(e.BoletoCode),
			BeneficiaryName: deref(e.BoletoBeneficiary),
		}
	}
	if e.PaidAt != nil {
		m.Payment = &model.WithdrawalPayment{ProofURL: deref(e.AdminProofURL), PaidBy: deref(e.PaidBy), PaidAt: *e.PaidAt}
	}
	if e.CancelledAt != nil {
		m.Cancellation = &model.WithdrawalCancellation{By: deref(e.CancelledBy), At: *e.CancelledAt}
	}
	return m
}

func toWithdrawalModels(entities []*WithdrawalEntity) []*model.Withdrawal {
	if entities == nil {
		return nil
	}
	models := make([]*model.Withdrawal, len(entities))
	for i, e := range entities {
		models[i] = toWithdrawalModel(e)
	}
	return models
}
