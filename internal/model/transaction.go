package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Brand string

const (
	BrandVisaMaster Brand = "visa_master"
	BrandEloAmex    Brand = "elo_amex"
	BrandPix        Brand = "pix"
)

func (b Brand) Valid() bool {
	switch b {
	case BrandVisaMaster, BrandEloAmex, BrandPix:
		return true
	}
	return false
}

type PaymentType string

const (
	PaymentDebit     PaymentType = "debit"
	PaymentCredit    PaymentType = "credit"
	PaymentPixConta  PaymentType = "pix_conta"
	PaymentPixQRCode PaymentType = "pix_qrcode"
)

func (p PaymentType) Valid() bool {
	switch p {
	case PaymentDebit, PaymentCredit, PaymentPixConta, PaymentPixQRCode:
		return true
	}
	return false
}

func (p PaymentType) IsPix() bool {
	return p == PaymentPixConta || p == PaymentPixQRCode
}

// MaxInstallments is the longest credit installment plan accepted.
const MaxInstallments = 12

// TransactionStatus is the lifecycle state of a sale.
type TransactionStatus string

const (
	TransactionPendingReceipt      TransactionStatus = "pending_receipt"
	TransactionPendingVerification TransactionStatus = "pending_verification"
	TransactionVerified            TransactionStatus = "verified"
	TransactionRejected            TransactionStatus = "rejected"
	TransactionPaid                TransactionStatus = "paid"
	TransactionChargeback          TransactionStatus = "chargeback"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionPendingReceipt, TransactionPendingVerification, TransactionVerified,
		TransactionRejected, TransactionPaid, TransactionChargeback:
		return true
	}
	return false
}

func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionRejected || s == TransactionChargeback
}

// Evidence holds either a receipt reference or the reason no receipt exists.
type Evidence struct {
	ReceiptURL      string `json:"receipt_url,omitempty"`
	NoReceiptReason string `json:"no_receipt_reason,omitempty"`
}

func (e *Evidence) Validate() error {
	if e == nil {
		return Validationf("receipt or no-receipt reason is required")
	}
	hasReceipt := strings.TrimSpace(e.ReceiptURL) != ""
	hasReason := strings.TrimSpace(e.NoReceiptReason) != ""
	if hasReceipt == hasReason {
		return Validationf("exactly one of receipt_url and no_receipt_reason must be set")
	}
	return nil
}

type Verification struct {
	At time.Time `json:"verified_at"`
	By string    `json:"verified_by"`
}

type Rejection struct {
	Reason string    `json:"rejection_reason"`
	At     time.Time `json:"rejected_at"`
	By     string    `json:"rejected_by"`
}

type Payout struct {
	At time.Time `json:"paid_at"`
	By string    `json:"paid_by"`
}

// Chargeback is set by a client request (pending marker) and completed by an
// admin approval. ApprovedAt is non-nil only once the status is chargeback.
type Chargeback struct {
	Reason      string     `json:"chargeback_reason"`
	RequestedAt *time.Time `json:"chargeback_requested_at,omitempty"`
	RequestedBy string     `json:"chargeback_requested_by,omitempty"`
	ApprovedAt  *time.Time `json:"chargeback_at,omitempty"`
	ApprovedBy  string     `json:"chargeback_approved_by,omitempty"`
}

type Transaction struct {
	ID            string            `json:"id"`
	ClientID      string            `json:"client_id"`
	GrossValue    int64             `json:"gross_value"`
	FeePercentage decimal.Decimal   `json:"fee_percentage"`
	FeeValue      int64             `json:"fee_value"`
	NetValue      int64             `json:"net_value"`
	Brand         Brand             `json:"brand"`
	PaymentType   PaymentType       `json:"payment_type"`
	Installments  int               `json:"installments"`
	Status        TransactionStatus `json:"status"`
	IsChargeback  bool              `json:"is_chargeback"`
	Evidence      *Evidence         `json:"evidence,omitempty"`
	Verification  *Verification     `json:"verification,omitempty"`
	Rejection     *Rejection        `json:"rejection,omitempty"`
	Payout        *Payout           `json:"payout,omitempty"`
	Chargeback    *Chargeback       `json:"chargeback,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// ChargebackPending reports whether a client request awaits an admin decision.
func (t *Transaction) ChargebackPending() bool {
	return t.Chargeback != nil && t.Chargeback.ApprovedAt == nil
}

// CheckInvariants verifies that the status and its side fields agree. It is
// run before every persisted write and by the balance engine.
func (t *Transaction) CheckInvariants() error {
	if t.ID == "" || t.ClientID == "" {
		return Reconciliationf("transaction without id or client")
	}
	if !t.Status.Valid() {
		return Reconciliationf("transaction %s: unknown status %q", t.ID, t.Status)
	}
	if t.GrossValue <= 0 || t.FeeValue < 0 || t.NetValue != t.GrossValue-t.FeeValue {
		return Reconciliationf("transaction %s: inconsistent values gross=%d fee=%d net=%d", t.ID, t.GrossValue, t.FeeValue, t.NetValue)
	}
	if t.Installments < 1 {
		return Reconciliationf("transaction %s: installments %d", t.ID, t.Installments)
	}

	switch t.Status {
	case TransactionPendingReceipt:
		if t.Evidence != nil {
			return Reconciliationf("transaction %s: evidence present while pending receipt", t.ID)
		}
	default:
		if err := t.Evidence.Validate(); err != nil {
			return Reconciliationf("transaction %s: %s", t.ID, err.Error())
		}
	}

	settled := t.Status == TransactionVerified || t.Status == TransactionPaid || t.Status == TransactionChargeback
	if settled != (t.Verification != nil) {
		return Reconciliationf("transaction %s: verification fields do not match status %s", t.ID, t.Status)
	}
	if (t.Status == TransactionRejected) != (t.Rejection != nil) {
		return Reconciliationf("transaction %s: rejection fields do not match status %s", t.ID, t.Status)
	}
	if t.Rejection != nil && strings.TrimSpace(t.Rejection.Reason) == "" {
		return Reconciliationf("transaction %s: rejected without reason", t.ID)
	}
	if t.Status == TransactionPaid && t.Payout == nil {
		return Reconciliationf("transaction %s: paid without payout fields", t.ID)
	}
	if t.Payout != nil && t.Status != TransactionPaid && t.Status != TransactionChargeback {
		return Reconciliationf("transaction %s: payout fields on status %s", t.ID, t.Status)
	}
	if t.Chargeback != nil && !settled {
		return Reconciliationf("transaction %s: chargeback fields on status %s", t.ID, t.Status)
	}
	if t.IsChargeback != (t.Status == TransactionChargeback) {
		return Reconciliationf("transaction %s: chargeback flag does not match status %s", t.ID, t.Status)
	}
	if t.Status == TransactionChargeback {
		if t.Chargeback == nil || t.Chargeback.ApprovedAt == nil || strings.TrimSpace(t.Chargeback.Reason) == "" {
			return Reconciliationf("transaction %s: chargeback without approval or reason", t.ID)
		}
	} else if t.Chargeback != nil && t.Chargeback.ApprovedAt != nil {
		return Reconciliationf("transaction %s: approved chargeback on status %s", t.ID, t.Status)
	}
	return nil
}

// TransactionCreateRequest is the input for registering a sale.
type TransactionCreateRequest struct {
	ClientID     string
	GrossValue   int64
	Brand        Brand
	PaymentType  PaymentType
	Installments int
	// Evidence is optional; when present the sale skips pending_receipt.
	Evidence *Evidence
}

func (p TransactionCreateRequest) Validate() error {
	if p.ClientID == "" {
		return Validationf("client_id is required")
	}
	if p.GrossValue <= 0 {
		return Validationf("gross_value must be positive")
	}
	if p.Evidence != nil {
		if err := p.Evidence.Validate(); err != nil {
			return err
		}
	}
	return ValidateClassification(p.Brand, p.PaymentType, p.Installments)
}

// ValidateClassification checks the brand/payment-type/installments domain.
func ValidateClassification(brand Brand, pt PaymentType, installments int) error {
	if !brand.Valid() {
		return Validationf("unknown brand %q", brand)
	}
	if !pt.Valid() {
		return Validationf("unknown payment type %q", pt)
	}
	if (brand == BrandPix) != pt.IsPix() {
		return Validationf("payment type %s is not accepted for brand %s", pt, brand)
	}
	if installments < 1 {
		return Validationf("installments must be at least 1")
	}
	if pt != PaymentCredit && installments != 1 {
		return Validationf("%s payments must have exactly 1 installment", pt)
	}
	if installments > MaxInstallments {
		return Validationf("installments must not exceed %d", MaxInstallments)
	}
	return nil
}

// TransactionFilter controls List queries.
type TransactionFilter struct {
	ClientID          *string
	Statuses          []TransactionStatus
	ChargebackPending bool
	Limit             int
	Offset            int
	Desc              bool
}
