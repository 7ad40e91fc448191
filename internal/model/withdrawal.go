package model

import (
	"strings"
	"time"
)

type WithdrawalMethod string

const (
	WithdrawalPix    WithdrawalMethod = "pix"
	WithdrawalBank   WithdrawalMethod = "bank"
	WithdrawalBoleto WithdrawalMethod = "boleto"
)

func (m WithdrawalMethod) Valid() bool {
	switch m {
	case WithdrawalPix, WithdrawalBank, WithdrawalBoleto:
		return true
	}
	return false
}

type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalPaid      WithdrawalStatus = "paid"
	WithdrawalCancelled WithdrawalStatus = "cancelled"
)

func (s WithdrawalStatus) Valid() bool {
	switch s {
	case WithdrawalPending, WithdrawalPaid, WithdrawalCancelled:
		return true
	}
	return false
}

func (s WithdrawalStatus) IsTerminal() bool {
	return s == WithdrawalPaid || s == WithdrawalCancelled
}

type PixKeyType string

const (
	PixKeyCPF    PixKeyType = "cpf"
	PixKeyCNPJ   PixKeyType = "cnpj"
	PixKeyEmail  PixKeyType = "email"
	PixKeyPhone  PixKeyType = "phone"
	PixKeyRandom PixKeyType = "random"
)

func (k PixKeyType) Valid() bool {
	switch k {
	case PixKeyCPF, PixKeyCNPJ, PixKeyEmail, PixKeyPhone, PixKeyRandom:
		return true
	}
	return false
}

type PixDestination struct {
	Key       string     `json:"pix_key"`
	KeyType   PixKeyType `json:"pix_key_type"`
	OwnerName string     `json:"owner_name"`
}

type BankDestination struct {
	BankCode      string `json:"bank_code"`
	Agency        string `json:"agency"`
	Account       string `json:"account"`
	AccountHolder string `json:"account_holder"`
}

type BoletoDestination struct {
	Code            string `json:"boleto_code"`
	BeneficiaryName string `json:"beneficiary_name"`
}

// Destination carries the payout target; exactly one member matches the
// withdrawal method.
type Destination struct {
	Pix    *PixDestination    `json:"pix,omitempty"`
	Bank   *BankDestination   `json:"bank,omitempty"`
	Boleto *BoletoDestination `json:"boleto,omitempty"`
}

func (d Destination) Validate(method WithdrawalMethod) error {
	set := 0
	for _, ok := range []bool{d.Pix != nil, d.Bank != nil, d.Boleto != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return Validationf("exactly one payout destination must be provided")
	}

	switch method {
	case WithdrawalPix:
		if d.Pix == nil {
			return Validationf("pix withdrawal requires pix destination")
		}
		if blank(d.Pix.Key) || blank(d.Pix.OwnerName) || !d.Pix.KeyType.Valid() {
			return Validationf("pix destination requires key, valid key type and owner name")
		}
	case WithdrawalBank:
		if d.Bank == nil {
			return Validationf("bank withdrawal requires bank destination")
		}
		if blank(d.Bank.BankCode) || blank(d.Bank.Agency) || blank(d.Bank.Account) || blank(d.Bank.AccountHolder) {
			return Validationf("bank destination requires bank code, agency, account and holder")
		}
	case WithdrawalBoleto:
		if d.Boleto == nil {
			return Validationf("boleto withdrawal requires boleto destination")
		}
		if blank(d.Boleto.Code) || blank(d.Boleto.BeneficiaryName) {
			return Validationf("boleto destination requires code and beneficiary name")
		}
	default:
		return Validationf("unknown withdrawal method %q", method)
	}
	return nil
}

type WithdrawalPayment struct {
	ProofURL string    `json:"admin_proof_url"`
	PaidBy   string    `json:"paid_by"`
	PaidAt   time.Time `json:"paid_at"`
}

type WithdrawalCancellation struct {
	By string    `json:"cancelled_by"`
	At time.Time `json:"cancelled_at"`
}

type Withdrawal struct {
	ID           string                  `json:"id"`
	ClientID     string                  `json:"client_id"`
	Amount       int64                   `json:"amount"`
	Method       WithdrawalMethod        `json:"method"`
	Destination  Destination             `json:"destination"`
	Status       WithdrawalStatus        `json:"status"`
	Payment      *WithdrawalPayment      `json:"payment,omitempty"`
	Cancellation *WithdrawalCancellation `json:"cancellation,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

func (w *Withdrawal) CheckInvariants() error {
	if w.ID == "" || w.ClientID == "" {
		return Reconciliationf("withdrawal without id or client")
	}
	if !w.Status.Valid() {
		return Reconciliationf("withdrawal %s: unknown status %q", w.ID, w.Status)
	}
	if !w.Method.Valid() {
		return Reconciliationf("withdrawal %s: unknown method %q", w.ID, w.Method)
	}
	if w.Amount <= 0 {
		return Reconciliationf("withdrawal %s: non-positive amount %d", w.ID, w.Amount)
	}
	if (w.Status == WithdrawalPaid) != (w.Payment != nil) {
		return Reconciliationf("withdrawal %s: payment fields do not match status %s", w.ID, w.Status)
	}
	if w.Payment != nil && (blank(w.Payment.ProofURL) || blank(w.Payment.PaidBy) || w.Payment.PaidAt.IsZero()) {
		return Reconciliationf("withdrawal %s: incomplete payment fields", w.ID)
	}
	if (w.Status == WithdrawalCancelled) != (w.Cancellation != nil) {
		return Reconciliationf("withdrawal %s: cancellation fields do not match status %s", w.ID, w.Status)
	}
	return nil
}

// WithdrawalCreateRequest is the input for a payout request.
type WithdrawalCreateRequest struct {
	ClientID    string
	Amount      int64
	Method      WithdrawalMethod
	Destination Destination
}

func (p WithdrawalCreateRequest) Validate() error {
	if p.ClientID == "" {
		return Validationf("client_id is required")
	}
	if p.Amount <= 0 {
		return Validationf("amount must be positive")
	}
	if !p.Method.Valid() {
		return Validationf("unknown withdrawal method %q", p.Method)
	}
	return p.Destination.Validate(p.Method)
}

// WithdrawalFilter controls List queries.
type WithdrawalFilter struct {
	ClientID *string
	Statuses []WithdrawalStatus
	Limit    int
	Offset   int
	Desc     bool
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
