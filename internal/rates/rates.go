// Package rates resolves the fee percentage charged on a sale from the
// client's plan. Resolution is pure: custom tables are loaded by the caller.
package rates

import (
	"sort"

	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type key struct {
	brand        model.Brand
	paymentType  model.PaymentType
	installments int
}

// Table maps (brand group, payment type, installments) to a fee percentage.
type Table map[key]decimal.Decimal

func (t Table) Set(brand model.Brand, pt model.PaymentType, installments int, pct decimal.Decimal) {
	t[key{brand, pt, installments}] = pct
}

func (t Table) Lookup(brand model.Brand, pt model.PaymentType, installments int) (decimal.Decimal, bool) {
	pct, ok := t[key{brand, pt, installments}]
	return pct, ok
}

// Rows returns the table as custom-rate rows ordered by brand, type and installments.
func (t Table) Rows(planID string) []model.CustomRate {
	rows := make([]model.CustomRate, 0, len(t))
	for k, pct := range t {
		rows = append(rows, model.CustomRate{
			PlanID:       planID,
			BrandGroup:   k.brand,
			PaymentType:  k.paymentType,
			Installments: k.installments,
			Percentage:   pct,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].BrandGroup != rows[j].BrandGroup {
			return rows[i].BrandGroup < rows[j].BrandGroup
		}
		if rows[i].PaymentType != rows[j].PaymentType {
			return rows[i].PaymentType < rows[j].PaymentType
		}
		return rows[i].Installments < rows[j].Installments
	})
	return rows
}

// TableFromRows builds a custom plan table, rejecting malformed or duplicate rows.
func TableFromRows(rows []model.CustomRate) (Table, error) {
	t := make(Table, len(rows))
	for _, r := range rows {
		if err := model.ValidateClassification(r.BrandGroup, r.PaymentType, r.Installments); err != nil {
			return nil, err
		}
		if r.Percentage.IsNegative() || r.Percentage.GreaterThanOrEqual(hundred) {
			return nil, model.Validationf("percentage %s out of range for %s/%s/%d", r.Percentage, r.BrandGroup, r.PaymentType, r.Installments)
		}
		if _, dup := t.Lookup(r.BrandGroup, r.PaymentType, r.Installments); dup {
			return nil, model.Validationf("duplicate rate for %s/%s/%d", r.BrandGroup, r.PaymentType, r.Installments)
		}
		t.Set(r.BrandGroup, r.PaymentType, r.Installments, r.Percentage)
	}
	return t, nil
}

// Plan is the fee schedule a client is billed on.
type Plan struct {
	Name  string
	table Table
}

// StandardPlan returns one of the built-in plans.
func StandardPlan(name string) (Plan, bool) {
	t, ok := standardTables[name]
	if !ok {
		return Plan{}, false
	}
	return Plan{Name: name, table: t}, true
}

// CustomPlan wraps a table loaded from the custom_rates store.
func CustomPlan(t Table) Plan {
	return Plan{Name: model.PlanCustom, table: t}
}

// ResolveFee returns the fee percentage for a sale. A combination missing from
// the plan fails with RateNotFound instead of falling back to a default.
func ResolveFee(plan Plan, brand model.Brand, pt model.PaymentType, installments int) (decimal.Decimal, error) {
	if err := model.ValidateClassification(brand, pt, installments); err != nil {
		return decimal.Zero, err
	}
	if plan.table == nil {
		return decimal.Zero, model.RateNotFoundf("plan %q has no rate table", plan.Name)
	}
	pct, ok := plan.table.Lookup(brand, pt, installments)
	if !ok {
		return decimal.Zero, model.RateNotFoundf("plan %q has no rate for %s/%s/%dx", plan.Name, brand, pt, installments)
	}
	return pct, nil
}

// NetValue splits a gross amount into fee and net using half-away-from-zero
// rounding to the minor unit.
func NetValue(gross int64, pct decimal.Decimal) (fee, net int64) {
	fee = decimal.NewFromInt(gross).Mul(pct).Div(hundred).Round(0).IntPart()
	return fee, gross - fee
}
