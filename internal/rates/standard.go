package rates

import (
	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/shopspring/decimal"
)

type cardSchedule struct {
	debit   string
	credit  string
	parcel  string // 2x
	perStep string // added for every installment beyond 2x
}

type standardSchedule struct {
	visaMaster cardSchedule
	eloAmex    cardSchedule
	pixConta   string
	pixQRCode  string
}

var standardSchedules = map[string]standardSchedule{
	model.PlanBasic: {
		visaMaster: cardSchedule{debit: "1.99", credit: "4.99", parcel: "6.49", perStep: "0.99"},
		eloAmex:    cardSchedule{debit: "2.49", credit: "5.49", parcel: "6.99", perStep: "0.99"},
		pixConta:   "0.99",
		pixQRCode:  "1.49",
	},
	model.PlanIntermediario: {
		visaMaster: cardSchedule{debit: "1.59", credit: "4.39", parcel: "5.89", perStep: "0.89"},
		eloAmex:    cardSchedule{debit: "1.99", credit: "4.89", parcel: "6.39", perStep: "0.89"},
		pixConta:   "0.79",
		pixQRCode:  "1.19",
	},
	model.PlanTop: {
		visaMaster: cardSchedule{debit: "1.19", credit: "3.79", parcel: "5.19", perStep: "0.79"},
		eloAmex:    cardSchedule{debit: "1.59", credit: "4.29", parcel: "5.69", perStep: "0.79"},
		pixConta:   "0.49",
		pixQRCode:  "0.89",
	},
}

var standardTables = buildStandardTables()

func buildStandardTables() map[string]Table {
	tables := make(map[string]Table, len(standardSchedules))
	for name, s := range standardSchedules {
		t := make(Table)
		addCard(t, model.BrandVisaMaster, s.visaMaster)
		addCard(t, model.BrandEloAmex, s.eloAmex)
		t.Set(model.BrandPix, model.PaymentPixConta, 1, decimal.RequireFromString(s.pixConta))
		t.Set(model.BrandPix, model.PaymentPixQRCode, 1, decimal.RequireFromString(s.pixQRCode))
		tables[name] = t
	}
	return tables
}

func addCard(t Table, brand model.Brand, s cardSchedule) {
	t.Set(brand, model.PaymentDebit, 1, decimal.RequireFromString(s.debit))
	t.Set(brand, model.PaymentCredit, 1, decimal.RequireFromString(s.credit))

	parcel := decimal.RequireFromString(s.parcel)
	step := decimal.RequireFromString(s.perStep)
	for n := 2; n <= model.MaxInstallments; n++ {
		t.Set(brand, model.PaymentCredit, n, parcel.Add(step.Mul(decimal.NewFromInt(int64(n-2)))))
	}
}
