package rates

import (
	"testing"

	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetValue(t *testing.T) {
	tests := []struct {
		name    string
		gross   int64
		pct     string
		wantFee int64
		wantNet int64
	}{
		{"whole percent", 1000, "5", 50, 950},
		{"fractional percent", 10000, "4.99", 499, 9501},
		{"rounds half up", 50, "1", 1, 49},       // 0.5 -> 1
		{"rounds down below half", 49, "1", 0, 49}, // 0.49 -> 0
		{"zero percent", 1234, "0", 0, 1234},
		{"large amount", 9_000_000_000, "2.49", 224_100_000, 8_775_900_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, net := NetValue(tt.gross, decimal.RequireFromString(tt.pct))
			assert.Equal(t, tt.wantFee, fee)
			assert.Equal(t, tt.wantNet, net)
			assert.Equal(t, tt.gross, fee+net)
		})
	}
}

func TestResolveFee_StandardPlans(t *testing.T) {
	for _, name := range []string{model.PlanBasic, model.PlanIntermediario, model.PlanTop} {
		plan, ok := StandardPlan(name)
		require.True(t, ok, name)

		t.Run(name+" covers every valid combination", func(t *testing.T) {
			for _, brand := range []model.Brand{model.BrandVisaMaster, model.BrandEloAmex} {
				_, err := ResolveFee(plan, brand, model.PaymentDebit, 1)
				assert.NoError(t, err)
				for n := 1; n <= model.MaxInstallments; n++ {
					_, err := ResolveFee(plan, brand, model.PaymentCredit, n)
					assert.NoError(t, err, "%s credit %dx", brand, n)
				}
			}
			_, err := ResolveFee(plan, model.BrandPix, model.PaymentPixConta, 1)
			assert.NoError(t, err)
			_, err = ResolveFee(plan, model.BrandPix, model.PaymentPixQRCode, 1)
			assert.NoError(t, err)
		})

		t.Run(name+" credit grows with installments", func(t *testing.T) {
			prev := decimal.Zero
			for n := 1; n <= model.MaxInstallments; n++ {
				pct, err := ResolveFee(plan, model.BrandVisaMaster, model.PaymentCredit, n)
				require.NoError(t, err)
				assert.True(t, pct.GreaterThan(prev), "%dx should cost more than %dx", n, n-1)
				prev = pct
			}
		})
	}

	basic, _ := StandardPlan(model.PlanBasic)
	pct, err := ResolveFee(basic, model.BrandVisaMaster, model.PaymentCredit, 1)
	require.NoError(t, err)
	assert.Equal(t, "4.99", pct.String())

	pct, err = ResolveFee(basic, model.BrandVisaMaster, model.PaymentCredit, 4)
	require.NoError(t, err)
	assert.Equal(t, "8.47", pct.String())
}

func TestStandardPlan_Unknown(t *testing.T) {
	_, ok := StandardPlan("platinum")
	assert.False(t, ok)

	_, ok = StandardPlan(model.PlanCustom)
	assert.False(t, ok)
}

func TestResolveFee_InvalidClassification(t *testing.T) {
	plan, _ := StandardPlan(model.PlanTop)

	tests := []struct {
		name  string
		brand model.Brand
		pt    model.PaymentType
		inst  int
	}{
		{"pix brand with card payment", model.BrandPix, model.PaymentDebit, 1},
		{"card brand with pix payment", model.BrandVisaMaster, model.PaymentPixConta, 1},
		{"debit with installments", model.BrandEloAmex, model.PaymentDebit, 3},
		{"too many installments", model.BrandVisaMaster, model.PaymentCredit, 13},
		{"zero installments", model.BrandVisaMaster, model.PaymentCredit, 0},
		{"unknown brand", model.Brand("diners"), model.PaymentCredit, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveFee(plan, tt.brand, tt.pt, tt.inst)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
}

func TestResolveFee_CustomPlan(t *testing.T) {
	table, err := TableFromRows([]model.CustomRate{
		{PlanID: "acme", BrandGroup: model.BrandVisaMaster, PaymentType: model.PaymentCredit, Installments: 3, Percentage: decimal.RequireFromString("3.5")},
		{PlanID: "acme", BrandGroup: model.BrandPix, PaymentType: model.PaymentPixQRCode, Installments: 1, Percentage: decimal.RequireFromString("0.5")},
	})
	require.NoError(t, err)
	plan := CustomPlan(table)

	pct, err := ResolveFee(plan, model.BrandVisaMaster, model.PaymentCredit, 3)
	require.NoError(t, err)
	assert.Equal(t, "3.5", pct.String())

	_, err = ResolveFee(plan, model.BrandVisaMaster, model.PaymentCredit, 2)
	assert.ErrorIs(t, err, model.ErrRateNotFound)

	_, err = ResolveFee(Plan{Name: model.PlanCustom}, model.BrandPix, model.PaymentPixQRCode, 1)
	assert.ErrorIs(t, err, model.ErrRateNotFound)
}

func TestTableFromRows_Rejects(t *testing.T) {
	row := model.CustomRate{PlanID: "p", BrandGroup: model.BrandEloAmex, PaymentType: model.PaymentDebit, Installments: 1, Percentage: decimal.RequireFromString("2")}

	_, err := TableFromRows([]model.CustomRate{row, row})
	assert.ErrorIs(t, err, model.ErrValidation)

	bad := row
	bad.Percentage = decimal.RequireFromString("-1")
	_, err = TableFromRows([]model.CustomRate{bad})
	assert.ErrorIs(t, err, model.ErrValidation)

	bad.Percentage = decimal.RequireFromString("100")
	_, err = TableFromRows([]model.CustomRate{bad})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestTable_Rows(t *testing.T) {
	plan, _ := StandardPlan(model.PlanBasic)
	rows := plan.table.Rows("basic")

	// 2 card groups x (debit + 12 credit) + 2 pix
	assert.Len(t, rows, 28)
	assert.Equal(t, model.BrandEloAmex, rows[0].BrandGroup)
	assert.Equal(t, model.PaymentCredit, rows[0].PaymentType)
	assert.Equal(t, 1, rows[0].Installments)

	rebuilt, err := TableFromRows(rows)
	require.NoError(t, err)
	assert.Equal(t, len(plan.table), len(rebuilt))
}

func TestParsePlanYAML(t *testing.T) {
	doc := []byte(`
plan_id: acme-2025
rates:
  - {brand: visa_master, type: credit, installments: 3, percentage: "5.10"}
  - {brand: pix, type: pix_conta, installments: 1, percentage: "0.25"}
`)
	planID, table, err := ParsePlanYAML(doc)
	require.NoError(t, err)
	assert.Equal(t, "acme-2025", planID)

	pct, ok := table.Lookup(model.BrandVisaMaster, model.PaymentCredit, 3)
	require.True(t, ok)
	assert.True(t, pct.Equal(decimal.RequireFromString("5.1")))

	t.Run("missing plan id", func(t *testing.T) {
		_, _, err := ParsePlanYAML([]byte("rates: []"))
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("bad percentage", func(t *testing.T) {
		_, _, err := ParsePlanYAML([]byte(`
plan_id: x
rates:
  - {brand: visa_master, type: debit, installments: 1, percentage: "abc"}
`))
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("invalid combination", func(t *testing.T) {
		_, _, err := ParsePlanYAML([]byte(`
plan_id: x
rates:
  - {brand: pix, type: credit, installments: 2, percentage: "1"}
`))
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, _, err := ParsePlanYAML([]byte("plan_id: [unterminated"))
		assert.Error(t, err)
	})
}
