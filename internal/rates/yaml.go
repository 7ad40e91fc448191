package rates

import (
	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// PlanFile is the YAML layout accepted by the rate-plan importer:
//
//	plan_id: acme-2025
//	rates:
//	  - {brand: visa_master, type: credit, installments: 3, percentage: "5.10"}
type PlanFile struct {
	PlanID string     `yaml:"plan_id"`
	Rates  []planRate `yaml:"rates"`
}

type planRate struct {
	Brand        string `yaml:"brand"`
	Type         string `yaml:"type"`
	Installments int    `yaml:"installments"`
	Percentage   string `yaml:"percentage"`
}

// ParsePlanYAML decodes and validates a custom plan definition.
func ParsePlanYAML(data []byte) (string, Table, error) {
	var f PlanFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return "", nil, errors.Wrap(err, "decode plan yaml")
	}
	if f.PlanID == "" {
		return "", nil, model.Validationf("plan_id is required")
	}
	if len(f.Rates) == 0 {
		return "", nil, model.Validationf("plan %s has no rates", f.PlanID)
	}

	rows := make([]model.CustomRate, 0, len(f.Rates))
	for i, r := range f.Rates {
		pct, err := decimal.NewFromString(r.Percentage)
		if err != nil {
			return "", nil, model.Validationf("rate %d: invalid percentage %q", i, r.Percentage)
		}
		rows = append(rows, model.CustomRate{
			PlanID:       f.PlanID,
			BrandGroup:   model.Brand(r.Brand),
			PaymentType:  model.PaymentType(r.Type),
			Installments: r.Installments,
			Percentage:   pct,
		})
	}

	t, err := TableFromRows(rows)
	if err != nil {
		return "", nil, err
	}
	return f.PlanID, t, nil
}
