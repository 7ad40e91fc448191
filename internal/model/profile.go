package model

type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

// Plan names. Anything else on a profile is rejected by the rate engine.
const (
	PlanBasic         = "basic"
	PlanIntermediario = "intermediario"
	PlanTop           = "top"
	PlanCustom        = "custom"
)

// Profile is owned by the auth service; the ledger only reads role and plan.
type Profile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Role         Role   `json:"role"`
	Plan         string `json:"plan"`
	CustomPlanID string `json:"custom_plan_id,omitempty"`
}

func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
