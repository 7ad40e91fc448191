package repository

import (
	"time"

	"github.com/nimasrn/merchant-ledger/internal/model"
)

type ProfileEntity struct {
	ID           string    `db:"id"             gorm:"primaryKey;column:id;type:varchar(64)"`
	Name         string    `db:"name"           gorm:"column:name;not null"`
	Role         string    `db:"role"           gorm:"column:role;not null"`
	Plan         string    `db:"plan"           gorm:"column:plan;not null"`
	CustomPlanID *string   `db:"custom_plan_id" gorm:"column:custom_plan_id"`
	CreatedAt    time.Time `db:"created_at"     gorm:"column:created_at;autoCreateTime"`
}

func (ProfileEntity) TableName() string {
	return "profiles"
}

func toProfileEntity(m *model.Profile) *ProfileEntity {
	if m == nil {
		return nil
	}
	return &ProfileEntity{
		ID:           m.ID,
		Name:         m.Name,
		Role:         string(m.Role),
		Plan:         m.Plan,
		CustomPlanID: nullable(m.CustomPlanID),
	}
}

func toProfileModel(e *ProfileEntity) *model.Profile {
	if e == nil {
		return nil
	}
	return &model.Profile{
		ID:           e.ID,
		Name:         e.Name,
		Role:         model.Role(e.Role),
		Plan:         e.Plan,
		CustomPlanID: deref(e.CustomPlanID),
	}
}
