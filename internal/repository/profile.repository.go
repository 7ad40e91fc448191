package repository

import (
	"context"

	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/nimasrn/merchant-ledger/pkg/pg"
	"gorm.io/gorm/clause"
)

// ProfileRepository reads the profiles owned by the auth service. Create
// exists for seeding and tests.
type ProfileRepository struct {
	*pg.DB
}

func NewProfileRepository(db *pg.DB) *ProfileRepository {
	return &ProfileRepository{
		db,
	}
}

func (r *ProfileRepository) Create(ctx context.Context, p *model.Profile) error {
	if err := r.Write(ctx).Create(toProfileEntity(p)).Error; err != nil {
		return translate(err, "create profile %s", p.ID)
	}
	return nil
}

func (r *ProfileRepository) Get(ctx context.Context, id string) (*model.Profile, error) {
	var entity ProfileEntity
	if err := r.Read(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, translate(err, "profile %s", id)
	}
	return toProfileModel(&entity), nil
}

// LockForUpdate takes the row lock that serializes balance-checked writes
// for one client.
func (r *ProfileRepository) LockForUpdate(ctx context.Context, id string) (*model.Profile, error) {
	var entity ProfileEntity
	err := r.Write(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err, "profile %s", id)
	}
	return toProfileModel(&entity), nil
}

func (r *ProfileRepository) UpdatePlan(ctx context.Context, id, plan, customPlanID string) error {
	result := r.Write(ctx).
		Model(&ProfileEntity{}).
		Where("id = ?", id).
		Updates(map[string]any{"plan": plan, "custom_plan_id": nullable(customPlanID)})
	if result.Error != nil {
		return translate(result.Error, "update plan of profile %s", id)
	}
	if result.RowsAffected == 0 {
		return model.NotFoundf("profile %s", id)
	}
	return nil
}
