package repository

import (
	"context"
	"testing"
	"time"

	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/nimasrn/merchant-ledger/pkg/pg"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *pg.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(&ProfileEntity{}, &CustomRateEntity{}, &TransactionEntity{}, &WithdrawalEntity{}, &AdjustmentEntity{})
	require.NoError(t, err)

	return pg.NewDB(db, db, nil)
}

var testNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func seedProfile(t *testing.T, db *pg.DB, id string, role model.Role) *model.Profile {
	t.Helper()
	p := &model.Profile{ID: id, Name: "Profile " + id, Role: role, Plan: model.PlanBasic}
	require.NoError(t, NewProfileRepository(db).Create(context.Background(), p))
	return p
}
