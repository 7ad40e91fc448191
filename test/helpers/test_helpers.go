package helpers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/nimasrn/merchant-ledger/internal/repository"
	"github.com/nimasrn/merchant-ledger/pkg/pg"
	"github.com/nimasrn/merchant-ledger/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB returns an in-memory ledger store. A single connection keeps
// sqlite transactions serialized the way row locks do on postgres.
func SetupTestDB(t *testing.T) *pg.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&repository.ProfileEntity{},
		&repository.CustomRateEntity{},
		&repository.TransactionEntity{},
		&repository.WithdrawalEntity{},
		&repository.AdjustmentEntity{},
	)
	require.NoError(t, err)

	return pg.NewDB(db, db, nil)
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	t.Helper()
	mr := miniredis.RunT(t)

	// adapters are cached by name, so every test gets its own
	name := fmt.Sprintf("test-%s-%d", t.Name(), time.Now().UnixNano())
	adapter, err := redis.NewRedisAdapter(name, "ledger:", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestProfile(t *testing.T, db *pg.DB, p model.Profile) *model.Profile {
	t.Helper()
	require.NoError(t, repository.NewProfileRepository(db).Create(context.Background(), &p))
	return &p
}

func CreateTestPlan(t *testing.T, db *pg.DB, planID string, rows []model.CustomRate) {
	t.Helper()
	for i := range rows {
		rows[i].PlanID = planID
	}
	require.NoError(t, repository.NewRateRepository(db).ReplacePlan(context.Background(), planID, rows))
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Ptr[T any](v T) *T {
	return &v
}
