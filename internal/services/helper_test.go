package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/merchant-ledger/internal/cache"
	"github.com/nimasrn/merchant-ledger/internal/events"
	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/nimasrn/merchant-ledger/internal/repository"
	"github.com/nimasrn/merchant-ledger/pkg/pg"
	"github.com/nimasrn/merchant-ledger/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

const (
	adminID   = "admin-1"
	clientID  = "client-1"
	otherID   = "client-2"
	fivePlan  = "plan-five"
	receiptOK = "https://receipts.example.com/r/1.pdf"
)

type fixture struct {
	db       *pg.DB
	ledger   *Ledger
	recorder *events.Recorder
	mr       *miniredis.Miniredis
	clock    *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func openSQLite(t *testing.T) *gorm.DB {
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
	return db
}

func setupDB(t *testing.T) *pg.DB {
	t.Helper()
	g := openSQLite(t)
	return pg.NewDB(g, g, nil)
}

func setupCache(t *testing.T) (*miniredis.Miniredis, *cache.BalanceCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	adapter, err := redis.NewRedisAdapter(t.Name()+"-"+mr.Addr(), "ledger:", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)
	return mr, cache.NewBalanceCache(adapter, time.Minute)
}

// setupLedger seeds an admin, a client on a flat 5% custom plan for
// visa_master credit and a second client on the basic plan.
func setupLedger(t *testing.T, withCache bool) *fixture {
	t.Helper()
	ctx := context.Background()
	db := setupDB(t)

	profiles := repository.NewProfileRepository(db)
	rates := repository.NewRateRepository(db)
	require.NoError(t, rates.ReplacePlan(ctx, fivePlan, []model.CustomRate{{
		PlanID:       fivePlan,
		BrandGroup:   model.BrandVisaMaster,
		PaymentType:  model.PaymentCredit,
		Installments: 1,
		Percentage:   decimal.NewFromInt(5),
	}}))
	for _, p := range []*model.Profile{
		{ID: adminID, Name: "Admin", Role: model.RoleAdmin, Plan: model.PlanBasic},
		{ID: clientID, Name: "Loja Um", Role: model.RoleClient, Plan: model.PlanCustom, CustomPlanID: fivePlan},
		{ID: otherID, Name: "Loja Dois", Role: model.RoleClient, Plan: model.PlanBasic},
	} {
		require.NoError(t, profiles.Create(ctx, p))
	}

	f := &fixture{db: db, recorder: &events.Recorder{}, clock: &testClock{now: testNow}}
	deps := Deps{
		Store:        repository.NewStore(db),
		Profiles:     profiles,
		Rates:        rates,
		Transactions: repository.NewTransactionRepository(db),
		Withdrawals:  repository.NewWithdrawalRepository(db),
		Adjustments:  repository.NewAdjustmentRepository(db),
		Emitter:      f.recorder,
		Timeout:      5 * time.Second,
		Now:          f.clock.Now,
	}
	if withCache {
		f.mr, deps.Cache = setupCache(t)
	}
	f.ledger = NewLedger(deps)
	return f
}

func saleRequest(owner string, gross int64) model.TransactionCreateRequest {
	return model.TransactionCreateRequest{
		ClientID:     owner,
		GrossValue:   gross,
		Brand:        model.BrandVisaMaster,
		PaymentType:  model.PaymentCredit,
		Installments: 1,
	}
}

func pixWithdrawal(owner string, amount int64) model.WithdrawalCreateRequest {
	return model.WithdrawalCreateRequest{
		ClientID: owner,
		Amount:   amount,
		Method:   model.WithdrawalPix,
		Destination: model.Destination{Pix: &model.PixDestination{
			Key:       "loja@example.com",
			KeyType:   model.PixKeyEmail,
			OwnerName: "Loja Um",
		}},
	}
}

// verifiedSale creates a sale for clientID and walks it to verified.
func (f *fixture) verifiedSale(t *testing.T, gross int64) *model.Transaction {
	t.Helper()
	ctx := context.Background()
	txn, err := f.ledger.Transactions.Create(ctx, saleRequest(clientID, gross))
	require.NoError(t, err)
	_, err = f.ledger.Transactions.SubmitReceipt(ctx, txn.ID, clientID, model.Evidence{ReceiptURL: receiptOK})
	require.NoError(t, err)
	txn, err = f.ledger.Transactions.Verify(ctx, txn.ID, adminID)
	require.NoError(t, err)
	return txn
}

func (f *fixture) balances(t *testing.T, id string) model.ClientBalances {
	t.Helper()
	b, err := f.ledger.Balances.Get(context.Background(), id)
	require.NoError(t, err)
	return b
}
