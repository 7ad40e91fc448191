package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/merchant-ledger/internal/balance"
	"github.com/nimasrn/merchant-ledger/internal/cache"
	"github.com/nimasrn/merchant-ledger/internal/events"
	"github.com/nimasrn/merchant-ledger/internal/handlers"
	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/nimasrn/merchant-ledger/internal/notifier"
	"github.com/nimasrn/merchant-ledger/internal/queue"
	"github.com/nimasrn/merchant-ledger/internal/repository"
	"github.com/nimasrn/merchant-ledger/internal/services"
	"github.com/nimasrn/merchant-ledger/internal/webhook"
	"github.com/nimasrn/merchant-ledger/pkg/pg"
	"github.com/nimasrn/merchant-ledger/pkg/redis"
	xhttp "github.com/nimasrn/merchant-ledger/pkg/http"
	"github.com/nimasrn/merchant-ledger/test/fixtures"
	"github.com/nimasrn/merchant-ledger/test/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

const eventStream = "events"

type TestEnvironment struct {
	DB           *pg.DB
	Redis        *miniredis.Miniredis
	RedisAdapter redis.RedisAdapter
	Queue        *queue.Queue
	Ledger       *services.Ledger
	Router       *xhttp.Router
}

func setupE2EEnvironment(t *testing.T) *TestEnvironment {
	db := helpers.SetupTestDB(t)
	mr, adapter := helpers.SetupTestRedis(t)

	helpers.CreateTestPlan(t, db, fixtures.FlatPlanID, fixtures.FlatPlan())
	helpers.CreateTestProfile(t, db, fixtures.Admin)
	helpers.CreateTestProfile(t, db, fixtures.Merchant)
	helpers.CreateTestProfile(t, db, fixtures.BasicMerchant)

	q, err := queue.NewQueue(context.Background(), adapter, queue.QueueConfig{
		Name:          eventStream,
		ConsumerGroup: "api",
		MaxLen:        1000,
		EnableDLQ:     true,
	})
	require.NoError(t, err)

	ledger := services.NewLedger(services.Deps{
		Store:        repository.NewStore(db),
		Profiles:     repository.NewProfileRepository(db),
		Rates:        repository.NewRateRepository(db),
		Transactions: repository.NewTransactionRepository(db),
		Withdrawals:  repository.NewWithdrawalRepository(db),
		Adjustments:  repository.NewAdjustmentRepository(db),
		Cache:        cache.NewBalanceCache(adapter, time.Minute),
		Emitter:      events.NewStreamEmitter(q, time.Second),
		Timeout:      5 * time.Second,
	})

	r := xhttp.CreateDefaultRouter()
	g := r.Group("/api/v1")
	handlers.RegisterTransactionRoutes(g, handlers.NewTransactionHandler(ledger.Transactions))
	handlers.RegisterWithdrawalRoutes(g, handlers.NewWithdrawalHandler(ledger.Withdrawals))
	handlers.RegisterClientRoutes(g, handlers.NewClientHandler(ledger.Adjustments, ledger.Balances))

	env := &TestEnvironment{
		DB:           db,
		Redis:        mr,
		RedisAdapter: adapter,
		Queue:        q,
		Ledger:       ledger,
		Router:       r,
	}
	t.Cleanup(func() { _ = q.Stop(time.Second) })
	return env
}

// call runs one request through the router and decodes a 2xx body into out.
func (env *TestEnvironment) call(t *testing.T, method, path, actor string, body any, out any) int {
	t.Helper()
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(path)
	req.Header.Set(handlers.ActorHeader, actor)
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		req.Header.SetContentType("application/json")
		req.SetBody(data)
	}

	var ctx fasthttp.RequestCtx
	ctx.Init(&req, nil, nil)
	env.Router.Handler(&ctx)

	status := ctx.Response.StatusCode()
	if out != nil && status < 300 {
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), out), string(ctx.Response.Body()))
	}
	return status
}

func (env *TestEnvironment) balances(t *testing.T, actor, clientID string) model.ClientBalances {
	t.Helper()
	var b model.ClientBalances
	status := env.call(t, "GET", "/api/v1/clients/"+clientID+"/balances", actor, nil, &b)
	require.Equal(t, http.StatusOK, status)
	return b
}

// verifiedSale walks a credit sale from creation to verified over HTTP.
func (env *TestEnvironment) verifiedSale(t *testing.T, gross int64) model.Transaction {
	t.Helper()
	var txn model.Transaction
	require.Equal(t, http.StatusCreated, env.call(t, "POST", "/api/v1/transactions", fixtures.MerchantID, fixtures.CreditSaleJSON(gross), &txn))
	require.Equal(t, http.StatusOK, env.call(t, "POST", "/api/v1/transactions/"+txn.ID+"/receipt", fixtures.MerchantID,
		model.Evidence{ReceiptURL: fixtures.ReceiptURL}, &txn))
	require.Equal(t, http.StatusOK, env.call(t, "POST", "/api/v1/transactions/"+txn.ID+"/verify", fixtures.AdminID, nil, &txn))
	return txn
}

func TestE2E_SaleToPayout(t *testing.T) {
	env := setupE2EEnvironment(t)

	txn := env.verifiedSale(t, 1000)
	assert.Equal(t, model.TransactionVerified, txn.Status)
	assert.Equal(t, int64(50), txn.FeeValue)
	assert.Equal(t, int64(950), txn.NetValue)

	b := env.balances(t, fixtures.MerchantID, fixtures.MerchantID)
	assert.Equal(t, int64(950), b.Available)
	assert.Equal(t, int64(0), b.Pending)

	var w model.Withdrawal
	require.Equal(t, http.StatusCreated, env.call(t, "POST", "/api/v1/withdrawals", fixtures.MerchantID, fixtures.PixWithdrawalJSON(600), &w))
	assert.Equal(t, model.WithdrawalPending, w.Status)

	b = env.balances(t, fixtures.MerchantID, fixtures.MerchantID)
	assert.Equal(t, int64(350), b.Available)

	status := env.call(t, "POST", "/api/v1/withdrawals", fixtures.MerchantID, fixtures.PixWithdrawalJSON(351), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	require.Equal(t, http.StatusOK, env.call(t, "POST", "/api/v1/withdrawals/"+w.ID+"/pay", fixtures.AdminID,
		map[string]string{"proof_url": fixtures.ProofURL}, &w))
	assert.Equal(t, model.WithdrawalPaid, w.Status)

	b = env.balances(t, fixtures.AdminID, fixtures.MerchantID)
	assert.Equal(t, int64(350), b.Available)
	assert.Equal(t, int64(600), b.Withdrawn)
	assert.Equal(t, int64(950), b.Total)

	var breakdown balance.Breakdown
	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/v1/clients/"+fixtures.MerchantID+"/balances/breakdown", fixtures.AdminID, nil, &breakdown))
	assert.Equal(t, int64(950), breakdown.VerifiedTotal)
	assert.Equal(t, int64(600), breakdown.WithdrawnCommitted)
	assert.Equal(t, http.StatusForbidden, env.call(t, "GET", "/api/v1/clients/"+fixtures.MerchantID+"/balances/breakdown", fixtures.MerchantID, nil, nil))
}

func TestE2E_ChargebackAfterWithdrawalCreatesDebt(t *testing.T) {
	env := setupE2EEnvironment(t)

	txn := env.verifiedSale(t, 1000)

	var w model.Withdrawal
	require.Equal(t, http.StatusCreated, env.call(t, "POST", "/api/v1/withdrawals", fixtures.MerchantID, fixtures.PixWithdrawalJSON(950), &w))
	require.Equal(t, http.StatusOK, env.call(t, "POST", "/api/v1/withdrawals/"+w.ID+"/pay", fixtures.AdminID,
		map[string]string{"proof_url": fixtures.ProofURL}, nil))

	require.Equal(t, http.StatusOK, env.call(t, "POST", "/api/v1/transactions/"+txn.ID+"/chargeback", fixtures.MerchantID,
		map[string]string{"reason": "customer disputed"}, nil))
	require.Equal(t, http.StatusOK, env.call(t, "POST", "/api/v1/transactions/"+txn.ID+"/chargeback/approve", fixtures.AdminID, nil, &txn))
	assert.Equal(t, model.TransactionChargeback, txn.Status)
	assert.True(t, txn.IsChargeback)

	b := env.balances(t, fixtures.MerchantID, fixtures.MerchantID)
	assert.Equal(t, int64(-950), b.Available)

	var adj model.BalanceAdjustment
	require.Equal(t, http.StatusCreated, env.call(t, "POST", "/api/v1/adjustments", fixtures.AdminID, map[string]any{
		"client_id": fixtures.MerchantID,
		"type":      model.AdjustmentAdd,
		"amount":    950,
		"reason":    "debt settled by bank transfer",
	}, &adj))

	b = env.balances(t, fixtures.MerchantID, fixtures.MerchantID)
	assert.Equal(t, int64(0), b.Available)
}

func TestE2E_AccessBoundaries(t *testing.T) {
	env := setupE2EEnvironment(t)

	txn := env.verifiedSale(t, 1000)

	tests := []struct {
		name   string
		method string
		path   string
		actor  string
		body   any
		status int
	}{
		{"client cannot verify", "POST", "/api/v1/transactions/" + txn.ID + "/verify", fixtures.MerchantID, nil, http.StatusForbidden},
		{"client cannot pay a sale", "POST", "/api/v1/transactions/" + txn.ID + "/pay", fixtures.MerchantID, nil, http.StatusForbidden},
		{"other client cannot read the sale", "GET", "/api/v1/transactions/" + txn.ID, fixtures.OtherMerchant, nil, http.StatusNotFound},
		{"other client cannot read balances", "GET", "/api/v1/clients/" + fixtures.MerchantID + "/balances", fixtures.OtherMerchant, nil, http.StatusNotFound},
		{"unknown actor", "GET", "/api/v1/transactions/" + txn.ID, "ghost", nil, http.StatusForbidden},
		{"verified sale cannot be verified again", "POST", "/api/v1/transactions/" + txn.ID + "/verify", fixtures.AdminID, nil, http.StatusConflict},
		{"client cannot append adjustments", "POST", "/api/v1/adjustments", fixtures.MerchantID, map[string]any{
			"client_id": fixtures.MerchantID, "type": model.AdjustmentAdd, "amount": 10, "reason": "gift",
		}, http.StatusForbidden},
		{"malformed body", "POST", "/api/v1/withdrawals", fixtures.MerchantID, "not an object", http.StatusBadRequest},
		{"admin cannot book a sale", "POST", "/api/v1/transactions", fixtures.AdminID, fixtures.CreditSaleJSON(1000), http.StatusBadRequest},
		{"admin cannot request a payout", "POST", "/api/v1/withdrawals", fixtures.AdminID, fixtures.PixWithdrawalJSON(10), http.StatusBadRequest},
		{"adjustments only target clients", "POST", "/api/v1/adjustments", fixtures.AdminID, map[string]any{
			"client_id": fixtures.AdminID, "type": model.AdjustmentAdd, "amount": 10, "reason": "gift",
		}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, env.call(t, tt.method, tt.path, tt.actor, tt.body, nil))
		})
	}
}

func TestE2E_ListScopedToCaller(t *testing.T) {
	env := setupE2EEnvironment(t)

	env.verifiedSale(t, 1000)
	env.verifiedSale(t, 2000)

	var other model.Transaction
	require.Equal(t, http.StatusCreated, env.call(t, "POST", "/api/v1/transactions", fixtures.OtherMerchant, fixtures.CreditSaleJSON(500), &other))

	var page struct {
		Items []model.Transaction `json:"items"`
		Total int64               `json:"total"`
	}
	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/v1/transactions", fixtures.MerchantID, nil, &page))
	assert.Equal(t, int64(2), page.Total)
	for _, txn := range page.Items {
		assert.Equal(t, fixtures.MerchantID, txn.ClientID)
	}

	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/v1/transactions?status=verified", fixtures.AdminID, nil, &page))
	assert.Equal(t, int64(2), page.Total)
}

func TestE2E_EventsReachStream(t *testing.T) {
	env := setupE2EEnvironment(t)

	txn := env.verifiedSale(t, 1000)

	var mu sync.Mutex
	var seen []model.Event
	err := env.Queue.Consume(func(ctx context.Context, msg *queue.Message) error {
		var e model.Event
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			return err
		}
		mu.Lock()
		seen = append(seen, e)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	helpers.AssertEventually(t, 3*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, "lifecycle events not consumed")

	mu.Lock()
	defer mu.Unlock()
	types := make([]model.EventType, 0, len(seen))
	for _, e := range seen {
		assert.Equal(t, txn.ID, e.EntityID)
		assert.Equal(t, fixtures.MerchantID, e.ClientID)
		assert.NotEmpty(t, e.ID)
		types = append(types, e.Type)
	}
	assert.ElementsMatch(t, []model.EventType{
		model.EventTransactionCreated,
		model.EventTransactionReceiptSubmitted,
		model.EventTransactionVerified,
	}, types)
}

func TestE2E_NotifierDeliversToWebhook(t *testing.T) {
	env := setupE2EEnvironment(t)

	var mu sync.Mutex
	received := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		mu.Lock()
		received[r.Header.Get(webhook.HeaderEventID)]++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := webhook.NewClient(webhook.DefaultConfig(srv.URL + "/api/v1/events"))
	require.NoError(t, err)

	n := notifier.NewService(env.RedisAdapter, client, notifier.Config{
		Queue: queue.QueueConfig{
			Name:              eventStream,
			ConsumerGroup:     "notifier",
			ConsumerName:      "e2e",
			PollInterval:      20 * time.Millisecond,
			VisibilityTimeout: time.Second,
		},
		Workers:           2,
		ProcessingTimeout: 2 * time.Second,
	})
	require.NoError(t, n.Start())
	defer n.Stop(time.Second)

	env.verifiedSale(t, 1000)

	helpers.AssertEventually(t, 5*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 3
	}, "webhook did not receive every event")

	mu.Lock()
	defer mu.Unlock()
	for id, count := range received {
		assert.NotEmpty(t, id)
		assert.Equal(t, 1, count, "event %s delivered more than once", id)
	}
	assert.Equal(t, int64(3), n.Metrics().Delivered)
}
