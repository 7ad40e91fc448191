package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/merchant-ledger/internal/balance"
	"github.com/nimasrn/merchant-ledger/internal/events"
	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/nimasrn/merchant-ledger/pkg/logger"
	"github.com/nimasrn/merchant-ledger/pkg/prom"
	"github.com/pkg/errors"
)

const DefaultStoreTimeout = 3 * time.Second

type Store interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	WithinSnapshot(ctx context.Context, fn func(ctx context.Context) error) error
}

type ProfileRepository interface {
	Get(ctx context.Context, id string) (*model.Profile, error)
	LockForUpdate(ctx context.Context, id string) (*model.Profile, error)
}

type RateRepository interface {
	ListByPlan(ctx context.Context, planID string) ([]model.CustomRate, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) error
	Get(ctx context.Context, id string) (*model.Transaction, error)
	GetForUpdate(ctx context.Context, id string) (*model.Transaction, error)
	Update(ctx context.Context, txn *model.Transaction) error
	List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error)
	ListByClient(ctx context.Context, clientID string) ([]model.Transaction, error)
	CountByClient(ctx context.Context, clientID string) (int64, error)
}

type WithdrawalRepository interface {
	Create(ctx context.Context, w *model.Withdrawal) error
	Get(ctx context.Context, id string) (*model.Withdrawal, error)
	GetForUpdate(ctx context.Context, id string) (*model.Withdrawal, error)
	Update(ctx context.Context, w *model.Withdrawal) error
	List(ctx context.Context, f model.WithdrawalFilter) ([]*model.Withdrawal, int64, error)
	ListByClient(ctx context.Context, clientID string) ([]model.Withdrawal, error)
	CountByClient(ctx context.Context, clientID string) (int64, error)
}

type AdjustmentRepository interface {
	Append(ctx context.Context, a *model.BalanceAdjustment) error
	ListByClient(ctx context.Context, clientID string) ([]model.BalanceAdjustment, error)
	CountByClient(ctx context.Context, clientID string) (int64, error)
}

// BalanceCache is the optional read-path cache. Implementations swallow
// their own errors.
type BalanceCache interface {
	Lookup(ctx context.Context, clientID string) (model.ClientBalances, int64, bool)
	Store(ctx context.Context, clientID string, gen int64, b model.ClientBalances)
	Invalidate(ctx context.Context, clientID string)
}

// Deps wires the ledger services. Cache, Emitter, Now and NewID are
// optional.
type Deps struct {
	Store        Store
	Profiles     ProfileRepository
	Rates        RateRepository
	Transactions TransactionRepository
	Withdrawals  WithdrawalRepository
	Adjustments  AdjustmentRepository
	Cache        BalanceCache
	Emitter      events.Emitter
	Timeout      time.Duration
	Now          func() time.Time
	NewID        func() string
}

// Ledger groups the services behind the command surface.
type Ledger struct {
	Transactions *TransactionService
	Withdrawals  *WithdrawalService
	Adjustments  *AdjustmentService
	Balances     *BalanceService
	Profiles     *ProfileService
}

func NewLedger(d Deps) *Ledger {
	b := newBase(d)
	return &Ledger{
		Transactions: &TransactionService{base: b},
		Withdrawals:  &WithdrawalService{base: b},
		Adjustments:  &AdjustmentService{base: b},
		Balances:     &BalanceService{base: b},
		Profiles:     &ProfileService{base: b},
	}
}

type base struct {
	Deps
}

func newBase(d Deps) *base {
	if d.Timeout <= 0 {
		d.Timeout = DefaultStoreTimeout
	}
	if d.Emitter == nil {
		d.Emitter = events.Nop{}
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.NewID == nil {
		d.NewID = newID
	}
	return &base{Deps: d}
}

// newID returns a time-ordered UUIDv7 so rows written in the same instant
// still list in insertion order.
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// bound applies the store timeout to one service call.
func (b *base) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.Timeout)
}

// actor resolves the profile issuing a command. An unknown actor is
// Forbidden, not NotFound.
func (b *base) actor(ctx context.Context, id string) (*model.Profile, error) {
	if id == "" {
		return nil, model.Forbiddenf("actor is required")
	}
	p, err := b.Profiles.Get(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.Forbiddenf("unknown actor %s", id)
	}
	return p, err
}

// owner loads the profile a ledger record is booked against. Only client
// profiles carry balances.
func (b *base) owner(ctx context.Context, id string, lock bool) (*model.Profile, error) {
	get := b.Profiles.Get
	if lock {
		get = b.Profiles.LockForUpdate
	}
	p, err := get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Role != model.RoleClient {
		return nil, model.Validationf("profile %s is not a client", id)
	}
	return p, nil
}

// snapshot loads every record that feeds the client's balances. Callers run
// it inside a store transaction or snapshot so the three reads agree.
func (b *base) snapshot(ctx context.Context, clientID string) (balance.Snapshot, error) {
	s := balance.Snapshot{ClientID: clientID}
	var err error
	if s.Transactions, err = b.Transactions.ListByClient(ctx, clientID); err != nil {
		return s, err
	}
	if s.Withdrawals, err = b.Withdrawals.ListByClient(ctx, clientID); err != nil {
		return s, err
	}
	if s.Adjustments, err = b.Adjustments.ListByClient(ctx, clientID); err != nil {
		return s, err
	}
	return s, nil
}

func (b *base) computeBalances(ctx context.Context, clientID string) (model.ClientBalances, error) {
	s, err := b.snapshot(ctx, clientID)
	if err != nil {
		return model.ClientBalances{}, err
	}
	start := time.Now()
	out, err := balance.Compute(s, b.Now())
	prom.ObserveBalanceCompute(time.Since(start).Seconds())
	return out, err
}

func (b *base) record(entity, transition string, err error) {
	result := "ok"
	if err != nil {
		result = model.KindOf(err)
	}
	prom.RecordTransition(entity, transition, result)
}

// committed runs the after-commit side effects of a write. None of them can
// fail the command.
func (b *base) committed(ctx context.Context, transition string, e model.Event) {
	if b.Cache != nil {
		b.Cache.Invalidate(context.WithoutCancel(ctx), e.ClientID)
	}
	b.record(e.EntityKind, transition, nil)
	if e.OccurredAt.IsZero() {
		e.OccurredAt = b.Now()
	}
	e = events.Stamp(e)
	b.Emitter.Emit(ctx, e)
	logger.Info("ledger write committed",
		"transition", transition,
		"entity", e.EntityKind,
		"entity_id", e.EntityID,
		"client_id", e.ClientID,
		"actor_id", e.ActorID,
		"status", e.Status,
		"event_id", e.ID,
	)
}
