package services

import (
	"context"

	"github.com/nimasrn/merchant-ledger/internal/balance"
	"github.com/nimasrn/merchant-ledger/internal/lifecycle"
	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/pkg/errors"
)

// BalanceService answers getBalances from one consistent snapshot of the
// client's records, through the optional cache.
type BalanceService struct {
	*base
}

func (s *BalanceService) Get(ctx context.Context, clientID string) (model.ClientBalances, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if clientID == "" {
		return model.ClientBalances{}, model.Validationf("client_id is required")
	}

	gen := int64(-1)
	if s.Cache != nil {
		cached, g, ok := s.Cache.Lookup(ctx, clientID)
		if ok {
			return cached, nil
		}
		gen = g
	}

	var out model.ClientBalances
	err := s.Store.WithinSnapshot(ctx, func(ctx context.Context) error {
		if err := s.requireClient(ctx, clientID); err != nil {
			return err
		}
		b, err := s.computeBalances(ctx, clientID)
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return model.ClientBalances{}, err
	}

	if s.Cache != nil {
		s.Cache.Store(ctx, clientID, gen, out)
	}
	return out, nil
}

// GetFor is Get for an actor that must own the balances or be an admin.
func (s *BalanceService) GetFor(ctx context.Context, clientID, actorID string) (model.ClientBalances, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return model.ClientBalances{}, err
	}
	if err := lifecycle.Authorize(lifecycle.OwnerOrAdmin, actor, clientID); err != nil {
		return model.ClientBalances{}, err
	}
	return s.Get(ctx, clientID)
}

// Explain returns the intermediate sums behind the balances. Admin only.
func (s *BalanceService) Explain(ctx context.Context, clientID, actorID string) (balance.Breakdown, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return balance.Breakdown{}, err
	}
	if err := lifecycle.Authorize(lifecycle.AdminOnly, actor, clientID); err != nil {
		return balance.Breakdown{}, err
	}

	var out balance.Breakdown
	err = s.Store.WithinSnapshot(ctx, func(ctx context.Context) error {
		if err := s.requireClient(ctx, clientID); err != nil {
			return err
		}
		snap, err := s.snapshot(ctx, clientID)
		if err != nil {
			return err
		}
		out, err = balance.Explain(snap)
		return err
	})
	return out, err
}

// requireClient fails with NotFound for an unknown client, or with a
// reconciliation error when records exist for a profile that does not.
func (s *BalanceService) requireClient(ctx context.Context, clientID string) error {
	_, err := s.Profiles.Get(ctx, clientID)
	if err == nil || !errors.Is(err, model.ErrNotFound) {
		return err
	}

	var orphans int64
	for _, count := range []func(context.Context, string) (int64, error){
		s.Transactions.CountByClient,
		s.Withdrawals.CountByClient,
		s.Adjustments.CountByClient,
	} {
		n, cerr := count(ctx, clientID)
		if cerr != nil {
			return cerr
		}
		orphans += n
	}
	if orphans > 0 {
		return model.Reconciliationf("%d ledger records reference missing profile %s", orphans, clientID)
	}
	return err
}
