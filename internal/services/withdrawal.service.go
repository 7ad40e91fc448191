package services

import (
	"context"

	"github.com/nimasrn/merchant-ledger/internal/lifecycle"
	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/pkg/errors"
)

type WithdrawalService struct {
	*base
}

// Request creates a pending payout. The balance check and the insert share
// one store transaction, serialized per client by the profile row lock, so
// concurrent requests cannot jointly overdraw. The cache is never read here.
func (s *WithdrawalService) Request(ctx context.Context, req model.WithdrawalCreateRequest) (*model.Withdrawal, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := req.Validate(); err != nil {
		s.record(model.EntityWithdrawal, "request", err)
		return nil, err
	}

	var (
		out   *model.Withdrawal
		event model.EventType
	)
	err := s.Store.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.owner(ctx, req.ClientID, true); err != nil {
			return err
		}
		balances, err := s.computeBalances(ctx, req.ClientID)
		if err != nil {
			return err
		}
		if req.Amount > balances.Available {
			return model.InsufficientBalancef("withdrawal of %d exceeds available %d for client %s", req.Amount, balances.Available, req.ClientID)
		}
		w, ev, err := lifecycle.OpenWithdrawal(s.NewID(), req, s.Now())
		if err != nil {
			return err
		}
		if err := s.Withdrawals.Create(ctx, w); err != nil {
			return err
		}
		out, event = w, ev
		return nil
	})
	if err != nil {
		s.record(model.EntityWithdrawal, "request", err)
		return nil, err
	}

	s.committed(ctx, "request", withdrawalEvent(out, event, req.ClientID))
	return out, nil
}

func (s *WithdrawalService) Pay(ctx context.Context, id, adminID, proofURL string) (*model.Withdrawal, error) {
	return s.apply(ctx, id, lifecycle.PayWithdrawal{AdminID: adminID, ProofURL: proofURL})
}

func (s *WithdrawalService) Cancel(ctx context.Context, id, actorID string) (*model.Withdrawal, error) {
	return s.apply(ctx, id, lifecycle.CancelWithdrawal{ActorID: actorID})
}

func (s *WithdrawalService) apply(ctx context.Context, id string, cmd lifecycle.WithdrawalCommand) (*model.Withdrawal, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var (
		out   *model.Withdrawal
		event model.EventType
	)
	err := s.Store.WithinTransaction(ctx, func(ctx context.Context) error {
		actor, err := s.actor(ctx, cmd.Actor())
		if err != nil {
			return err
		}
		if cmd.Access() == lifecycle.AdminOnly && !actor.IsAdmin() {
			return model.Forbiddenf("%s requires an admin", cmd.Transition())
		}
		w, err := s.Withdrawals.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := lifecycle.Authorize(cmd.Access(), actor, w.ClientID); err != nil {
			return errors.Wrapf(err, "withdrawal %s", id)
		}
		ev, err := lifecycle.ApplyWithdrawal(w, cmd, s.Now())
		if err != nil {
			return err
		}
		if err := s.Withdrawals.Update(ctx, w); err != nil {
			return err
		}
		out, event = w, ev
		return nil
	})
	if err != nil {
		s.record(model.EntityWithdrawal, cmd.Transition(), err)
		return nil, err
	}

	s.committed(ctx, cmd.Transition(), withdrawalEvent(out, event, cmd.Actor()))
	return out, nil
}

func (s *WithdrawalService) Get(ctx context.Context, id, actorID string) (*model.Withdrawal, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	w, err := s.Withdrawals.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Authorize(lifecycle.OwnerOrAdmin, actor, w.ClientID); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *WithdrawalService) List(ctx context.Context, actorID string, f model.WithdrawalFilter) ([]*model.Withdrawal, int64, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, 0, err
	}
	if !actor.IsAdmin() {
		f.ClientID = &actor.ID
	}
	for _, st := range f.Statuses {
		if !st.Valid() {
			return nil, 0, model.Validationf("unknown withdrawal status %q", st)
		}
	}
	return s.Withdrawals.List(ctx, f)
}

func withdrawalEvent(w *model.Withdrawal, typ model.EventType, actorID string) model.Event {
	return model.Event{
		Type:       typ,
		EntityKind: model.EntityWithdrawal,
		EntityID:   w.ID,
		ClientID:   w.ClientID,
		ActorID:    actorID,
		Amount:     w.Amount,
		Status:     string(w.Status),
	}
}
