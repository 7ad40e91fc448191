package services

import (
	"context"

	"github.com/nimasrn/merchant-ledger/internal/lifecycle"
	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/nimasrn/merchant-ledger/internal/rates"
	"github.com/pkg/errors"
)

// TransactionService persists sales and drives them through the lifecycle
// commands, one serializable store transaction per call.
type TransactionService struct {
	*base
}

// Create registers a sale for req.ClientID with the fee of the client's
// plan frozen on the row.
func (s *TransactionService) Create(ctx context.Context, req model.TransactionCreateRequest) (*model.Transaction, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := req.Validate(); err != nil {
		s.record(model.EntityTransaction, "create", err)
		return nil, err
	}

	var (
		out   *model.Transaction
		event model.EventType
	)
	err := s.Store.WithinTransaction(ctx, func(ctx context.Context) error {
		profile, err := s.owner(ctx, req.ClientID, false)
		if err != nil {
			return err
		}
		plan, err := s.planOf(ctx, profile)
		if err != nil {
			return err
		}
		pct, err := rates.ResolveFee(plan, req.Brand, req.PaymentType, req.Installments)
		if err != nil {
			return err
		}
		t, ev, err := lifecycle.OpenTransaction(s.NewID(), req, pct, s.Now())
		if err != nil {
			return err
		}
		if err := s.Transactions.Create(ctx, t); err != nil {
			return err
		}
		out, event = t, ev
		return nil
	})
	if err != nil {
		s.record(model.EntityTransaction, "create", err)
		return nil, err
	}

	s.committed(ctx, "create", transactionEvent(out, event, req.ClientID))
	return out, nil
}

// planOf picks the rate plan of a profile. Custom plans load their table
// from the store; an empty table resolves nothing.
func (s *TransactionService) planOf(ctx context.Context, p *model.Profile) (rates.Plan, error) {
	if p.Plan != model.PlanCustom {
		plan, ok := rates.StandardPlan(p.Plan)
		if !ok {
			return rates.Plan{}, model.RateNotFoundf("unknown plan %q on profile %s", p.Plan, p.ID)
		}
		return plan, nil
	}
	if p.CustomPlanID == "" {
		return rates.Plan{}, model.RateNotFoundf("profile %s has a custom plan without plan id", p.ID)
	}
	rows, err := s.Rates.ListByPlan(ctx, p.CustomPlanID)
	if err != nil {
		return rates.Plan{}, err
	}
	table, err := rates.TableFromRows(rows)
	if err != nil {
		return rates.Plan{}, errors.Wrapf(model.ErrReconciliation, "custom plan %s: %v", p.CustomPlanID, err)
	}
	return rates.CustomPlan(table), nil
}

func (s *TransactionService) SubmitReceipt(ctx context.Context, id, actorID string, evidence model.Evidence) (*model.Transaction, error) {
	return s.apply(ctx, id, lifecycle.SubmitReceipt{ActorID: actorID, Evidence: evidence})
}

func (s *TransactionService) Verify(ctx context.Context, id, adminID string) (*model.Transaction, error) {
	return s.apply(ctx, id, lifecycle.Verify{AdminID: adminID})
}

func (s *TransactionService) Reject(ctx context.Context, id, adminID, reason string) (*model.Transaction, error) {
	return s.apply(ctx, id, lifecycle.Reject{AdminID: adminID, Reason: reason})
}

func (s *TransactionService) MarkPaid(ctx context.Context, id, adminID string) (*model.Transaction, error) {
	return s.apply(ctx, id, lifecycle.MarkPaid{AdminID: adminID})
}

func (s *TransactionService) RequestChargeback(ctx context.Context, id, clientID, reason string) (*model.Transaction, error) {
	return s.apply(ctx, id, lifecycle.RequestChargeback{ClientID: clientID, Reason: reason})
}

// ApproveChargeback uses reason when given, else the reason of the client's
// pending request.
func (s *TransactionService) ApproveChargeback(ctx context.Context, id, adminID, reason string) (*model.Transaction, error) {
	return s.apply(ctx, id, lifecycle.ApproveChargeback{AdminID: adminID, Reason: reason})
}

func (s *TransactionService) DismissChargeback(ctx context.Context, id, adminID string) (*model.Transaction, error) {
	return s.apply(ctx, id, lifecycle.DismissChargeback{AdminID: adminID})
}

func (s *TransactionService) apply(ctx context.Context, id string, cmd lifecycle.TransactionCommand) (*model.Transaction, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var (
		out   *model.Transaction
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
		t, err := s.Transactions.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := lifecycle.Authorize(cmd.Access(), actor, t.ClientID); err != nil {
			return errors.Wrapf(err, "transaction %s", id)
		}
		ev, err := lifecycle.ApplyTransaction(t, cmd, s.Now())
		if err != nil {
			return err
		}
		if err := s.Transactions.Update(ctx, t); err != nil {
			return err
		}
		out, event = t, ev
		return nil
	})
	if err != nil {
		s.record(model.EntityTransaction, cmd.Transition(), err)
		return nil, err
	}

	s.committed(ctx, cmd.Transition(), transactionEvent(out, event, cmd.Actor()))
	return out, nil
}

// Get returns the sale when the actor owns it or is an admin.
func (s *TransactionService) Get(ctx context.Context, id, actorID string) (*model.Transaction, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	t, err := s.Transactions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Authorize(lifecycle.OwnerOrAdmin, actor, t.ClientID); err != nil {
		return nil, err
	}
	return t, nil
}

// List pages through sales. Non-admin actors only see their own.
func (s *TransactionService) List(ctx context.Context, actorID string, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
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
			return nil, 0, model.Validationf("unknown transaction status %q", st)
		}
	}
	return s.Transactions.List(ctx, f)
}

func transactionEvent(t *model.Transaction, typ model.EventType, actorID string) model.Event {
	return model.Event{
		Type:       typ,
		EntityKind: model.EntityTransaction,
		EntityID:   t.ID,
		ClientID:   t.ClientID,
		ActorID:    actorID,
		Amount:     t.NetValue,
		Status:     string(t.Status),
	}
}
