package services

import (
	"context"
	"strings"

	"github.com/nimasrn/merchant-ledger/internal/lifecycle"
	"github.com/nimasrn/merchant-ledger/internal/model"
)

// AdjustmentService appends manual credits and debits. There is no update
// or delete; corrections are compensating adjustments.
type AdjustmentService struct {
	*base
}

func (s *AdjustmentService) Append(ctx context.Context, req model.AdjustmentCreateRequest) (*model.BalanceAdjustment, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := req.Validate(); err != nil {
		s.record(model.EntityAdjustment, "append", err)
		return nil, err
	}

	var out *model.BalanceAdjustment
	err := s.Store.WithinTransaction(ctx, func(ctx context.Context) error {
		admin, err := s.actor(ctx, req.AdminID)
		if err != nil {
			return err
		}
		if err := lifecycle.Authorize(lifecycle.AdminOnly, admin, req.ClientID); err != nil {
			return err
		}
		if _, err := s.owner(ctx, req.ClientID, true); err != nil {
			return err
		}
		a := &model.BalanceAdjustment{
			ID:        s.NewID(),
			ClientID:  req.ClientID,
			Type:      req.Type,
			Amount:    req.Amount,
			Reason:    strings.TrimSpace(req.Reason),
			AdminID:   req.AdminID,
			CreatedAt: s.Now(),
		}
		if err := s.Adjustments.Append(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		s.record(model.EntityAdjustment, "append", err)
		return nil, err
	}

	s.committed(ctx, "append", model.Event{
		Type:       model.EventAdjustmentAppended,
		EntityKind: model.EntityAdjustment,
		EntityID:   out.ID,
		ClientID:   out.ClientID,
		ActorID:    out.AdminID,
		Amount:     out.Signed(),
		Status:     string(out.Type),
	})
	return out, nil
}

// List returns the client's adjustments oldest first.
func (s *AdjustmentService) List(ctx context.Context, clientID, actorID string) ([]model.BalanceAdjustment, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Authorize(lifecycle.OwnerOrAdmin, actor, clientID); err != nil {
		return nil, err
	}
	return s.Adjustments.ListByClient(ctx, clientID)
}
