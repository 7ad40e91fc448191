package services

import (
	"context"

	"github.com/nimasrn/merchant-ledger/internal/model"
)

type ProfileService struct {
	*base
}

// Actor resolves the profile behind a request. Unknown ids are Forbidden.
func (s *ProfileService) Actor(ctx context.Context, id string) (*model.Profile, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.actor(ctx, id)
}
