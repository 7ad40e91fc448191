package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService checks the backing stores the API depends on.
type HealthService struct {
	checks map[string]Pinger
}

func NewHealthService(checks map[string]Pinger) *HealthService {
	return &HealthService{checks: checks}
}

func (s *HealthService) Get() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for name, c := range s.checks {
		if c == nil {
			continue
		}
		if err := c.Ping(ctx); err != nil {
			return errors.Wrapf(err, "%s unhealthy", name)
		}
	}
	return nil
}
