package repository

import (
	"context"

	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/nimasrn/merchant-ledger/pkg/pg"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// translate maps store errors onto the ledger taxonomy.
func translate(err error, format string, args ...any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return model.NotFoundf(format, args...)
	case pg.IsSerializationFailure(err):
		return errors.Wrapf(model.ErrConflict, format, args...)
	default:
		return errors.Wrapf(err, format, args...)
	}
}

// Store opens the transactions services run their commands in.
type Store struct {
	*pg.DB
}

func NewStore(db *pg.DB) *Store {
	return &Store{db}
}

// WithinTransaction runs fn in one serializable transaction. A serialization
// failure at any point, including commit, surfaces as ErrConflict.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	err := s.DB.WithinTransaction(ctx, fn)
	if err != nil && pg.IsSerializationFailure(err) {
		return errors.Wrap(model.ErrConflict, err.Error())
	}
	return err
}

// WithinSnapshot runs fn against one consistent read snapshot.
func (s *Store) WithinSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	err := s.DB.WithinSnapshot(ctx, fn)
	if err != nil && pg.IsSerializationFailure(err) {
		return errors.Wrap(model.ErrConflict, err.Error())
	}
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func limitOffset(limit, offset int) (int, int) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
