package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

type txContextKey string

const txKey txContextKey = "trx"

// Isolation used in production: writes are serializable, balance reads see
// one consistent snapshot.
var (
	Serializable = &sql.TxOptions{Isolation: sql.LevelSerializable}
	Snapshot     = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
)

// DB splits reads and writes across two pools. A transaction opened with
// WithinTransaction is carried in the context and shared by both.
type DB struct {
	read   *gorm.DB
	write  *gorm.DB
	txOpts *sql.TxOptions
}

// NewDB wraps existing gorm handles. txOpts may be nil for drivers that
// have a single isolation level.
func NewDB(read, write *gorm.DB, txOpts *sql.TxOptions) *DB {
	return &DB{read: read, write: write, txOpts: txOpts}
}

func Create(config Config, withDebug bool) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(config.DSN()),
		&gorm.Config{
			NamingStrategy: schema.NamingStrategy{
				SingularTable: true,
			},
		})
	if err != nil {
		return nil, err
	}

	if withDebug {
		db = db.Debug()
	}
	return db, nil
}

func CreateReadWrite(readConfig Config, writeConfig Config, withDebug bool) (*DB, error) {
	read, err := Create(readConfig, withDebug)
	if err != nil {
		return nil, err
	}
	write, err := Create(writeConfig, withDebug)
	if err != nil {
		return nil, err
	}
	return NewDB(read, write, Serializable), nil
}

// WithinTransaction runs fn in one store transaction. Nested calls join the
// outer transaction.
func (r *DB) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return fn(ctx)
	}
	var opts []*sql.TxOptions
	if r.txOpts != nil {
		opts = append(opts, r.txOpts)
	}
	return r.write.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey, tx))
	}, opts...)
}

// WithinSnapshot runs fn in a read-only transaction so that several queries
// observe the same committed state. It opens on the write pool: results may
// be cached against invalidations ordered by primary commits, so a lagging
// replica must not serve them.
func (r *DB) WithinSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return fn(ctx)
	}
	var opts []*sql.TxOptions
	if r.txOpts != nil {
		opts = append(opts, Snapshot)
	}
	return r.write.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey, tx))
	}, opts...)
}

func (r *DB) Write(ctx context.Context) *gorm.DB {
	tx, ok := ctx.Value(txKey).(*gorm.DB)
	if ok {
		return tx
	}

	return r.write.WithContext(ctx)
}

func (r *DB) Read(ctx context.Context) *gorm.DB {
	tx, ok := ctx.Value(txKey).(*gorm.DB)
	if ok {
		return tx
	}

	return r.read.WithContext(ctx)
}

// Ping checks the write pool.
func (r *DB) Ping(ctx context.Context) error {
	sqlDB, err := r.write.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases both pools.
func (r *DB) Close() error {
	var errs []error
	for _, g := range []*gorm.DB{r.read, r.write} {
		if g == nil {
			continue
		}
		sqlDB, err := g.DB()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IsSerializationFailure reports whether err is a PostgreSQL serialization
// failure or deadlock; the whole transaction may be retried by the caller.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func (c Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable", c.Host, c.User, c.Password, c.Database, c.Port)
}
