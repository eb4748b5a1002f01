package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-inventory-pos/pkg/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

var errRetryable = errors.New("retryable conflict")

// MarkRetryable flags err as a lost race that the unit of work may replay.
func MarkRetryable(err error) error {
	return fmt.Errorf("%w: %w", errRetryable, err)
}

// IsRetryable reports serialization failures, deadlocks and errors flagged with MarkRetryable.
func IsRetryable(err error) bool {
	if errors.Is(err, errRetryable) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	return false
}

// IsDuplicateKey reports unique violations, translated by GORM or raw from Postgres.
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// Classify turns a raw persistence error into an apperror.
func Classify(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperror.New(apperror.KindNotFound, notFound)
	case IsDuplicateKey(err):
		return apperror.New(apperror.KindDuplicateKey, "resource already exists")
	default:
		return apperror.Store(err)
	}
}

// Transactor runs units of work in a database transaction bounded by a
// timeout, replaying attempts that lost a race.
type Transactor struct {
	db          *gorm.DB
	timeout     time.Duration
	maxAttempts int
	log         *zap.Logger
}

func NewTransactor(db *gorm.DB, timeout time.Duration, maxAttempts int, log *zap.Logger) *Transactor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Transactor{db: db, timeout: timeout, maxAttempts: maxAttempts, log: log.Named("txn")}
}

// DB returns the root handle for reads outside a transaction.
func (t *Transactor) DB() *gorm.DB {
	return t.db
}

func (t *Transactor) Do(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		err = t.once(ctx, fn)
		if err == nil || !IsRetryable(err) {
			return Classify(err, "resource not found")
		}
		t.log.Debug("transaction lost a race, retrying", zap.Int("attempt", attempt), zap.Error(err))
	}
	t.log.Warn("transaction retries exhausted", zap.Int("attempts", t.maxAttempts), zap.Error(err))
	return apperror.ErrConflict
}

func (t *Transactor) once(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	err := t.db.WithContext(ctx).Transaction(fn)
	if err != nil && ctx.Err() != nil && !errors.Is(err, context.DeadlineExceeded) {
		// drivers do not always wrap the context error
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return err
}

// Read runs fn outside a transaction under the same deadline as Do.
func (t *Transactor) Read(ctx context.Context, fn func(ctx context.Context) error) error {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	err := fn(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && apperror.KindOf(err) == apperror.KindStoreUnavailable {
		return apperror.Store(context.DeadlineExceeded)
	}
	return err
}

// forUpdate adds a row lock; dialects without row locks drop the clause.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// handle is embedded by every repository. A handle bound to a transaction
// keeps the transaction's own context.
type handle struct {
	db   *gorm.DB
	inTx bool
}

func (h handle) conn(ctx context.Context) *gorm.DB {
	if h.inTx {
		return h.db
	}
	return h.db.WithContext(ctx)
}

func (h handle) bind(tx *gorm.DB) handle {
	return handle{db: tx, inTx: true}
}
