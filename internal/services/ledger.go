package services

import (
	"errors"
	"sync"
	"time"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/models"

	"gorm.io/gorm"
)

// Ledger is the Local Store: the set of services owning durable state. All
// services of one Ledger share a single write lock, so at most one mutation
// runs at a time. Reads do not take the lock.
type Ledger struct {
	Wallets      WalletServicer
	Transactions TransactionServicer
	Categories   CategoryServicer
	Budgets      BudgetServicer
	Planning     PlanningServicer
	Snapshots    SnapshotServicer
}

// Option configures a Ledger.
type Option func(*store)

// WithClock overrides the time source used for default dates and sync stamps.
func WithClock(now func() time.Time) Option {
	return func(s *store) { s.now = now }
}

// NewLedger wires the Local Store services around db.
func NewLedger(db *gorm.DB, opts ...Option) *Ledger {
	st := &store{db: db, mu: &sync.Mutex{}, now: time.Now}
	for _, opt := range opts {
		opt(st)
	}

	wallets := &walletService{store: st}
	txns := &transactionService{store: st}
	return &Ledger{
		Wallets:      wallets,
		Transactions: txns,
		Categories:   &categoryService{store: st},
		Budgets:      &budgetService{store: st},
		Planning:     &planningService{store: st},
		Snapshots:    &snapshotService{store: st, wallets: wallets, txns: txns},
	}
}

// store is the persistence handle shared by the Ledger services.
type store struct {
	db  *gorm.DB
	mu  *sync.Mutex
	now func() time.Time
}

// write runs fn in a database transaction while holding the write lock. fn
// must only use the tx it is given.
func (s *store) write(fn func(tx *gorm.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Transaction(fn)
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Wrap(apperrors.ErrInternal, err)
}

func (s *store) clock() time.Time {
	return s.now().UTC()
}

// first loads a single record and maps a missing row to notFound.
func first(q *gorm.DB, dest interface{}, notFound *apperrors.AppError) error {
	if err := q.First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound
		}
		return apperrors.Wrap(apperrors.ErrInternal, err)
	}
	return nil
}

func internal(err error) error {
	return apperrors.Wrap(apperrors.ErrInternal, err)
}

// touchColumns records a local mutation on meta and adds the resulting
// bookkeeping columns to a column update.
func touchColumns(meta *models.SyncMeta, updates map[string]interface{}) {
	meta.Touch()
	updates["is_dirty"] = meta.IsDirty
	updates["last_synced"] = meta.LastSynced
	updates["revision"] = meta.Revision
}

// softDelete bumps the row's revision, marks it dirty and soft-deletes it.
// The row then serves as a tombstone until the next successful sync.
func softDelete(tx *gorm.DB, model interface{}, id string, notFound *apperrors.AppError) error {
	res := tx.Model(model).Where("id = ?", id).UpdateColumns(map[string]interface{}{
		"is_dirty":    true,
		"last_synced": nil,
		"revision":    gorm.Expr("revision + 1"),
	})
	if res.Error != nil {
		return internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound
	}
	if err := tx.Where("id = ?", id).Delete(model).Error; err != nil {
		return internal(err)
	}
	return nil
}
