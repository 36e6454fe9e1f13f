package services

import (
	"sort"
	"time"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/logger"
	"pocketledger/internal/models"
	"pocketledger/internal/snapshot"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// snapshotService exposes bulk reads and sync bookkeeping over the ledger.
type snapshotService struct {
	*store
	wallets *walletService
	txns    *transactionService
}

// Collect reads every wallet (including inactive ones), transaction,
// category and planning record into one consistent, unsealed snapshot.
func (s *snapshotService) Collect() (*snapshot.Snapshot, error) {
	snap := snapshot.New()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		queries := []struct {
			dest  interface{}
			order string
		}{
			{&snap.Wallets, "created_at ASC, id ASC"},
			{&snap.Transactions, "date ASC, created_at ASC"},
			{&snap.Categories, "created_at ASC, id ASC"},
			{&snap.Budgets, "created_at ASC, id ASC"},
			{&snap.Bills, "created_at ASC, id ASC"},
			{&snap.Reminders, "created_at ASC, id ASC"},
			{&snap.Goals, "created_at ASC, id ASC"},
		}
		for _, q := range queries {
			if err := tx.Order(q.order).Find(q.dest).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, internal(err)
	}
	return snap, nil
}

// trackedTables lists every table whose rows carry dirty tracking.
var trackedTables = []string{"wallets", "transactions", "categories", "budgets", "bills", "reminders", "goals"}

type revision struct {
	table string
	id    string
	rev   int64
}

func revisions(snap *snapshot.Snapshot) []revision {
	var out []revision
	add := func(table, id string, rev int64) { out = append(out, revision{table, id, rev}) }
	for _, r := range snap.Wallets {
		add("wallets", r.ID, r.Revision)
	}
	for _, r := range snap.Transactions {
		add("transactions", r.ID, r.Revision)
	}
	for _, r := range snap.Categories {
		add("categories", r.ID, r.Revision)
	}
	for _, r := range snap.Budgets {
		add("budgets", r.ID, r.Revision)
	}
	for _, r := range snap.Bills {
		add("bills", r.ID, r.Revision)
	}
	for _, r := range snap.Reminders {
		add("reminders", r.ID, r.Revision)
	}
	for _, r := range snap.Goals {
		add("goals", r.ID, r.Revision)
	}
	return out
}

// MarkSynced clears the dirty flag of every record in snap whose revision is
// still the one that was uploaded. Records changed since collection, and ids
// in exclude, stay dirty. It returns the number of records marked.
func (s *snapshotService) MarkSynced(snap *snapshot.Snapshot, at time.Time, exclude map[string]struct{}) (int64, error) {
	at = at.UTC()
	synced := map[string]interface{}{"is_dirty": false, "last_synced": at}

	var marked int64
	err := s.write(func(tx *gorm.DB) error {
		for _, r := range revisions(snap) {
			if _, skip := exclude[r.id]; skip {
				continue
			}
			res := tx.Table(r.table).Where("id = ? AND revision = ?", r.id, r.rev).UpdateColumns(synced)
			if res.Error != nil {
				return internal(res.Error)
			}
			marked += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}

// ResetSyncState forgets every sync confirmation, used once the remote copy
// is gone. Dirty flags and revisions are left as they are.
func (s *snapshotService) ResetSyncState() error {
	return s.write(func(tx *gorm.DB) error {
		for _, table := range trackedTables {
			if err := tx.Table(table).Where("last_synced IS NOT NULL").UpdateColumn("last_synced", nil).Error; err != nil {
				return internal(err)
			}
		}
		return nil
	})
}

// CountUnsynced counts live records that are dirty or were never synced.
func (s *snapshotService) CountUnsynced() (int64, error) {
	var total int64
	for _, table := range trackedTables {
		var count int64
		if err := s.db.Table(table).
			Where("deleted_at IS NULL AND (is_dirty = ? OR last_synced IS NULL)", true).
			Count(&count).Error; err != nil {
			return 0, internal(err)
		}
		total += count
	}
	return total, nil
}

// tombstoned lists the models whose soft-deleted rows act as tombstones.
var tombstoned = []interface{}{
	&models.Transaction{},
	&models.Category{},
	&models.Budget{},
	&models.Bill{},
	&models.Reminder{},
	&models.Goal{},
}

// Tombstones returns the ids of locally soft-deleted records.
func (s *snapshotService) Tombstones() (snapshot.Tombstones, error) {
	tombstones := snapshot.Tombstones{}
	for _, model := range tombstoned {
		var ids []string
		if err := s.db.Unscoped().Model(model).Where("deleted_at IS NOT NULL").Pluck("id", &ids).Error; err != nil {
			return nil, internal(err)
		}
		for _, id := range ids {
			tombstones[id] = struct{}{}
		}
	}
	return tombstones, nil
}

// PurgeTombstones hard-deletes soft-deleted records once the remote copy no
// longer carries them. Deleted categories are kept so old transactions can
// still resolve their names.
func (s *snapshotService) PurgeTombstones() error {
	return s.write(func(tx *gorm.DB) error {
		for _, model := range tombstoned {
			if _, isCategory := model.(*models.Category); isCategory {
				continue
			}
			if err := tx.Unscoped().Where("deleted_at IS NOT NULL").Delete(model).Error; err != nil {
				return internal(err)
			}
		}
		return nil
	})
}

// ClearAll hard-deletes all financial data in one database transaction.
// Settings are kept.
func (s *snapshotService) ClearAll() error {
	return s.write(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.Transaction{},
			&models.Wallet{},
			&models.Category{},
			&models.Budget{},
			&models.Bill{},
			&models.Reminder{},
			&models.Goal{},
		} {
			if err := tx.Unscoped().Where("1 = 1").Delete(model).Error; err != nil {
				return internal(err)
			}
		}
		return nil
	})
}

// ImportWallet recreates a snapshot wallet with the given opening balance.
func (s *snapshotService) ImportWallet(w models.Wallet, opening decimal.Decimal) (*models.Wallet, error) {
	return s.wallets.importWallet(w, opening)
}

// ImportTransaction replays a snapshot transaction through the posting path.
func (s *snapshotService) ImportTransaction(t models.Transaction) (*models.Transaction, error) {
	return s.txns.importTransaction(t)
}

// ImportCategory inserts a snapshot category under its original id.
func (s *snapshotService) ImportCategory(c models.Category) error {
	c.DeletedAt = gorm.DeletedAt{}
	return importRecord(s.store, &c, c.ID)
}

// ImportBudget inserts a snapshot budget under its original id.
func (s *snapshotService) ImportBudget(b models.Budget) error {
	b.DeletedAt = gorm.DeletedAt{}
	return importRecord(s.store, &b, b.ID)
}

// ImportBill inserts a snapshot bill under its original id.
func (s *snapshotService) ImportBill(b models.Bill) error {
	b.DeletedAt = gorm.DeletedAt{}
	return importRecord(s.store, &b, b.ID)
}

// ImportReminder inserts a snapshot reminder under its original id.
func (s *snapshotService) ImportReminder(r models.Reminder) error {
	r.DeletedAt = gorm.DeletedAt{}
	return importRecord(s.store, &r, r.ID)
}

// ImportGoal inserts a snapshot goal under its original id.
func (s *snapshotService) ImportGoal(g models.Goal) error {
	g.DeletedAt = gorm.DeletedAt{}
	return importRecord(s.store, &g, g.ID)
}

func importRecord[T any](s *store, record *T, id string) error {
	if id == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "record id is required")
	}
	return s.write(func(tx *gorm.DB) error {
		if err := ensureAbsent(tx, new(T), id); err != nil {
			return err
		}
		if err := tx.Create(record).Error; err != nil {
			return internal(err)
		}
		return nil
	})
}

// mergeRun applies one merge plan and keeps its statistics.
type mergeRun struct {
	s     *snapshotService
	log   *zap.SugaredLogger
	stats *MergeStats
}

func (m *mergeRun) apply(kind, id string, err error, counter *int) {
	if err != nil {
		m.stats.Skipped++
		m.log.Warnw("merge: skipping record", "kind", kind, "id", id, "error", err)
		return
	}
	*counter++
}

func (m *mergeRun) conflict(kind, id string, updatedAt time.Time, err error) {
	if err == nil {
		m.stats.ConflictIDs[id] = struct{}{}
		m.log.Warnw("merge conflict resolved by last write", "kind", kind, "id", id, "remote_updated_at", updatedAt)
	}
	m.apply(kind, id, err, &m.stats.Conflicts)
}

// ApplyMerge performs the mutations of plan record by record. A record that
// cannot be applied is logged and skipped; the rest of the plan still runs.
func (s *snapshotService) ApplyMerge(plan *snapshot.MergePlan) (*MergeStats, error) {
	m := &mergeRun{s: s, log: logger.Named("store"), stats: &MergeStats{ConflictIDs: map[string]struct{}{}}}
	stats, apply := m.stats, m.apply

	applyRecords(m, "category", plan.Categories, snapshot.CategoryParts)

	for _, ins := range plan.InsertWallets {
		_, err := s.wallets.importWallet(ins.Wallet, ins.Opening)
		apply("wallet", ins.Wallet.ID, err, &stats.Inserted)
	}
	for _, w := range plan.AdoptWallets {
		apply("wallet", w.ID, s.adoptWallet(w), &stats.Adopted)
	}

	inserts := append([]models.Transaction(nil), plan.InsertTransactions...)
	sort.SliceStable(inserts, func(i, j int) bool { return inserts[i].Date.Before(inserts[j].Date) })
	for _, t := range inserts {
		_, err := s.txns.importTransaction(t)
		apply("transaction", t.ID, err, &stats.Inserted)
	}
	for _, t := range plan.AdoptTransactions {
		apply("transaction", t.ID, s.adoptTransaction(t), &stats.Adopted)
	}

	// Conflicts go last so later postings cannot clear their markers.
	for _, w := range plan.ConflictWallets {
		m.conflict("wallet", w.ID, w.UpdatedAt, s.conflictWallet(w))
	}
	for _, t := range plan.ConflictTransactions {
		m.conflict("transaction", t.ID, t.UpdatedAt, s.conflictTransaction(t))
	}

	applyRecords(m, "budget", plan.Budgets, snapshot.BudgetParts)
	applyRecords(m, "bill", plan.Bills, snapshot.BillParts)
	applyRecords(m, "reminder", plan.Reminders, snapshot.ReminderParts)
	applyRecords(m, "goal", plan.Goals, snapshot.GoalParts)

	return stats, nil
}

func applyRecords[T any](m *mergeRun, kind string, plan snapshot.RecordPlan[T], parts snapshot.Parts[T]) {
	stats := m.stats
	for i := range plan.Insert {
		r := plan.Insert[i]
		base, _ := parts(&r)
		base.DeletedAt = gorm.DeletedAt{}
		m.apply(kind, base.ID, importRecord(m.s.store, &r, base.ID), &stats.Inserted)
	}
	for i := range plan.Adopt {
		r := plan.Adopt[i]
		base, _ := parts(&r)
		m.apply(kind, base.ID, takeRemote(m.s, &r, parts, false), &stats.Adopted)
	}
	for i := range plan.Delete {
		r := plan.Delete[i]
		base, _ := parts(&r)
		m.apply(kind, base.ID, dropSynced(m.s.store, &r, base.ID), &stats.Deleted)
	}
	for i := range plan.Conflict {
		r := plan.Conflict[i]
		base, _ := parts(&r)
		m.conflict(kind, base.ID, base.UpdatedAt, takeRemote(m.s, &r, parts, true))
	}
}

// takeRemote overwrites a local record with its remote copy. The local sync
// bookkeeping is kept. An adopted record stays clean and is left alone if it
// became dirty since planning; a conflicted one is flagged.
func takeRemote[T any](s *snapshotService, remote *T, parts snapshot.Parts[T], conflict bool) error {
	return s.write(func(tx *gorm.DB) error {
		rb, rm := parts(remote)
		current := new(T)
		cb, cm := parts(current)
		if err := first(tx.Where("id = ?", rb.ID), current, apperrors.ErrNotFound); err != nil {
			return err
		}
		if cm.IsDirty && !conflict {
			return nil
		}
		*rm = *cm
		if conflict {
			markConflict(rm, s.clock())
		}
		rb.CreatedAt = cb.CreatedAt
		rb.DeletedAt = gorm.DeletedAt{}
		if err := tx.Model(current).Select("*").UpdateColumns(remote).Error; err != nil {
			return internal(err)
		}
		return nil
	})
}

// dropSynced soft-deletes a record another device deleted, unless it changed
// locally since planning.
func dropSynced[T any](s *store, record *T, id string) error {
	return s.write(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND is_dirty = ?", id, false).Delete(record).Error; err != nil {
			return internal(err)
		}
		return nil
	})
}

// adoptWallet copies the remote descriptive fields onto a wallet that is
// still clean. The balance only ever moves through postings.
func (s *snapshotService) adoptWallet(remote models.Wallet) error {
	return s.write(func(tx *gorm.DB) error {
		return tx.Model(&models.Wallet{}).
			Where("id = ? AND is_dirty = ?", remote.ID, false).
			UpdateColumns(map[string]interface{}{
				"name":       remote.Name,
				"type":       remote.Type,
				"color":      remote.Color,
				"icon":       remote.Icon,
				"is_active":  remote.IsActive,
				"updated_at": remote.UpdatedAt,
			}).Error
	})
}

// conflictWallet takes the remote descriptive fields and flags the wallet as
// conflicted: still dirty, with a sync stamp.
func (s *snapshotService) conflictWallet(remote models.Wallet) error {
	return s.write(func(tx *gorm.DB) error {
		var wallet models.Wallet
		if err := first(tx.Where("id = ?", remote.ID), &wallet, apperrors.ErrWalletNotFound); err != nil {
			return err
		}
		wallet.Name = remote.Name
		wallet.Type = remote.Type
		wallet.Color = remote.Color
		wallet.Icon = remote.Icon
		wallet.IsActive = remote.IsActive
		markConflict(&wallet.SyncMeta, s.clock())
		return tx.Save(&wallet).Error
	})
}

// adoptTransaction copies the remote soft fields onto a clean transaction.
func (s *snapshotService) adoptTransaction(remote models.Transaction) error {
	return s.write(func(tx *gorm.DB) error {
		return tx.Model(&models.Transaction{}).
			Where("id = ? AND is_dirty = ?", remote.ID, false).
			UpdateColumns(map[string]interface{}{
				"description": remote.Description,
				"notes":       remote.Notes,
				"category_id": remote.CategoryID,
				"updated_at":  remote.UpdatedAt,
			}).Error
	})
}

// conflictTransaction takes the remote soft fields and flags the transaction as conflicted.
func (s *snapshotService) conflictTransaction(remote models.Transaction) error {
	return s.write(func(tx *gorm.DB) error {
		var transaction models.Transaction
		if err := first(tx.Where("id = ?", remote.ID), &transaction, apperrors.ErrTransactionNotFound); err != nil {
			return err
		}
		transaction.Description = remote.Description
		transaction.Notes = remote.Notes
		transaction.CategoryID = remote.CategoryID
		markConflict(&transaction.SyncMeta, s.clock())
		return tx.Save(&transaction).Error
	})
}

func markConflict(m *models.SyncMeta, at time.Time) {
	m.IsDirty = true
	m.LastSynced = &at
	m.Revision++
}
