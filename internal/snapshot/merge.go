package snapshot

import (
	"pocketledger/internal/models"

	"github.com/shopspring/decimal"
)

// Tombstones holds ids of records deleted locally. Remote copies of these ids
// are never re-inserted by a merge.
type Tombstones map[string]struct{}

// Has reports whether id was deleted locally.
func (t Tombstones) Has(id string) bool {
	_, ok := t[id]
	return ok
}

// WalletInsert is a remote wallet absent locally, with the opening balance it
// must be created with so that its inserted transactions land on the remote balance.
type WalletInsert struct {
	Wallet  models.Wallet
	Opening decimal.Decimal
}

// RecordPlan is the merge outcome for one kind of tracked planning record.
//
// Adopt entries are clean locally and newer remotely: the remote copy
// replaces the local one, which stays clean. Conflict entries are dirty
// locally and newer remotely: the remote copy wins and the record is kept
// dirty and flagged. Delete entries were synced before and are gone from the
// remote copy, so another device deleted them.
type RecordPlan[T any] struct {
	Insert   []T
	Adopt    []T
	Conflict []T
	Delete   []T
}

func (p *RecordPlan[T]) changes() int {
	return len(p.Insert) + len(p.Adopt) + len(p.Conflict) + len(p.Delete)
}

// MergePlan lists the local mutations that reconcile a local snapshot with a
// remote one. It is computed without touching storage.
//
// Wallet and transaction entries follow the same adopt and conflict rules as
// RecordPlan, restricted to the fields a merge may change. Dirty local records
// not listed anywhere are kept as they are and win on the next upload.
type MergePlan struct {
	InsertWallets      []WalletInsert
	InsertTransactions []models.Transaction
	InsertSettings     map[string]string

	AdoptWallets      []models.Wallet
	AdoptTransactions []models.Transaction

	ConflictWallets      []models.Wallet
	ConflictTransactions []models.Transaction

	Categories RecordPlan[models.Category]
	Budgets    RecordPlan[models.Budget]
	Bills      RecordPlan[models.Bill]
	Reminders  RecordPlan[models.Reminder]
	Goals      RecordPlan[models.Goal]

	KeptLocal int
}

// Changes returns the number of local mutations the plan performs.
func (p *MergePlan) Changes() int {
	return len(p.InsertWallets) + len(p.InsertTransactions) + len(p.InsertSettings) +
		len(p.AdoptWallets) + len(p.AdoptTransactions) +
		len(p.ConflictWallets) + len(p.ConflictTransactions) +
		p.Categories.changes() + p.Budgets.changes() + p.Bills.changes() +
		p.Reminders.changes() + p.Goals.changes()
}

// PlanMerge treats records as independent by id. A remote record absent
// locally is inserted unless tombstoned. A dirty local record is preferred
// over its remote counterpart, except when the remote copy was updated later,
// which is a true conflict resolved by last write. A record clean locally
// takes the remote version. A nil remote means no cloud copy exists yet;
// nothing is then treated as deleted remotely.
func PlanMerge(local, remote *Snapshot, tombstones Tombstones) *MergePlan {
	plan := &MergePlan{InsertSettings: map[string]string{}}
	remoteDeletes := remote != nil
	if remote == nil {
		remote = New()
	}

	localWallets := make(map[string]models.Wallet, len(local.Wallets))
	for _, w := range local.Wallets {
		localWallets[w.ID] = w
	}
	localTxns := make(map[string]models.Transaction, len(local.Transactions))
	for _, t := range local.Transactions {
		localTxns[t.ID] = t
	}

	for _, t := range remote.Transactions {
		lt, ok := localTxns[t.ID]
		switch {
		case !ok:
			if !tombstones.Has(t.ID) {
				plan.InsertTransactions = append(plan.InsertTransactions, t)
			}
		case !lt.IsDirty:
			if softFieldsDiffer(lt, t) {
				plan.AdoptTransactions = append(plan.AdoptTransactions, t)
			}
		case t.UpdatedAt.After(lt.UpdatedAt):
			plan.ConflictTransactions = append(plan.ConflictTransactions, t)
		default:
			plan.KeptLocal++
		}
	}

	for _, w := range remote.Wallets {
		lw, ok := localWallets[w.ID]
		switch {
		case !ok:
			if !tombstones.Has(w.ID) {
				plan.InsertWallets = append(plan.InsertWallets, WalletInsert{
					Wallet:  w,
					Opening: OpeningBalance(w, plan.InsertTransactions),
				})
			}
		case !lw.IsDirty:
			if walletFieldsDiffer(lw, w) {
				plan.AdoptWallets = append(plan.AdoptWallets, w)
			}
		case w.UpdatedAt.After(lw.UpdatedAt):
			plan.ConflictWallets = append(plan.ConflictWallets, w)
		default:
			plan.KeptLocal++
		}
	}

	m := recordMerger{tombstones: tombstones, remoteDeletes: remoteDeletes, kept: &plan.KeptLocal}
	plan.Categories = planRecords(m, local.Categories, remote.Categories, CategoryParts)
	plan.Budgets = planRecords(m, local.Budgets, remote.Budgets, BudgetParts)
	plan.Bills = planRecords(m, local.Bills, remote.Bills, BillParts)
	plan.Reminders = planRecords(m, local.Reminders, remote.Reminders, ReminderParts)
	plan.Goals = planRecords(m, local.Goals, remote.Goals, GoalParts)

	for k, v := range remote.Settings {
		if _, ok := local.Settings[k]; !ok {
			plan.InsertSettings[k] = v
		}
	}

	return plan
}

func walletFieldsDiffer(local, remote models.Wallet) bool {
	return local.Name != remote.Name || local.Type != remote.Type ||
		local.Color != remote.Color || local.Icon != remote.Icon ||
		local.IsActive != remote.IsActive
}

func softFieldsDiffer(local, remote models.Transaction) bool {
	if local.Description != remote.Description || local.Notes != remote.Notes {
		return true
	}
	switch {
	case local.CategoryID == nil && remote.CategoryID == nil:
		return false
	case local.CategoryID == nil || remote.CategoryID == nil:
		return true
	}
	return *local.CategoryID != *remote.CategoryID
}

// Parts exposes the shared columns of a tracked record.
type Parts[T any] func(*T) (*models.Base, *models.SyncMeta)

// Accessors for the tracked planning kinds.
var (
	CategoryParts Parts[models.Category] = func(r *models.Category) (*models.Base, *models.SyncMeta) { return &r.Base, &r.SyncMeta }
	BudgetParts   Parts[models.Budget]   = func(r *models.Budget) (*models.Base, *models.SyncMeta) { return &r.Base, &r.SyncMeta }
	BillParts     Parts[models.Bill]     = func(r *models.Bill) (*models.Base, *models.SyncMeta) { return &r.Base, &r.SyncMeta }
	ReminderParts Parts[models.Reminder] = func(r *models.Reminder) (*models.Base, *models.SyncMeta) { return &r.Base, &r.SyncMeta }
	GoalParts     Parts[models.Goal]     = func(r *models.Goal) (*models.Base, *models.SyncMeta) { return &r.Base, &r.SyncMeta }
)

type recordMerger struct {
	tombstones    Tombstones
	remoteDeletes bool
	kept          *int
}

func planRecords[T any](m recordMerger, local, remote []T, parts Parts[T]) RecordPlan[T] {
	var plan RecordPlan[T]

	byID := make(map[string]*T, len(local))
	for i := range local {
		base, _ := parts(&local[i])
		byID[base.ID] = &local[i]
	}

	seen := make(map[string]struct{}, len(remote))
	for i := range remote {
		r := remote[i]
		rb, _ := parts(&r)
		seen[rb.ID] = struct{}{}

		l, ok := byID[rb.ID]
		if !ok {
			if !m.tombstones.Has(rb.ID) {
				plan.Insert = append(plan.Insert, r)
			}
			continue
		}
		lb, lm := parts(l)
		switch {
		case !rb.UpdatedAt.After(lb.UpdatedAt):
			if lm.IsDirty {
				*m.kept++
			}
		case lm.IsDirty:
			plan.Conflict = append(plan.Conflict, r)
		default:
			plan.Adopt = append(plan.Adopt, r)
		}
	}

	if !m.remoteDeletes {
		return plan
	}
	for i := range local {
		lb, lm := parts(&local[i])
		if _, ok := seen[lb.ID]; ok {
			continue
		}
		if !lm.IsDirty && lm.LastSynced != nil {
			plan.Delete = append(plan.Delete, local[i])
		}
	}
	return plan
}
