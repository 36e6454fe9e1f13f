package services

import (
	"testing"
	"time"

	"pocketledger/internal/models"
	"pocketledger/internal/snapshot"
	"pocketledger/internal/testutil"

	"github.com/shopspring/decimal"
)

func TestCollect(t *testing.T) {
	l, _ := newTestLedger(t)
	_, err := l.Categories.SeedDefaultCategories()
	testutil.AssertNoError(t, err)
	a := mustWallet(t, l, "A", models.WalletTypeBank, "100")
	b := mustWallet(t, l, "B", models.WalletTypeCash, "0")
	testutil.AssertNoError(t, l.Wallets.DeleteWallet(b.ID))

	snap, err := l.Snapshots.Collect()
	testutil.AssertNoError(t, err)

	if len(snap.Wallets) != 2 {
		t.Errorf("expected inactive wallets to be collected, got %d wallets", len(snap.Wallets))
	}
	if len(snap.Transactions) != 1 || snap.Transactions[0].WalletID != a.ID {
		t.Errorf("expected the opening balance posting, got %+v", snap.Transactions)
	}
	if len(snap.Categories) != len(defaultCategories) {
		t.Errorf("expected %d categories, got %d", len(defaultCategories), len(snap.Categories))
	}
	if snap.Checksum != "" {
		t.Error("expected collected snapshot to be unsealed")
	}
}

func TestMarkSynced(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("clears_dirty_flags", func(t *testing.T) {
		l, db := newTestLedger(t)
		w := mustWallet(t, l, "A", models.WalletTypeBank, "100")

		snap, err := l.Snapshots.Collect()
		testutil.AssertNoError(t, err)
		marked, err := l.Snapshots.MarkSynced(snap, at, nil)
		testutil.AssertNoError(t, err)
		if marked != 2 {
			t.Errorf("expected wallet and opening posting marked, got %d", marked)
		}

		got := reloadWallet(t, db, w.ID)
		if got.State() != models.SyncStateSynced {
			t.Errorf("expected synced, got %s", got.State())
		}
		if !got.LastSynced.Equal(at) {
			t.Errorf("expected last synced %v, got %v", at, got.LastSynced)
		}

		unsynced, err := l.Snapshots.CountUnsynced()
		testutil.AssertNoError(t, err)
		if unsynced != 0 {
			t.Errorf("expected 0 unsynced, got %d", unsynced)
		}
	})

	t.Run("keeps_records_changed_after_collection", func(t *testing.T) {
		l, db := newTestLedger(t)
		w := mustWallet(t, l, "A", models.WalletTypeBank, "100")

		snap, err := l.Snapshots.Collect()
		testutil.AssertNoError(t, err)

		_, err = l.Transactions.CreateTransaction(CreateTransactionInput{WalletID: w.ID, Type: models.TransactionTypeExpense, Amount: testutil.Money(t, "5")})
		testutil.AssertNoError(t, err)

		_, err = l.Snapshots.MarkSynced(snap, at, nil)
		testutil.AssertNoError(t, err)

		if !reloadWallet(t, db, w.ID).IsDirty {
			t.Error("expected wallet edited mid-sync to stay dirty")
		}
		unsynced, err := l.Snapshots.CountUnsynced()
		testutil.AssertNoError(t, err)
		if unsynced != 2 {
			t.Errorf("expected wallet and new posting unsynced, got %d", unsynced)
		}
	})

	t.Run("respects_exclusions", func(t *testing.T) {
		l, db := newTestLedger(t)
		w := mustWallet(t, l, "A", models.WalletTypeBank, "0")

		snap, err := l.Snapshots.Collect()
		testutil.AssertNoError(t, err)
		marked, err := l.Snapshots.MarkSynced(snap, at, map[string]struct{}{w.ID: {}})
		testutil.AssertNoError(t, err)
		if marked != 0 {
			t.Errorf("expected nothing marked, got %d", marked)
		}
		if !reloadWallet(t, db, w.ID).IsDirty {
			t.Error("expected excluded wallet to stay dirty")
		}
	})
}

func TestResetSyncState(t *testing.T) {
	l, db := newTestLedger(t)
	w := mustWallet(t, l, "A", models.WalletTypeBank, "0")

	snap, err := l.Snapshots.Collect()
	testutil.AssertNoError(t, err)
	_, err = l.Snapshots.MarkSynced(snap, time.Now(), nil)
	testutil.AssertNoError(t, err)

	testutil.AssertNoError(t, l.Snapshots.ResetSyncState())

	if got := reloadWallet(t, db, w.ID).State(); got != models.SyncStateLocalOnly {
		t.Errorf("expected local_only, got %s", got)
	}
}

func TestTombstones(t *testing.T) {
	l, db := newTestLedger(t)
	w := mustWallet(t, l, "A", models.WalletTypeBank, "100")
	txn, err := l.Transactions.CreateTransaction(CreateTransactionInput{WalletID: w.ID, Type: models.TransactionTypeExpense, Amount: testutil.Money(t, "10")})
	testutil.AssertNoError(t, err)
	cat, err := l.Categories.CreateCategory("Pets", "paw", "#123456")
	testutil.AssertNoError(t, err)

	testutil.AssertNoError(t, l.Transactions.DeleteTransaction(txn.ID))
	testutil.AssertNoError(t, l.Categories.DeleteCategory(cat.ID))

	tombstones, err := l.Snapshots.Tombstones()
	testutil.AssertNoError(t, err)
	if !tombstones.Has(txn.ID) || !tombstones.Has(cat.ID) {
		t.Errorf("expected deleted transaction and category as tombstones, got %v", tombstones)
	}

	testutil.AssertNoError(t, l.Snapshots.PurgeTombstones())

	tombstones, err = l.Snapshots.Tombstones()
	testutil.AssertNoError(t, err)
	if tombstones.Has(txn.ID) {
		t.Error("expected purged transaction to be gone")
	}
	if !tombstones.Has(cat.ID) {
		t.Error("expected deleted category to survive the purge")
	}

	var count int64
	db.Unscoped().Model(&models.Transaction{}).Where("id = ?", txn.ID).Count(&count)
	if count != 0 {
		t.Errorf("expected hard delete, found %d rows", count)
	}
}

func TestClearAll(t *testing.T) {
	l, db := newTestLedger(t)
	_, err := l.Categories.SeedDefaultCategories()
	testutil.AssertNoError(t, err)
	mustWallet(t, l, "A", models.WalletTypeBank, "100")
	testutil.AssertNoError(t, db.Create(&models.Setting{Key: "pref.currency", Value: "EUR"}).Error)

	testutil.AssertNoError(t, l.Snapshots.ClearAll())

	snap, err := l.Snapshots.Collect()
	testutil.AssertNoError(t, err)
	if snap.ItemsCount() != 0 {
		t.Errorf("expected empty store, got %d items", snap.ItemsCount())
	}

	var settings int64
	db.Model(&models.Setting{}).Count(&settings)
	if settings != 1 {
		t.Errorf("expected settings to be kept, got %d", settings)
	}
}

func TestImport(t *testing.T) {
	t.Run("rebuilds_balance_from_postings", func(t *testing.T) {
		l, db := newTestLedger(t)
		day := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

		remote := models.Wallet{Base: models.Base{ID: "w-1"}, Name: "Bank", Type: models.WalletTypeBank, Balance: testutil.Money(t, "70"), IsActive: true}
		txns := []models.Transaction{
			{Base: models.Base{ID: "t-1"}, WalletID: "w-1", Type: models.TransactionTypeIncome, Amount: testutil.Money(t, "100"), Date: day},
			{Base: models.Base{ID: "t-2"}, WalletID: "w-1", Type: models.TransactionTypeExpense, Amount: testutil.Money(t, "30"), Date: day.AddDate(0, 0, 1)},
		}

		opening := snapshot.OpeningBalance(remote, txns)
		testutil.AssertDecimal(t, opening, "0")

		_, err := l.Snapshots.ImportWallet(remote, opening)
		testutil.AssertNoError(t, err)
		for _, txn := range txns {
			_, err := l.Snapshots.ImportTransaction(txn)
			testutil.AssertNoError(t, err)
		}

		got := reloadWallet(t, db, "w-1")
		testutil.AssertDecimal(t, got.Balance, "70")
		if got.State() != models.SyncStatePendingSync {
			t.Errorf("expected imported wallet to be pending sync, got %s", got.State())
		}
	})

	t.Run("rejects_duplicates", func(t *testing.T) {
		l, _ := newTestLedger(t)
		w := mustWallet(t, l, "A", models.WalletTypeBank, "0")

		_, err := l.Snapshots.ImportWallet(*w, decimal.Zero)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("transaction_needs_wallet", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.Snapshots.ImportTransaction(models.Transaction{Base: models.Base{ID: "t-1"}, WalletID: "nope", Type: models.TransactionTypeIncome, Amount: testutil.Money(t, "1"), Date: time.Now()})
		testutil.AssertAppError(t, err, "WALLET_NOT_FOUND")
	})
}

func TestApplyMerge(t *testing.T) {
	t.Run("inserts_adopts_and_conflicts", func(t *testing.T) {
		l, db := newTestLedger(t)
		clean := mustWallet(t, l, "Clean", models.WalletTypeBank, "0")
		dirty := mustWallet(t, l, "Dirty", models.WalletTypeCash, "0")

		local, err := l.Snapshots.Collect()
		testutil.AssertNoError(t, err)
		_, err = l.Snapshots.MarkSynced(&snapshot.Snapshot{Data: snapshot.Data{Wallets: []models.Wallet{local.Wallets[0]}}}, time.Now(), nil)
		testutil.AssertNoError(t, err)
		local, err = l.Snapshots.Collect()
		testutil.AssertNoError(t, err)

		later := time.Now().Add(time.Hour)
		remoteClean := local.Wallets[0]
		remoteClean.Name = "Renamed"
		remoteDirty := local.Wallets[1]
		remoteDirty.Name = "Remote name"
		remoteDirty.UpdatedAt = later

		remote := snapshot.New()
		remote.Wallets = []models.Wallet{
			remoteClean,
			remoteDirty,
			{Base: models.Base{ID: "w-new"}, Name: "Savings", Type: models.WalletTypeSavings, Balance: testutil.Money(t, "50"), IsActive: true},
		}
		remote.Transactions = []models.Transaction{
			{Base: models.Base{ID: "t-new"}, WalletID: "w-new", Type: models.TransactionTypeIncome, Amount: testutil.Money(t, "20"), Date: time.Now()},
		}

		plan := snapshot.PlanMerge(local, remote, snapshot.Tombstones{})
		stats, err := l.Snapshots.ApplyMerge(plan)
		testutil.AssertNoError(t, err)

		if stats.Inserted != 2 || stats.Adopted != 1 || stats.Conflicts != 1 || stats.Skipped != 0 {
			t.Errorf("unexpected stats %+v", stats)
		}
		if _, flagged := stats.ConflictIDs[dirty.ID]; !flagged {
			t.Error("expected dirty wallet in conflict ids")
		}

		if got := reloadWallet(t, db, clean.ID); got.Name != "Renamed" || got.IsDirty {
			t.Errorf("expected adopted clean wallet, got %q dirty=%v", got.Name, got.IsDirty)
		}
		if got := reloadWallet(t, db, dirty.ID); got.Name != "Remote name" || got.State() != models.SyncStateConflict {
			t.Errorf("expected conflicted wallet with remote name, got %q %s", got.Name, got.State())
		}
		testutil.AssertDecimal(t, reloadWallet(t, db, "w-new").Balance, "50")
	})

	t.Run("skips_bad_records", func(t *testing.T) {
		l, _ := newTestLedger(t)
		plan := &snapshot.MergePlan{
			InsertTransactions: []models.Transaction{
				{Base: models.Base{ID: "orphan"}, WalletID: "missing", Type: models.TransactionTypeIncome, Amount: testutil.Money(t, "5"), Date: time.Now()},
			},
			Goals: snapshot.RecordPlan[models.Goal]{Insert: []models.Goal{
				{Base: models.Base{ID: "g-1"}, Name: "Trip", TargetAmount: testutil.Money(t, "100")},
			}},
		}

		stats, err := l.Snapshots.ApplyMerge(plan)
		testutil.AssertNoError(t, err)
		if stats.Skipped != 1 || stats.Inserted != 1 {
			t.Errorf("expected one skip and one insert, got %+v", stats)
		}
	})
}

func TestPlanningMutationsMarkDirty(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l, db := newTestLedger(t)

	category, err := l.Categories.CreateCategory("Pets", "paw", "#795548")
	testutil.AssertNoError(t, err)
	budget, err := l.Budgets.CreateBudget(BudgetInput{Name: "Food", Amount: testutil.Money(t, "100"), Period: models.BudgetPeriodMonthly})
	testutil.AssertNoError(t, err)
	bill, err := l.Planning.CreateBill(BillInput{Name: "Rent", Amount: testutil.Money(t, "900"), DueDate: at, Frequency: models.FrequencyMonthly})
	testutil.AssertNoError(t, err)
	goal, err := l.Planning.CreateGoal(GoalInput{Name: "Trip", TargetAmount: testutil.Money(t, "500")})
	testutil.AssertNoError(t, err)

	for _, meta := range []models.SyncMeta{category.SyncMeta, budget.SyncMeta, bill.SyncMeta, goal.SyncMeta} {
		if meta.State() != models.SyncStatePendingSync || meta.Revision != 1 {
			t.Errorf("expected new record pending sync at revision 1, got %s rev %d", meta.State(), meta.Revision)
		}
	}

	markAll := func(t *testing.T) {
		t.Helper()
		snap, err := l.Snapshots.Collect()
		testutil.AssertNoError(t, err)
		_, err = l.Snapshots.MarkSynced(snap, at, nil)
		testutil.AssertNoError(t, err)
		unsynced, err := l.Snapshots.CountUnsynced()
		testutil.AssertNoError(t, err)
		if unsynced != 0 {
			t.Fatalf("expected everything synced, got %d", unsynced)
		}
	}
	metaOf := func(t *testing.T, table, id string) models.SyncMeta {
		t.Helper()
		var meta models.SyncMeta
		err := db.Unscoped().Table(table).Select("last_synced, is_dirty, revision").Where("id = ?", id).Take(&meta).Error
		testutil.AssertNoError(t, err)
		return meta
	}
	markAll(t)

	tests := []struct {
		name    string
		table   string
		id      string
		deleted bool
		mutate  func() error
	}{
		{"update_budget", "budgets", budget.ID, false, func() error {
			amount := testutil.Money(t, "250")
			_, err := l.Budgets.UpdateBudget(budget.ID, BudgetUpdate{Amount: &amount})
			return err
		}},
		{"mark_bill_paid", "bills", bill.ID, false, func() error {
			_, err := l.Planning.MarkBillPaid(bill.ID)
			return err
		}},
		{"contribute_to_goal", "goals", goal.ID, false, func() error {
			_, err := l.Planning.ContributeToGoal(goal.ID, testutil.Money(t, "50"))
			return err
		}},
		{"delete_budget", "budgets", budget.ID, true, func() error { return l.Budgets.DeleteBudget(budget.ID) }},
		{"delete_category", "categories", category.ID, true, func() error { return l.Categories.DeleteCategory(category.ID) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := metaOf(t, tt.table, tt.id)
			testutil.AssertNoError(t, tt.mutate())

			after := metaOf(t, tt.table, tt.id)
			if !after.IsDirty || after.LastSynced != nil || after.Revision != before.Revision+1 {
				t.Errorf("expected a dirty record at revision %d, got %+v", before.Revision+1, after)
			}

			unsynced, err := l.Snapshots.CountUnsynced()
			testutil.AssertNoError(t, err)
			want := int64(1)
			if tt.deleted {
				want = 0
			}
			if unsynced != want {
				t.Errorf("expected %d unsynced, got %d", want, unsynced)
			}
			markAll(t)
		})
	}
}

func TestApplyMergePlanningRecords(t *testing.T) {
	l, db := newTestLedger(t)
	newBudget := func(name string) *models.Budget {
		b, err := l.Budgets.CreateBudget(BudgetInput{Name: name, Amount: testutil.Money(t, "100"), Period: models.BudgetPeriodMonthly})
		testutil.AssertNoError(t, err)
		return b
	}
	clean := newBudget("Clean")
	dirty := newBudget("Dirty")
	gone := newBudget("Gone")

	snap, err := l.Snapshots.Collect()
	testutil.AssertNoError(t, err)
	_, err = l.Snapshots.MarkSynced(snap, time.Now(), nil)
	testutil.AssertNoError(t, err)

	localAmount := testutil.Money(t, "120")
	_, err = l.Budgets.UpdateBudget(dirty.ID, BudgetUpdate{Amount: &localAmount})
	testutil.AssertNoError(t, err)

	local, err := l.Snapshots.Collect()
	testutil.AssertNoError(t, err)
	later := time.Now().Add(time.Hour)
	remote := snapshot.New()
	for _, b := range local.Budgets {
		switch b.ID {
		case clean.ID:
			b.Amount = testutil.Money(t, "250")
		case dirty.ID:
			b.Amount = testutil.Money(t, "300")
		default:
			continue
		}
		b.UpdatedAt = later
		remote.Budgets = append(remote.Budgets, b)
	}

	stats, err := l.Snapshots.ApplyMerge(snapshot.PlanMerge(local, remote, snapshot.Tombstones{}))
	testutil.AssertNoError(t, err)
	if stats.Adopted != 1 || stats.Conflicts != 1 || stats.Deleted != 1 || stats.Skipped != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if _, flagged := stats.ConflictIDs[dirty.ID]; !flagged {
		t.Error("expected dirty budget in conflict ids")
	}

	got, err := l.Budgets.GetBudgetByID(clean.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertDecimal(t, got.Amount, "250")
	if got.State() != models.SyncStateSynced || !got.UpdatedAt.Equal(later) {
		t.Errorf("expected adopted budget synced with remote timestamp, got %s at %v", got.State(), got.UpdatedAt)
	}

	got, err = l.Budgets.GetBudgetByID(dirty.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertDecimal(t, got.Amount, "300")
	if got.State() != models.SyncStateConflict {
		t.Errorf("expected conflicted budget, got %s", got.State())
	}

	_, err = l.Budgets.GetBudgetByID(gone.ID)
	testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
	var tombstone models.Budget
	testutil.AssertNoError(t, db.Unscoped().Where("id = ?", gone.ID).Take(&tombstone).Error)
	if !tombstone.DeletedAt.Valid {
		t.Error("expected the remotely deleted budget to leave a tombstone")
	}
}
