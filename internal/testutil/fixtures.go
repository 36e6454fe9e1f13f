package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"pocketledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Money parses a decimal literal and fails the test on malformed input.
func Money(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal literal %q: %v", s, err)
	}
	return d
}

// CreateTestWallet inserts an active, dirty wallet of the given type and balance
// directly, bypassing the store's posting logic.
func CreateTestWallet(t *testing.T, db *gorm.DB, walletType models.WalletType, balance string) *models.Wallet {
	t.Helper()

	wallet := &models.Wallet{
		Name:     fmt.Sprintf("Test Wallet %d", nextID()),
		Type:     walletType,
		Balance:  Money(t, balance),
		IsActive: true,
		SyncMeta: models.SyncMeta{IsDirty: true, Revision: 1},
	}
	if err := db.Create(wallet).Error; err != nil {
		t.Fatalf("failed to create test wallet: %v", err)
	}
	return wallet
}

// CreateTestCashWallet creates a cash wallet with the given balance.
func CreateTestCashWallet(t *testing.T, db *gorm.DB, balance string) *models.Wallet {
	t.Helper()
	return CreateTestWallet(t, db, models.WalletTypeCash, balance)
}

// CreateSyncedWallet creates a wallet that was already confirmed by the cloud.
func CreateSyncedWallet(t *testing.T, db *gorm.DB, balance string, syncedAt time.Time) *models.Wallet {
	t.Helper()

	synced := syncedAt.UTC()
	wallet := &models.Wallet{
		Name:     fmt.Sprintf("Synced Wallet %d", nextID()),
		Type:     models.WalletTypeBank,
		Balance:  Money(t, balance),
		IsActive: true,
		SyncMeta: models.SyncMeta{LastSynced: &synced, Revision: 1},
	}
	if err := db.Create(wallet).Error; err != nil {
		t.Fatalf("failed to create synced wallet: %v", err)
	}
	return wallet
}

// CreateTestCategory creates a custom category.
func CreateTestCategory(t *testing.T, db *gorm.DB) *models.Category {
	t.Helper()

	category := &models.Category{
		Name:     fmt.Sprintf("Test Category %d", nextID()),
		IsCustom: true,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction inserts a dirty transaction without touching the
// wallet balance.
func CreateTestTransaction(t *testing.T, db *gorm.DB, walletID string, txType models.TransactionType, amount string, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		WalletID: walletID,
		Type:     txType,
		Amount:   Money(t, amount),
		Date:     date.UTC(),
		SyncMeta: models.SyncMeta{IsDirty: true, Revision: 1},
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}
