package services

import (
	"testing"
	"time"

	"pocketledger/internal/models"
	"pocketledger/internal/testutil"

	"gorm.io/gorm"
)

// newTestLedger returns a Ledger over a fresh in-memory database.
func newTestLedger(t *testing.T, opts ...Option) (*Ledger, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })
	return NewLedger(db, opts...), db
}

func fixedClock(at time.Time) Option {
	return WithClock(func() time.Time { return at })
}

func mustWallet(t *testing.T, l *Ledger, name string, walletType models.WalletType, balance string) *models.Wallet {
	t.Helper()
	w, err := l.Wallets.CreateWallet(CreateWalletInput{Name: name, Type: walletType, Balance: testutil.Money(t, balance)})
	testutil.AssertNoError(t, err)
	return w
}

func reloadWallet(t *testing.T, db *gorm.DB, id string) models.Wallet {
	t.Helper()
	var w models.Wallet
	if err := db.Where("id = ?", id).First(&w).Error; err != nil {
		t.Fatalf("failed to reload wallet %s: %v", id, err)
	}
	return w
}

func countTransactions(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.Transaction{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count transactions: %v", err)
	}
	return count
}
