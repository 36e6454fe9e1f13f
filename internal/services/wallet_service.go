package services

import (
	"strings"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// defaultWallets are created on first launch.
var defaultWallets = []models.Wallet{
	{Name: "Cash", Type: models.WalletTypeCash, Color: "#4CAF50", Icon: "cash"},
	{Name: "Bank Account", Type: models.WalletTypeBank, Color: "#2196F3", Icon: "bank"},
}

// walletService handles wallet-related business logic.
type walletService struct {
	*store
}

// CreateWallet creates a new active wallet. A non-zero opening balance is
// recorded as an income (or, for debts, an expense) so that the balance always
// equals the sum of its postings.
func (s *walletService) CreateWallet(in CreateWalletInput) (*models.Wallet, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "wallet name is required")
	}
	if in.Type == "" {
		in.Type = models.WalletTypeOther
	}
	if !in.Type.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown wallet type")
	}

	wallet := &models.Wallet{
		Name:     name,
		Type:     in.Type,
		Balance:  decimal.Zero,
		Color:    in.Color,
		Icon:     in.Icon,
		IsActive: true,
	}
	wallet.Touch()

	err := s.write(func(tx *gorm.DB) error {
		if err := tx.Create(wallet).Error; err != nil {
			return internal(err)
		}
		if in.Balance.IsZero() {
			return nil
		}

		opening := &models.Transaction{
			WalletID:    wallet.ID,
			Type:        models.TransactionTypeIncome,
			Amount:      in.Balance.Abs(),
			Description: "Opening balance",
			Date:        s.clock(),
		}
		if in.Balance.IsNegative() {
			opening.Type = models.TransactionTypeExpense
		}
		return post(tx, wallet, opening)
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// GetWallets returns all active wallets in creation order.
func (s *walletService) GetWallets() ([]models.Wallet, error) {
	var wallets []models.Wallet
	if err := s.db.Where("is_active = ?", true).Order("created_at ASC, id ASC").Find(&wallets).Error; err != nil {
		return nil, internal(err)
	}
	return wallets, nil
}

// GetWalletByID returns an active wallet.
func (s *walletService) GetWalletByID(id string) (*models.Wallet, error) {
	return activeWallet(s.db, id)
}

// UpdateWallet changes the descriptive fields of an active wallet.
func (s *walletService) UpdateWallet(id string, in UpdateWalletInput) (*models.Wallet, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "wallet name cannot be empty")
	}
	if in.Type != nil && !in.Type.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown wallet type")
	}

	var wallet *models.Wallet
	err := s.write(func(tx *gorm.DB) error {
		var err error
		if wallet, err = activeWallet(tx, id); err != nil {
			return err
		}
		if in.Name != nil {
			wallet.Name = strings.TrimSpace(*in.Name)
		}
		if in.Type != nil {
			wallet.Type = *in.Type
		}
		if in.Color != nil {
			wallet.Color = *in.Color
		}
		if in.Icon != nil {
			wallet.Icon = *in.Icon
		}
		wallet.Touch()
		if err := tx.Save(wallet).Error; err != nil {
			return internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// DeleteWallet removes a wallet from the active set. Its transactions, and
// the transfer legs other wallets hold against it, are left untouched.
func (s *walletService) DeleteWallet(id string) error {
	return s.write(func(tx *gorm.DB) error {
		wallet, err := activeWallet(tx, id)
		if err != nil {
			return err
		}
		wallet.IsActive = false
		wallet.Touch()
		if err := tx.Save(wallet).Error; err != nil {
			return internal(err)
		}
		return nil
	})
}

// SeedDefaultWallets creates the default wallets when no wallet exists yet.
// Seeded wallets start clean: they are local-only until the first sync.
func (s *walletService) SeedDefaultWallets() (int, error) {
	created := 0
	err := s.write(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Unscoped().Model(&models.Wallet{}).Count(&count).Error; err != nil {
			return internal(err)
		}
		if count > 0 {
			return nil
		}
		for _, def := range defaultWallets {
			wallet := def
			wallet.Balance = decimal.Zero
			wallet.IsActive = true
			if err := tx.Create(&wallet).Error; err != nil {
				return internal(err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// importWallet recreates a wallet from a snapshot under its original id,
// starting from the given opening balance.
func (s *walletService) importWallet(w models.Wallet, opening decimal.Decimal) (*models.Wallet, error) {
	if w.ID == "" || strings.TrimSpace(w.Name) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "wallet id and name are required")
	}
	if !w.Type.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown wallet type")
	}

	wallet := w
	wallet.Balance = opening
	wallet.DeletedAt = gorm.DeletedAt{}
	wallet.SyncMeta = models.SyncMeta{}
	wallet.Touch()

	err := s.write(func(tx *gorm.DB) error {
		if err := ensureAbsent(tx, &models.Wallet{}, wallet.ID); err != nil {
			return err
		}
		if err := tx.Create(&wallet).Error; err != nil {
			return internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// activeWallet loads an active wallet through q.
func activeWallet(q *gorm.DB, id string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := first(q.Where("id = ? AND is_active = ?", id, true), &wallet, apperrors.ErrWalletNotFound); err != nil {
		return nil, err
	}
	return &wallet, nil
}

// ensureAbsent fails if a record with id exists, including soft-deleted ones.
func ensureAbsent(tx *gorm.DB, model interface{}, id string) error {
	var count int64
	if err := tx.Unscoped().Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return internal(err)
	}
	if count > 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "record "+id+" already exists")
	}
	return nil
}
