package services

import (
	"errors"
	"strings"
	"time"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/models"
	"pocketledger/internal/pagination"
	"pocketledger/internal/uuid"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// maxHistoryDays bounds GetWalletBalanceHistory.
const maxHistoryDays = 366

// transactionService handles transaction-related business logic.
type transactionService struct {
	*store

	// afterDebit runs inside a transfer between the debit and credit legs.
	afterDebit func() error
}

// CreateTransaction posts an income or expense to an active wallet and applies
// its balance effect in the same database transaction.
func (s *transactionService) CreateTransaction(in CreateTransactionInput) (*models.Transaction, error) {
	switch in.Type {
	case models.TransactionTypeIncome, models.TransactionTypeExpense:
	case models.TransactionTypeTransfer:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidTransactionType, "transfers must be created with a transfer")
	default:
		return nil, apperrors.ErrInvalidTransactionType
	}
	if !in.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	date := in.Date
	if date.IsZero() {
		date = s.clock()
	}

	transaction := &models.Transaction{
		WalletID:    in.WalletID,
		CategoryID:  normalizeID(in.CategoryID),
		Type:        in.Type,
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		Notes:       in.Notes,
		Date:        date.UTC(),
	}

	err := s.write(func(tx *gorm.DB) error {
		wallet, err := activeWallet(tx, in.WalletID)
		if err != nil {
			return err
		}
		if err := checkCategory(tx, transaction.CategoryID); err != nil {
			return err
		}
		return post(tx, wallet, transaction)
	})
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

// TransferMoney moves amount between two active wallets as a pair of linked
// TRANSFER legs. Both legs and both balance updates commit together or not at all.
func (s *transactionService) TransferMoney(in TransferInput) (*Transfer, error) {
	if in.FromWalletID == in.ToWalletID {
		return nil, apperrors.ErrSameWalletTransfer
	}
	if !in.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	date := in.Date
	if date.IsZero() {
		date = s.clock()
	}
	ref := uuid.NewTransferRef()
	result := &Transfer{Ref: ref}

	err := s.write(func(tx *gorm.DB) error {
		from, err := activeWallet(tx, in.FromWalletID)
		if err != nil {
			return err
		}
		to, err := activeWallet(tx, in.ToWalletID)
		if err != nil {
			return err
		}
		if !from.AllowsOverdraft() && in.Amount.GreaterThan(from.Balance) {
			return apperrors.ErrInsufficientFunds
		}

		description := strings.TrimSpace(in.Description)
		result.Debit = models.Transaction{
			WalletID:             from.ID,
			Type:                 models.TransactionTypeTransfer,
			Amount:               in.Amount,
			Description:          fallback(description, "Transfer to "+to.Name),
			Date:                 date.UTC(),
			TransferRef:          &ref,
			TransferDirection:    models.TransferOutgoing,
			CounterpartyWalletID: &to.ID,
		}
		if err := post(tx, from, &result.Debit); err != nil {
			return err
		}

		if s.afterDebit != nil {
			if err := s.afterDebit(); err != nil {
				return err
			}
		}

		result.Credit = models.Transaction{
			WalletID:             to.ID,
			Type:                 models.TransactionTypeTransfer,
			Amount:               in.Amount,
			Description:          fallback(description, "Transfer from "+from.Name),
			Date:                 date.UTC(),
			TransferRef:          &ref,
			TransferDirection:    models.TransferIncoming,
			CounterpartyWalletID: &from.ID,
		}
		return post(tx, to, &result.Credit)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetTransactions lists transactions newest-first.
func (s *transactionService) GetTransactions(filter TransactionFilter) ([]models.Transaction, error) {
	q := applyTransactionFilters(s.db.Model(&models.Transaction{}), filter).Order("date DESC, created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var transactions []models.Transaction
	if err := q.Find(&transactions).Error; err != nil {
		return nil, internal(err)
	}
	return transactions, nil
}

// GetWalletTransactions returns one page of an active wallet's transactions, newest-first.
func (s *transactionService) GetWalletTransactions(walletID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	if _, err := activeWallet(s.db, walletID); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("wallet_id = ?", walletID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, internal(err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC, created_at DESC").
		Find(&transactions).Error; err != nil {
		return nil, internal(err)
	}

	result := pagination.NewPageResponse(transactions, page, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.WalletID != "" {
		q = q.Where("wallet_id = ?", f.WalletID)
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.FromDate != nil {
		q = q.Where("date >= ?", f.FromDate.UTC())
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", f.ToDate.UTC())
	}
	return q
}

// GetTransactionByID retrieves a transaction by ID.
func (s *transactionService) GetTransactionByID(id string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := first(s.db.Where("id = ?", id), &transaction, apperrors.ErrTransactionNotFound); err != nil {
		return nil, err
	}
	return &transaction, nil
}

// UpdateTransaction changes the soft fields of a transaction.
func (s *transactionService) UpdateTransaction(id string, in UpdateTransactionInput) (*models.Transaction, error) {
	var transaction models.Transaction
	err := s.write(func(tx *gorm.DB) error {
		if err := first(tx.Where("id = ?", id), &transaction, apperrors.ErrTransactionNotFound); err != nil {
			return err
		}
		if in.Description != nil {
			transaction.Description = strings.TrimSpace(*in.Description)
		}
		if in.Notes != nil {
			transaction.Notes = *in.Notes
		}
		if in.CategoryID != nil {
			transaction.CategoryID = normalizeID(in.CategoryID)
			if err := checkCategory(tx, transaction.CategoryID); err != nil {
				return err
			}
		}
		transaction.Touch()
		if err := tx.Save(&transaction).Error; err != nil {
			return internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}

// DeleteTransaction soft-deletes a transaction and reverses its balance
// effect. Deleting either leg of a transfer removes both legs. A leg whose
// wallet no longer exists is removed without a balance change.
func (s *transactionService) DeleteTransaction(id string) error {
	return s.write(func(tx *gorm.DB) error {
		var transaction models.Transaction
		if err := first(tx.Where("id = ?", id), &transaction, apperrors.ErrTransactionNotFound); err != nil {
			return err
		}

		legs := []models.Transaction{transaction}
		if transaction.IsTransferLeg() {
			legs = nil
			if err := tx.Where("transfer_ref = ?", *transaction.TransferRef).Find(&legs).Error; err != nil {
				return internal(err)
			}
		}

		for i := range legs {
			if err := reverse(tx, &legs[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetWalletBalanceHistory returns one end-of-day balance per day for the last
// days days, oldest first, by walking transactions backward from the current balance.
func (s *transactionService) GetWalletBalanceHistory(walletID string, days int) ([]BalancePoint, error) {
	if days < 1 || days > maxHistoryDays {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "days must be between 1 and 366")
	}

	wallet, err := activeWallet(s.db, walletID)
	if err != nil {
		return nil, err
	}

	today := startOfDay(s.clock())
	start := today.AddDate(0, 0, -(days - 1))

	var transactions []models.Transaction
	if err := s.db.Where("wallet_id = ? AND date >= ?", walletID, start).
		Order("date DESC").
		Find(&transactions).Error; err != nil {
		return nil, internal(err)
	}

	points := make([]BalancePoint, days)
	balance := wallet.Balance
	next := 0
	for i := 0; i < days; i++ {
		day := today.AddDate(0, 0, -i)
		end := day.AddDate(0, 0, 1)
		for next < len(transactions) && !transactions[next].Date.Before(end) {
			balance = balance.Sub(transactions[next].Effect())
			next++
		}
		points[days-1-i] = BalancePoint{Date: day, Balance: balance}
	}
	return points, nil
}

// importTransaction replays a snapshot transaction through the posting path.
// The owning wallet may be inactive; the counterparty of a transfer leg is
// not required to exist.
func (s *transactionService) importTransaction(t models.Transaction) (*models.Transaction, error) {
	if t.ID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "transaction id is required")
	}
	if !t.Type.Valid() {
		return nil, apperrors.ErrInvalidTransactionType
	}
	if !t.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	transaction := t
	transaction.Date = t.Date.UTC()
	transaction.DeletedAt = gorm.DeletedAt{}
	transaction.SyncMeta = models.SyncMeta{}

	err := s.write(func(tx *gorm.DB) error {
		if err := ensureAbsent(tx, &models.Transaction{}, transaction.ID); err != nil {
			return err
		}
		var wallet models.Wallet
		if err := first(tx.Where("id = ?", transaction.WalletID), &wallet, apperrors.ErrWalletNotFound); err != nil {
			return err
		}
		return post(tx, &wallet, &transaction)
	})
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}

// post inserts t and applies its effect to wallet. Both records are marked dirty.
func post(tx *gorm.DB, wallet *models.Wallet, t *models.Transaction) error {
	t.WalletID = wallet.ID
	t.Touch()
	if err := tx.Create(t).Error; err != nil {
		return internal(err)
	}

	wallet.Balance = wallet.Balance.Add(t.Effect())
	wallet.Touch()
	if err := tx.Save(wallet).Error; err != nil {
		return internal(err)
	}
	return nil
}

// reverse soft-deletes t and takes its effect back out of its wallet.
func reverse(tx *gorm.DB, t *models.Transaction) error {
	if err := tx.Delete(t).Error; err != nil {
		return internal(err)
	}

	var wallet models.Wallet
	err := tx.Where("id = ?", t.WalletID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return internal(err)
	}

	wallet.Balance = wallet.Balance.Sub(t.Effect())
	wallet.Touch()
	if err := tx.Save(&wallet).Error; err != nil {
		return internal(err)
	}
	return nil
}

func checkCategory(tx *gorm.DB, categoryID *string) error {
	if categoryID == nil {
		return nil
	}
	var category models.Category
	return first(tx.Where("id = ?", *categoryID), &category, apperrors.ErrCategoryNotFound)
}

func normalizeID(id *string) *string {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}
	v := strings.TrimSpace(*id)
	return &v
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// sumEffects adds up the signed effects of txns.
func sumEffects(txns []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for i := range txns {
		total = total.Add(txns[i].Effect())
	}
	return total
}
