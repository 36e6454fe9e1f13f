package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/models"
	"pocketledger/internal/services"
	"pocketledger/internal/uuid"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactions TransactionFacade
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactions TransactionFacade) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

// CreateTransactionRequest represents the request payload for an income or expense.
type CreateTransactionRequest struct {
	WalletID    string                 `json:"wallet_id" binding:"required,uuid"`
	CategoryID  *string                `json:"category_id" binding:"omitempty,uuid"`
	Type        models.TransactionType `json:"type" binding:"required,entry_type"`
	Amount      decimal.Decimal        `json:"amount"`
	Description string                 `json:"description" binding:"max=255"`
	Notes       string                 `json:"notes" binding:"max=1000"`
	Date        *time.Time             `json:"date"`
}

// UpdateTransactionRequest represents the soft fields that can change after posting.
// An empty category_id clears the category.
type UpdateTransactionRequest struct {
	Description *string `json:"description" binding:"omitempty,max=255"`
	Notes       *string `json:"notes" binding:"omitempty,max=1000"`
	CategoryID  *string `json:"category_id"`
}

// TransferRequest represents the request payload for moving money between wallets.
type TransferRequest struct {
	FromWalletID string          `json:"from_wallet_id" binding:"required,uuid"`
	ToWalletID   string          `json:"to_wallet_id" binding:"required,uuid"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description" binding:"max=255"`
	Date         *time.Time      `json:"date"`
}

// CreateTransaction posts an income or expense.
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalid(err))
		return
	}
	if !req.Amount.IsPositive() {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero"))
		return
	}

	txn, err := h.transactions.CreateTransaction(services.CreateTransactionInput{
		WalletID:    req.WalletID,
		CategoryID:  req.CategoryID,
		Type:        req.Type,
		Amount:      req.Amount,
		Description: req.Description,
		Notes:       req.Notes,
		Date:        derefTime(req.Date),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": txn})
}

// TransferMoney posts both legs of a transfer.
func (h *TransactionHandler) TransferMoney(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalid(err))
		return
	}
	if !req.Amount.IsPositive() {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero"))
		return
	}

	transfer, err := h.transactions.TransferMoney(services.TransferInput{
		FromWalletID: req.FromWalletID,
		ToWalletID:   req.ToWalletID,
		Amount:       req.Amount,
		Description:  req.Description,
		Date:         derefTime(req.Date),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transfer": transfer})
}

// GetTransactions lists transactions, newest first.
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	txns, err := h.transactions.GetTransactions(filter)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

// GetTransaction returns one transaction.
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	txn, err := h.transactions.GetTransaction(id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": txn})
}

// UpdateTransaction changes description, notes or category.
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalid(err))
		return
	}
	if req.CategoryID != nil && *req.CategoryID != "" && !uuid.IsValid(*req.CategoryID) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid category_id"))
		return
	}

	txn, err := h.transactions.UpdateTransaction(id, services.UpdateTransactionInput{
		Description: req.Description,
		Notes:       req.Notes,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": txn})
}

// DeleteTransaction removes a transaction and reverses its balance effect.
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactions.DeleteTransaction(id); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}

func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter

	if v := c.Query("wallet_id"); v != "" {
		if !uuid.IsValid(v) {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid wallet_id")
		}
		filter.WalletID = v
	}

	if v := c.Query("from_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid from_date format, use RFC3339 or YYYY-MM-DD")
		}
		filter.FromDate = &t
	}

	if v := c.Query("to_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid to_date format, use RFC3339 or YYYY-MM-DD")
		}
		filter.ToDate = &t
	}

	if v := c.Query("type"); v != "" {
		txType := models.TransactionType(v)
		if !txType.Valid() {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid type, must be INCOME, EXPENSE or TRANSFER")
		}
		filter.Type = &txType
	}

	if v := c.Query("category_id"); v != "" {
		if !uuid.IsValid(v) {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid category_id")
		}
		filter.CategoryID = &v
	}

	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "limit must be between 1 and 500")
		}
		filter.Limit = n
	}

	return filter, nil
}
