package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/models"
	"pocketledger/internal/pagination"
	"pocketledger/internal/services"
)

// WalletHandler handles wallet-related requests.
type WalletHandler struct {
	wallets WalletFacade
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(wallets WalletFacade) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

// CreateWalletRequest represents the request payload for creating a wallet.
// A non-zero balance is booked as an opening transaction.
type CreateWalletRequest struct {
	Name    string            `json:"name" binding:"required,min=1,max=100"`
	Type    models.WalletType `json:"type" binding:"required,wallet_type"`
	Balance decimal.Decimal   `json:"balance"`
	Color   string            `json:"color" binding:"omitempty,hex_color"`
	Icon    string            `json:"icon" binding:"omitempty,max=50"`
}

// UpdateWalletRequest represents the request payload for updating a wallet.
type UpdateWalletRequest struct {
	Name  *string            `json:"name" binding:"omitempty,min=1,max=100"`
	Type  *models.WalletType `json:"type" binding:"omitempty,wallet_type"`
	Color *string            `json:"color" binding:"omitempty,hex_color"`
	Icon  *string            `json:"icon" binding:"omitempty,max=50"`
}

// CreateWallet handles the creation of a new wallet.
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	var req CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalid(err))
		return
	}

	wallet, err := h.wallets.CreateWallet(services.CreateWalletInput{
		Name:    req.Name,
		Type:    req.Type,
		Balance: req.Balance,
		Color:   req.Color,
		Icon:    req.Icon,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"wallet": wallet})
}

// GetWallets lists the active wallets.
func (h *WalletHandler) GetWallets(c *gin.Context) {
	wallets, err := h.wallets.GetWallets()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallets": wallets})
}

// GetWallet returns one wallet.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	wallet, err := h.wallets.GetWallet(id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

// UpdateWallet changes a wallet's descriptive fields.
func (h *WalletHandler) UpdateWallet(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalid(err))
		return
	}

	wallet, err := h.wallets.UpdateWallet(id, services.UpdateWalletInput{
		Name:  req.Name,
		Type:  req.Type,
		Color: req.Color,
		Icon:  req.Icon,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

// DeleteWallet deactivates a wallet.
func (h *WalletHandler) DeleteWallet(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.wallets.DeleteWallet(id); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Wallet deleted successfully"})
}

// GetWalletTransactions returns one page of a wallet's transactions, newest first.
func (h *WalletHandler) GetWalletTransactions(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, invalid(err))
		return
	}
	page.Defaults()

	result, err := h.wallets.GetWalletTransactions(id, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetBalanceHistory returns the end-of-day balances of a wallet. The window
// defaults to 30 days.
func (h *WalletHandler) GetBalanceHistory(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	days := 30
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 366 {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "days must be between 1 and 366"))
			return
		}
		days = n
	}

	history, err := h.wallets.GetWalletBalanceHistory(id, days)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}
