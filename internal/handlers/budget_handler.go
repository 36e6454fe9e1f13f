package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/models"
	"pocketledger/internal/services"
)

// BudgetHandler handles budget-related requests.
type BudgetHandler struct {
	budgets BudgetFacade
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(budgets BudgetFacade) *BudgetHandler {
	return &BudgetHandler{budgets: budgets}
}

// CreateBudgetRequest represents the request payload for creating a budget.
// Without a category the budget covers all expenses.
type CreateBudgetRequest struct {
	Name       string              `json:"name" binding:"required,min=1,max=100"`
	CategoryID *string             `json:"category_id" binding:"omitempty,uuid"`
	Amount     decimal.Decimal     `json:"amount"`
	Period     models.BudgetPeriod `json:"period" binding:"required,budget_period"`
	StartDate  *time.Time          `json:"start_date"`
}

// UpdateBudgetRequest represents the request payload for updating a budget.
type UpdateBudgetRequest struct {
	Name     *string              `json:"name" binding:"omitempty,min=1,max=100"`
	Amount   *decimal.Decimal     `json:"amount"`
	Period   *models.BudgetPeriod `json:"period" binding:"omitempty,budget_period"`
	IsActive *bool                `json:"is_active"`
}

// CreateBudget handles the creation of a new budget.
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	var req CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalid(err))
		return
	}
	if !req.Amount.IsPositive() {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero"))
		return
	}

	budget, err := h.budgets.CreateBudget(services.BudgetInput{
		Name:       req.Name,
		CategoryID: req.CategoryID,
		Amount:     req.Amount,
		Period:     req.Period,
		StartDate:  derefTime(req.StartDate),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"budget": budget})
}

// GetBudgets handles listing budgets.
func (h *BudgetHandler) GetBudgets(c *gin.Context) {
	activeOnly := false
	if v := c.Query("is_active"); v != "" {
		switch v {
		case "true":
			activeOnly = true
		case "false":
		default:
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "is_active must be 'true' or 'false'"))
			return
		}
	}

	budgets, err := h.budgets.GetBudgets(activeOnly)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budgets": budgets})
}

// GetBudget handles retrieving a specific budget.
func (h *BudgetHandler) GetBudget(c *gin.Context) {
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgets.GetBudget(budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// UpdateBudget handles updating an existing budget.
func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalid(err))
		return
	}
	if req.Amount != nil && !req.Amount.IsPositive() {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero"))
		return
	}

	budget, err := h.budgets.UpdateBudget(budgetID, services.BudgetUpdate{
		Name:     req.Name,
		Amount:   req.Amount,
		Period:   req.Period,
		IsActive: req.IsActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// DeleteBudget handles deleting a budget.
func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.budgets.DeleteBudget(budgetID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Budget deleted successfully"})
}

// GetBudgetProgress handles retrieving the spending progress for a budget.
func (h *BudgetHandler) GetBudgetProgress(c *gin.Context) {
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	progress, err := h.budgets.GetBudgetProgress(budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": progress})
}
