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

// PlanningHandler handles bills, recurring reminders and savings goals.
type PlanningHandler struct {
	planning PlanningFacade
}

// NewPlanningHandler creates a new PlanningHandler.
func NewPlanningHandler(planning PlanningFacade) *PlanningHandler {
	return &PlanningHandler{planning: planning}
}

// CreateBillRequest represents the request payload for creating a bill.
type CreateBillRequest struct {
	Name       string           `json:"name" binding:"required,min=1,max=100"`
	Amount     decimal.Decimal  `json:"amount"`
	DueDate    time.Time        `json:"due_date" binding:"required"`
	Frequency  models.Frequency `json:"frequency" binding:"required,frequency"`
	WalletID   *string          `json:"wallet_id" binding:"omitempty,uuid"`
	CategoryID *string          `json:"category_id" binding:"omitempty,uuid"`
}

// CreateReminderRequest represents the request payload for a recurring income or expense.
type CreateReminderRequest struct {
	Title      string                 `json:"title" binding:"required,min=1,max=100"`
	Type       models.TransactionType `json:"type" binding:"required,entry_type"`
	Amount     decimal.Decimal        `json:"amount"`
	WalletID   string                 `json:"wallet_id" binding:"required,uuid"`
	CategoryID *string                `json:"category_id" binding:"omitempty,uuid"`
	Frequency  models.Frequency       `json:"frequency" binding:"required,frequency"`
	NextDue    time.Time              `json:"next_due" binding:"required"`
	AutoPost   bool                   `json:"auto_post"`
}

// CreateGoalRequest represents the request payload for a savings goal.
type CreateGoalRequest struct {
	Name         string          `json:"name" binding:"required,min=1,max=100"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	Deadline     *time.Time      `json:"deadline"`
	WalletID     *string         `json:"wallet_id" binding:"omitempty,uuid"`
}

// ContributeRequest represents money put towards a goal.
type ContributeRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func requirePositive(c *gin.Context, d decimal.Decimal, field string) bool {
	if d.IsPositive() {
		return true
	}
	respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, field+" must be greater than zero"))
	return false
}

// CreateBill handles the creation of a bill.
func (h *PlanningHandler) CreateBill(c *gin.Context) {
	var req CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalid(err))
		return
	}
	if !requirePositive(c, req.Amount, "amount") {
		return
	}

	bill, err := h.planning.CreateBill(services.BillInput{
		Name:       req.Name,
		Amount:     req.Amount,
		DueDate:    req.DueDate,
		Frequency:  req.Frequency,
		WalletID:   req.WalletID,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"bill": bill})
}

// GetBills lists open bills, or all bills with include_paid=true.
func (h *PlanningHandler) GetBills(c *gin.Context) {
	bills, err := h.planning.GetBills(c.Query("include_paid") == "true")
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bills": bills})
}

// PayBill marks a bill paid. Recurring bills roll over to their next due date.
func (h *PlanningHandler) PayBill(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	bill, err := h.planning.MarkBillPaid(id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bill": bill})
}

// DeleteBill removes a bill.
func (h *PlanningHandler) DeleteBill(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.planning.DeleteBill(id); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bill deleted successfully"})
}

// CreateReminder handles the creation of a recurring reminder.
func (h *PlanningHandler) CreateReminder(c *gin.Context) {
	var req CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalid(err))
		return
	}
	if !requirePositive(c, req.Amount, "amount") {
		return
	}

	reminder, err := h.planning.CreateReminder(services.ReminderInput{
		Title:      req.Title,
		Type:       req.Type,
		Amount:     req.Amount,
		WalletID:   req.WalletID,
		CategoryID: req.CategoryID,
		Frequency:  req.Frequency,
		NextDue:    req.NextDue,
		AutoPost:   req.AutoPost,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reminder": reminder})
}

// GetReminders lists reminders.
func (h *PlanningHandler) GetReminders(c *gin.Context) {
	reminders, err := h.planning.GetReminders()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminders": reminders})
}

// DeleteReminder removes a reminder.
func (h *PlanningHandler) DeleteReminder(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.planning.DeleteReminder(id); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reminder deleted successfully"})
}

// PostDueReminders books every due auto-post reminder.
func (h *PlanningHandler) PostDueReminders(c *gin.Context) {
	posted, err := h.planning.PostDueReminders()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": posted, "count": len(posted)})
}

// CreateGoal handles the creation of a savings goal.
func (h *PlanningHandler) CreateGoal(c *gin.Context) {
	var req CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalid(err))
		return
	}
	if !requirePositive(c, req.TargetAmount, "target_amount") {
		return
	}

	goal, err := h.planning.CreateGoal(services.GoalInput{
		Name:         req.Name,
		TargetAmount: req.TargetAmount,
		Deadline:     req.Deadline,
		WalletID:     req.WalletID,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"goal": goal})
}

// GetGoals lists savings goals.
func (h *PlanningHandler) GetGoals(c *gin.Context) {
	goals, err := h.planning.GetGoals()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goals": goals})
}

// ContributeToGoal adds money to a goal.
func (h *PlanningHandler) ContributeToGoal(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ContributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalid(err))
		return
	}
	if !requirePositive(c, req.Amount, "amount") {
		return
	}

	goal, err := h.planning.ContributeToGoal(id, req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// DeleteGoal removes a goal.
func (h *PlanningHandler) DeleteGoal(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.planning.DeleteGoal(id); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Goal deleted successfully"})
}
