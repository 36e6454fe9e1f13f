package services

import (
	"strings"
	"time"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// budgetService handles budget-related business logic.
type budgetService struct {
	*store
}

// CreateBudget creates a new active budget, optionally scoped to a category.
func (s *budgetService) CreateBudget(in BudgetInput) (*models.Budget, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget name is required")
	}
	if !in.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if !in.Period.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown budget period")
	}

	startDate := in.StartDate
	if startDate.IsZero() {
		startDate = s.clock()
	}

	budget := &models.Budget{
		Name:       name,
		CategoryID: normalizeID(in.CategoryID),
		Amount:     in.Amount,
		Period:     in.Period,
		StartDate:  startDate.UTC(),
		IsActive:   true,
	}
	budget.Touch()

	err := s.write(func(tx *gorm.DB) error {
		// Verify category exists
		if err := checkCategory(tx, budget.CategoryID); err != nil {
			return err
		}
		if err := tx.Create(budget).Error; err != nil {
			return internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return budget, nil
}

// GetBudgets returns budgets ordered by name, optionally only the active ones.
func (s *budgetService) GetBudgets(activeOnly bool) ([]models.Budget, error) {
	q := s.db.Model(&models.Budget{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}

	var budgets []models.Budget
	if err := q.Order("name ASC").Find(&budgets).Error; err != nil {
		return nil, internal(err)
	}
	return budgets, nil
}

// GetBudgetByID returns a budget by ID.
func (s *budgetService) GetBudgetByID(id string) (*models.Budget, error) {
	var budget models.Budget
	if err := first(s.db.Where("id = ?", id), &budget, apperrors.ErrBudgetNotFound); err != nil {
		return nil, err
	}
	return &budget, nil
}

// UpdateBudget updates an existing budget's fields.
func (s *budgetService) UpdateBudget(id string, in BudgetUpdate) (*models.Budget, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget name cannot be empty")
	}
	if in.Amount != nil && !in.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if in.Period != nil && !in.Period.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown budget period")
	}

	var budget models.Budget
	err := s.write(func(tx *gorm.DB) error {
		if err := first(tx.Where("id = ?", id), &budget, apperrors.ErrBudgetNotFound); err != nil {
			return err
		}

		updates := make(map[string]interface{})
		if in.Name != nil {
			updates["name"] = strings.TrimSpace(*in.Name)
		}
		if in.Amount != nil {
			updates["amount"] = *in.Amount
		}
		if in.Period != nil {
			updates["period"] = *in.Period
		}
		if in.IsActive != nil {
			updates["is_active"] = *in.IsActive
		}
		if len(updates) == 0 {
			return nil
		}
		touchColumns(&budget.SyncMeta, updates)
		if err := tx.Model(&budget).Updates(updates).Error; err != nil {
			return internal(err)
		}
		return first(tx.Where("id = ?", id), &budget, apperrors.ErrBudgetNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &budget, nil
}

// DeleteBudget soft-deletes a budget.
func (s *budgetService) DeleteBudget(id string) error {
	return s.write(func(tx *gorm.DB) error {
		return softDelete(tx, &models.Budget{}, id, apperrors.ErrBudgetNotFound)
	})
}

// GetBudgetProgress calculates spending vs budget for the current period.
func (s *budgetService) GetBudgetProgress(id string) (*BudgetProgress, error) {
	budget, err := s.GetBudgetByID(id)
	if err != nil {
		return nil, err
	}

	// Determine current period window
	periodStart, periodEnd := budget.Period.Window(s.clock())

	q := s.db.Where("type = ? AND date >= ? AND date < ?", models.TransactionTypeExpense, periodStart, periodEnd)
	if budget.CategoryID != nil {
		q = q.Where("category_id = ?", *budget.CategoryID)
	}
	var expenses []models.Transaction
	if err := q.Find(&expenses).Error; err != nil {
		return nil, internal(err)
	}

	// Amounts are summed here rather than in SQL so sqlite's float
	// arithmetic never touches money.
	spent := decimal.Zero
	for _, e := range expenses {
		spent = spent.Add(e.Amount)
	}

	var percentage float64
	if budget.Amount.IsPositive() {
		percentage = spent.Div(budget.Amount).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}

	return &BudgetProgress{
		BudgetID:    budget.ID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd.Add(-time.Nanosecond),
		Budgeted:    budget.Amount,
		Spent:       spent,
		Remaining:   budget.Amount.Sub(spent),
		Percentage:  percentage,
	}, nil
}
