package services

import (
	"strings"
	"time"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/logger"
	"pocketledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// maxCatchUp bounds how many missed occurrences of one reminder are posted at once.
const maxCatchUp = 366

// planningService handles bills, recurring reminders and savings goals.
type planningService struct {
	*store
}

// CreateBill creates an unpaid bill.
func (s *planningService) CreateBill(in BillInput) (*models.Bill, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "bill name is required")
	}
	if !in.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if in.DueDate.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "due date is required")
	}
	if in.Frequency == "" {
		in.Frequency = models.FrequencyOnce
	}
	if !in.Frequency.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown frequency")
	}

	bill := &models.Bill{
		Name:       name,
		Amount:     in.Amount,
		DueDate:    in.DueDate.UTC(),
		Frequency:  in.Frequency,
		WalletID:   normalizeID(in.WalletID),
		CategoryID: normalizeID(in.CategoryID),
	}
	bill.Touch()

	err := s.write(func(tx *gorm.DB) error {
		if bill.WalletID != nil {
			if _, err := activeWallet(tx, *bill.WalletID); err != nil {
				return err
			}
		}
		if err := checkCategory(tx, bill.CategoryID); err != nil {
			return err
		}
		if err := tx.Create(bill).Error; err != nil {
			return internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// GetBills returns bills ordered by due date.
func (s *planningService) GetBills(includePaid bool) ([]models.Bill, error) {
	q := s.db.Model(&models.Bill{})
	if !includePaid {
		q = q.Where("is_paid = ?", false)
	}

	var bills []models.Bill
	if err := q.Order("due_date ASC").Find(&bills).Error; err != nil {
		return nil, internal(err)
	}
	return bills, nil
}

// MarkBillPaid records a payment. Recurring bills move to their next due
// date and stay open; one-off bills are closed.
func (s *planningService) MarkBillPaid(id string) (*models.Bill, error) {
	var bill models.Bill
	err := s.write(func(tx *gorm.DB) error {
		if err := first(tx.Where("id = ?", id), &bill, apperrors.ErrBillNotFound); err != nil {
			return err
		}
		if bill.IsPaid {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "bill is already paid")
		}

		now := s.clock()
		bill.LastPaidAt = &now
		if next := bill.Frequency.Next(bill.DueDate); next != nil {
			bill.DueDate = *next
		} else {
			bill.IsPaid = true
		}
		bill.Touch()
		if err := tx.Save(&bill).Error; err != nil {
			return internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

// DeleteBill soft-deletes a bill.
func (s *planningService) DeleteBill(id string) error {
	return s.remove(&models.Bill{}, id, apperrors.ErrBillNotFound)
}

// CreateReminder creates an active recurring income or expense.
func (s *planningService) CreateReminder(in ReminderInput) (*models.Reminder, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "reminder title is required")
	}
	if in.Type != models.TransactionTypeIncome && in.Type != models.TransactionTypeExpense {
		return nil, apperrors.ErrInvalidTransactionType
	}
	if !in.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if !in.Frequency.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown frequency")
	}

	nextDue := in.NextDue
	if nextDue.IsZero() {
		nextDue = s.clock()
	}

	reminder := &models.Reminder{
		Title:      title,
		Type:       in.Type,
		Amount:     in.Amount,
		WalletID:   in.WalletID,
		CategoryID: normalizeID(in.CategoryID),
		Frequency:  in.Frequency,
		NextDue:    nextDue.UTC(),
		AutoPost:   in.AutoPost,
		IsActive:   true,
	}
	reminder.Touch()

	err := s.write(func(tx *gorm.DB) error {
		if _, err := activeWallet(tx, in.WalletID); err != nil {
			return err
		}
		if err := checkCategory(tx, reminder.CategoryID); err != nil {
			return err
		}
		if err := tx.Create(reminder).Error; err != nil {
			return internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reminder, nil
}

// GetReminders returns active reminders ordered by next due date.
func (s *planningService) GetReminders() ([]models.Reminder, error) {
	var reminders []models.Reminder
	if err := s.db.Where("is_active = ?", true).Order("next_due ASC").Find(&reminders).Error; err != nil {
		return nil, internal(err)
	}
	return reminders, nil
}

// DeleteReminder soft-deletes a reminder. Transactions it already posted stay.
func (s *planningService) DeleteReminder(id string) error {
	return s.remove(&models.Reminder{}, id, apperrors.ErrReminderNotFound)
}

// PostDueReminders posts every due occurrence of the active auto-post
// reminders as regular transactions and advances each reminder. An
// occurrence that already has a live transaction, posted here or merged in
// from another device, is not posted again. Each reminder is posted in its
// own database transaction; a reminder whose wallet is gone is skipped and
// logged.
func (s *planningService) PostDueReminders() ([]models.Transaction, error) {
	log := logger.Named("planning")
	now := s.clock()

	var due []models.Reminder
	if err := s.db.Where("is_active = ? AND auto_post = ? AND next_due <= ?", true, true, now).
		Order("next_due ASC").
		Find(&due).Error; err != nil {
		return nil, internal(err)
	}

	var posted []models.Transaction
	for _, r := range due {
		var batch []models.Transaction
		err := s.write(func(tx *gorm.DB) error {
			reminder := r
			wallet, err := activeWallet(tx, reminder.WalletID)
			if err != nil {
				return err
			}
			occurrences, err := postedOccurrences(tx, reminder.ID)
			if err != nil {
				return err
			}

			for i := 0; i < maxCatchUp && reminder.IsActive && !reminder.NextDue.After(now); i++ {
				if _, done := occurrences[reminder.NextDue.UnixNano()]; !done {
					t := models.Transaction{
						CategoryID:  reminder.CategoryID,
						Type:        reminder.Type,
						Amount:      reminder.Amount,
						Description: reminder.Title,
						Date:        reminder.NextDue,
						ReminderID:  &reminder.ID,
					}
					if err := post(tx, wallet, &t); err != nil {
						return err
					}
					batch = append(batch, t)
				}

				postedAt := now
				reminder.LastPostedAt = &postedAt
				if next := reminder.Frequency.Next(reminder.NextDue); next != nil {
					reminder.NextDue = *next
				} else {
					reminder.IsActive = false
				}
			}

			reminder.Touch()
			if err := tx.Save(&reminder).Error; err != nil {
				return internal(err)
			}
			return nil
		})
		if err != nil {
			log.Warnw("skipping reminder", "reminder_id", r.ID, "error", err)
			continue
		}
		posted = append(posted, batch...)
	}
	return posted, nil
}

// postedOccurrences returns the dates, as UnixNano, of the live
// transactions already posted for a reminder.
func postedOccurrences(tx *gorm.DB, reminderID string) (map[int64]struct{}, error) {
	var dates []time.Time
	if err := tx.Model(&models.Transaction{}).Where("reminder_id = ?", reminderID).Pluck("date", &dates).Error; err != nil {
		return nil, internal(err)
	}
	seen := make(map[int64]struct{}, len(dates))
	for _, d := range dates {
		seen[d.UnixNano()] = struct{}{}
	}
	return seen, nil
}

// CreateGoal creates a savings goal.
func (s *planningService) CreateGoal(in GoalInput) (*models.Goal, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "goal name is required")
	}
	if !in.TargetAmount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target amount must be greater than zero")
	}

	goal := &models.Goal{
		Name:          name,
		TargetAmount:  in.TargetAmount,
		CurrentAmount: decimal.Zero,
		Deadline:      in.Deadline,
		WalletID:      normalizeID(in.WalletID),
	}
	goal.Touch()

	err := s.write(func(tx *gorm.DB) error {
		if goal.WalletID != nil {
			if _, err := activeWallet(tx, *goal.WalletID); err != nil {
				return err
			}
		}
		if err := tx.Create(goal).Error; err != nil {
			return internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return goal, nil
}

// GetGoals returns all goals, open ones first.
func (s *planningService) GetGoals() ([]models.Goal, error) {
	var goals []models.Goal
	if err := s.db.Order("is_completed ASC, created_at ASC").Find(&goals).Error; err != nil {
		return nil, internal(err)
	}
	return goals, nil
}

// ContributeToGoal adds amount to a goal's saved total and completes the goal
// once the target is reached.
func (s *planningService) ContributeToGoal(id string, amount decimal.Decimal) (*models.Goal, error) {
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	var goal models.Goal
	err := s.write(func(tx *gorm.DB) error {
		if err := first(tx.Where("id = ?", id), &goal, apperrors.ErrGoalNotFound); err != nil {
			return err
		}
		goal.CurrentAmount = goal.CurrentAmount.Add(amount)
		goal.IsCompleted = !goal.CurrentAmount.LessThan(goal.TargetAmount)
		goal.Touch()
		if err := tx.Save(&goal).Error; err != nil {
			return internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

// DeleteGoal soft-deletes a goal.
func (s *planningService) DeleteGoal(id string) error {
	return s.remove(&models.Goal{}, id, apperrors.ErrGoalNotFound)
}

func (s *planningService) remove(model interface{}, id string, notFound *apperrors.AppError) error {
	return s.write(func(tx *gorm.DB) error {
		return softDelete(tx, model, id, notFound)
	})
}
