package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"pocketledger/internal/app"
	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/models"
	"pocketledger/internal/services"
)

type mockPlanning struct {
	createBillFn       func(in services.BillInput) (*models.Bill, error)
	getBillsFn         func(includePaid bool) ([]models.Bill, error)
	markBillPaidFn     func(id string) (*models.Bill, error)
	createReminderFn   func(in services.ReminderInput) (*models.Reminder, error)
	postDueRemindersFn func() ([]app.TransactionView, error)
	createGoalFn       func(in services.GoalInput) (*models.Goal, error)
	contributeFn       func(id string, amount decimal.Decimal) (*models.Goal, error)
	deleteGoalFn       func(id string) error
}

func (m *mockPlanning) CreateBill(in services.BillInput) (*models.Bill, error) {
	if m.createBillFn != nil {
		return m.createBillFn(in)
	}
	return &models.Bill{}, nil
}

func (m *mockPlanning) GetBills(includePaid bool) ([]models.Bill, error) {
	if m.getBillsFn != nil {
		return m.getBillsFn(includePaid)
	}
	return []models.Bill{}, nil
}

func (m *mockPlanning) MarkBillPaid(id string) (*models.Bill, error) {
	if m.markBillPaidFn != nil {
		return m.markBillPaidFn(id)
	}
	return &models.Bill{}, nil
}

func (m *mockPlanning) DeleteBill(string) error { return nil }

func (m *mockPlanning) CreateReminder(in services.ReminderInput) (*models.Reminder, error) {
	if m.createReminderFn != nil {
		return m.createReminderFn(in)
	}
	return &models.Reminder{}, nil
}

func (m *mockPlanning) GetReminders() ([]models.Reminder, error) { return []models.Reminder{}, nil }

func (m *mockPlanning) DeleteReminder(string) error { return nil }

func (m *mockPlanning) PostDueReminders() ([]app.TransactionView, error) {
	if m.postDueRemindersFn != nil {
		return m.postDueRemindersFn()
	}
	return []app.TransactionView{}, nil
}

func (m *mockPlanning) CreateGoal(in services.GoalInput) (*models.Goal, error) {
	if m.createGoalFn != nil {
		return m.createGoalFn(in)
	}
	return &models.Goal{}, nil
}

func (m *mockPlanning) GetGoals() ([]models.Goal, error) { return []models.Goal{}, nil }

func (m *mockPlanning) ContributeToGoal(id string, amount decimal.Decimal) (*models.Goal, error) {
	if m.contributeFn != nil {
		return m.contributeFn(id, amount)
	}
	return &models.Goal{}, nil
}

func (m *mockPlanning) DeleteGoal(id string) error {
	if m.deleteGoalFn != nil {
		return m.deleteGoalFn(id)
	}
	return nil
}

var _ PlanningFacade = (*mockPlanning)(nil)

func setupPlanningRouter(handler *PlanningHandler) *gin.Engine {
	r := gin.New()
	r.POST("/bills", handler.CreateBill)
	r.GET("/bills", handler.GetBills)
	r.POST("/bills/:id/pay", handler.PayBill)
	r.POST("/reminders", handler.CreateReminder)
	r.POST("/reminders/post-due", handler.PostDueReminders)
	r.POST("/goals", handler.CreateGoal)
	r.POST("/goals/:id/contribute", handler.ContributeToGoal)
	r.DELETE("/goals/:id", handler.DeleteGoal)
	return r
}

func TestPlanningHandler_Bills(t *testing.T) {
	t.Run("create returns 201", func(t *testing.T) {
		var got services.BillInput
		mock := &mockPlanning{
			createBillFn: func(in services.BillInput) (*models.Bill, error) {
				got = in
				return &models.Bill{Name: in.Name, Amount: in.Amount, Frequency: in.Frequency}, nil
			},
		}
		r := setupPlanningRouter(NewPlanningHandler(mock))
		rec := doRequest(r, "POST", "/bills", `{"name":"Rent","amount":"1200","due_date":"2026-04-01T00:00:00Z","frequency":"monthly"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Frequency != models.FrequencyMonthly || got.DueDate.IsZero() {
			t.Errorf("unexpected input: %+v", got)
		}
	})

	t.Run("create returns 400 on bad frequency", func(t *testing.T) {
		r := setupPlanningRouter(NewPlanningHandler(&mockPlanning{}))
		rec := doRequest(r, "POST", "/bills", `{"name":"Rent","amount":"1200","due_date":"2026-04-01T00:00:00Z","frequency":"hourly"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("list honours include_paid", func(t *testing.T) {
		var got bool
		mock := &mockPlanning{
			getBillsFn: func(includePaid bool) ([]models.Bill, error) {
				got = includePaid
				return []models.Bill{}, nil
			},
		}
		r := setupPlanningRouter(NewPlanningHandler(mock))
		doRequest(r, "GET", "/bills?include_paid=true", "")
		if !got {
			t.Error("expected include_paid to be forwarded")
		}
	})

	t.Run("pay returns 404 when not found", func(t *testing.T) {
		mock := &mockPlanning{
			markBillPaidFn: func(string) (*models.Bill, error) { return nil, apperrors.ErrBillNotFound },
		}
		r := setupPlanningRouter(NewPlanningHandler(mock))
		rec := doRequest(r, "POST", "/bills/"+walletID+"/pay", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "BILL_NOT_FOUND")
	})
}

func TestPlanningHandler_Reminders(t *testing.T) {
	t.Run("create returns 201", func(t *testing.T) {
		var got services.ReminderInput
		mock := &mockPlanning{
			createReminderFn: func(in services.ReminderInput) (*models.Reminder, error) {
				got = in
				return &models.Reminder{}, nil
			},
		}
		r := setupPlanningRouter(NewPlanningHandler(mock))
		rec := doRequest(r, "POST", "/reminders",
			`{"title":"Salary","type":"INCOME","amount":3000,"wallet_id":"`+walletID+`","frequency":"monthly","next_due":"2026-04-25T09:00:00Z","auto_post":true}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !got.AutoPost || got.Type != models.TransactionTypeIncome {
			t.Errorf("unexpected input: %+v", got)
		}
	})

	t.Run("create returns 400 without next_due", func(t *testing.T) {
		r := setupPlanningRouter(NewPlanningHandler(&mockPlanning{}))
		rec := doRequest(r, "POST", "/reminders",
			`{"title":"Salary","type":"INCOME","amount":3000,"wallet_id":"`+walletID+`","frequency":"monthly"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("post-due returns the posted count", func(t *testing.T) {
		mock := &mockPlanning{
			postDueRemindersFn: func() ([]app.TransactionView, error) {
				return []app.TransactionView{{SyncStatus: models.SyncStatePendingSync}, {SyncStatus: models.SyncStatePendingSync}}, nil
			},
		}
		r := setupPlanningRouter(NewPlanningHandler(mock))
		rec := doRequest(r, "POST", "/reminders/post-due", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if parseJSON(t, rec)["count"] != float64(2) {
			t.Errorf("expected count 2, got %s", rec.Body.String())
		}
	})
}

func TestPlanningHandler_Goals(t *testing.T) {
	t.Run("create returns 400 on zero target", func(t *testing.T) {
		r := setupPlanningRouter(NewPlanningHandler(&mockPlanning{}))
		rec := doRequest(r, "POST", "/goals", `{"name":"Holiday","target_amount":0}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("contribute forwards the amount", func(t *testing.T) {
		var got decimal.Decimal
		mock := &mockPlanning{
			contributeFn: func(_ string, amount decimal.Decimal) (*models.Goal, error) {
				got = amount
				return &models.Goal{CurrentAmount: amount}, nil
			},
		}
		r := setupPlanningRouter(NewPlanningHandler(mock))
		rec := doRequest(r, "POST", "/goals/"+walletID+"/contribute", `{"amount":"12.50"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !got.Equal(decimal.RequireFromString("12.5")) {
			t.Errorf("expected 12.5, got %s", got)
		}
	})

	t.Run("delete returns 404 when not found", func(t *testing.T) {
		mock := &mockPlanning{
			deleteGoalFn: func(string) error { return apperrors.ErrGoalNotFound },
		}
		r := setupPlanningRouter(NewPlanningHandler(mock))
		rec := doRequest(r, "DELETE", "/goals/"+walletID, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
