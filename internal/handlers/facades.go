package handlers

import (
	"context"

	"pocketledger/internal/app"
	"pocketledger/internal/models"
	"pocketledger/internal/pagination"
	"pocketledger/internal/progress"
	"pocketledger/internal/services"
	"pocketledger/internal/syncer"
	"pocketledger/internal/syncstatus"

	"github.com/shopspring/decimal"
)

// WalletFacade is the part of the app the wallet handler needs.
type WalletFacade interface {
	CreateWallet(in services.CreateWalletInput) (*app.WalletView, error)
	GetWallets() ([]app.WalletView, error)
	GetWallet(id string) (*app.WalletView, error)
	UpdateWallet(id string, in services.UpdateWalletInput) (*app.WalletView, error)
	DeleteWallet(id string) error
	GetWalletBalanceHistory(walletID string, days int) ([]services.BalancePoint, error)
	GetWalletTransactions(walletID string, page pagination.PageRequest) (*pagination.PageResponse[app.TransactionView], error)
}

// TransactionFacade is the part of the app the transaction handler needs.
type TransactionFacade interface {
	CreateTransaction(in services.CreateTransactionInput) (*app.TransactionView, error)
	TransferMoney(in services.TransferInput) (*app.TransferView, error)
	GetTransactions(filter services.TransactionFilter) ([]app.TransactionView, error)
	GetTransaction(id string) (*app.TransactionView, error)
	UpdateTransaction(id string, in services.UpdateTransactionInput) (*app.TransactionView, error)
	DeleteTransaction(id string) error
}

// CategoryFacade is the part of the app the category handler needs.
type CategoryFacade interface {
	CreateCategory(name, icon, color string) (*models.Category, error)
	GetCategories() ([]models.Category, error)
	DeleteCategory(id string) error
}

// BudgetFacade is the part of the app the budget handler needs.
type BudgetFacade interface {
	CreateBudget(in services.BudgetInput) (*models.Budget, error)
	GetBudgets(activeOnly bool) ([]models.Budget, error)
	GetBudget(id string) (*models.Budget, error)
	UpdateBudget(id string, in services.BudgetUpdate) (*models.Budget, error)
	DeleteBudget(id string) error
	GetBudgetProgress(id string) (*services.BudgetProgress, error)
}

// PlanningFacade is the part of the app the planning handler needs.
type PlanningFacade interface {
	CreateBill(in services.BillInput) (*models.Bill, error)
	GetBills(includePaid bool) ([]models.Bill, error)
	MarkBillPaid(id string) (*models.Bill, error)
	DeleteBill(id string) error
	CreateReminder(in services.ReminderInput) (*models.Reminder, error)
	GetReminders() ([]models.Reminder, error)
	DeleteReminder(id string) error
	PostDueReminders() ([]app.TransactionView, error)
	CreateGoal(in services.GoalInput) (*models.Goal, error)
	GetGoals() ([]models.Goal, error)
	ContributeToGoal(id string, amount decimal.Decimal) (*models.Goal, error)
	DeleteGoal(id string) error
}

// SyncFacade is the part of the app the sync handler needs.
type SyncFacade interface {
	EnableSync(ctx context.Context) error
	DisableSync(ctx context.Context) error
	SetAutoSync(ctx context.Context, enabled bool) error
	SetReminderInterval(ctx context.Context, days int) error
	GetSyncConfig(ctx context.Context) (*syncstatus.Config, error)
	GetSyncStatus(ctx context.Context) (*syncstatus.Status, error)
	PerformManualSync(ctx context.Context) (*syncer.Result, error)
	RestoreFromCloud(ctx context.Context, opts syncer.RestoreOptions) (*syncer.Result, error)
	ResolveConflicts(ctx context.Context, strategy syncer.Strategy) (*syncer.Result, error)
	DeleteCloudBackup(ctx context.Context) error
	ShouldShowSyncReminder(ctx context.Context) (bool, error)
	MarkReminderShown(ctx context.Context) error
	CancelSync()
	Progress() *progress.Channel
}

// SessionFacade is the part of the app the session and settings handlers need.
type SessionFacade interface {
	SetSessionToken(ctx context.Context, token string) error
	ClearSessionToken(ctx context.Context) error
	IsAuthenticated(ctx context.Context) (bool, error)
	GetSettings(ctx context.Context) (map[string]string, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}

var (
	_ WalletFacade      = (*app.App)(nil)
	_ TransactionFacade = (*app.App)(nil)
	_ CategoryFacade    = (*app.App)(nil)
	_ BudgetFacade      = (*app.App)(nil)
	_ PlanningFacade    = (*app.App)(nil)
	_ SyncFacade        = (*app.App)(nil)
	_ SessionFacade     = (*app.App)(nil)
)

var _ Facade = (*app.App)(nil)
