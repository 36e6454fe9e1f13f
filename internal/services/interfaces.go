package services

import (
	"time"

	"pocketledger/internal/models"
	"pocketledger/internal/pagination"
	"pocketledger/internal/snapshot"

	"github.com/shopspring/decimal"
)

// CreateWalletInput holds the attributes of a new wallet. A non-zero Balance
// is posted as an opening-balance transaction.
type CreateWalletInput struct {
	Name    string
	Type    models.WalletType
	Balance decimal.Decimal
	Color   string
	Icon    string
}

// UpdateWalletInput holds the optional wallet fields to change. Balance is
// not editable; it only moves through postings.
type UpdateWalletInput struct {
	Name  *string
	Type  *models.WalletType
	Color *string
	Icon  *string
}

// WalletServicer defines the contract for wallet-related business logic.
type WalletServicer interface {
	CreateWallet(in CreateWalletInput) (*models.Wallet, error)
	GetWallets() ([]models.Wallet, error)
	GetWalletByID(id string) (*models.Wallet, error)
	UpdateWallet(id string, in UpdateWalletInput) (*models.Wallet, error)
	DeleteWallet(id string) error
	SeedDefaultWallets() (int, error)
}

// CreateTransactionInput holds the attributes of a direct income or expense entry.
type CreateTransactionInput struct {
	WalletID    string
	CategoryID  *string
	Type        models.TransactionType
	Amount      decimal.Decimal
	Description string
	Notes       string
	Date        time.Time
}

// UpdateTransactionInput holds the soft fields of a transaction that may
// change after posting. Amount, type, wallet and date are immutable.
// An empty CategoryID clears the category.
type UpdateTransactionInput struct {
	Description *string
	Notes       *string
	CategoryID  *string
}

// TransferInput describes a movement of money between two wallets.
type TransferInput struct {
	FromWalletID string
	ToWalletID   string
	Amount       decimal.Decimal
	Description  string
	Date         time.Time
}

// Transfer is the pair of linked legs created by a transfer.
type Transfer struct {
	Ref    string             `json:"transfer_ref"`
	Debit  models.Transaction `json:"debit"`
	Credit models.Transaction `json:"credit"`
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	WalletID   string
	Type       *models.TransactionType
	CategoryID *string
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
}

// BalancePoint is the end-of-day balance of a wallet.
type BalancePoint struct {
	Date    time.Time       `json:"date"`
	Balance decimal.Decimal `json:"balance"`
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(in CreateTransactionInput) (*models.Transaction, error)
	TransferMoney(in TransferInput) (*Transfer, error)
	GetTransactions(filter TransactionFilter) ([]models.Transaction, error)
	GetWalletTransactions(walletID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(id string) (*models.Transaction, error)
	UpdateTransaction(id string, in UpdateTransactionInput) (*models.Transaction, error)
	DeleteTransaction(id string) error
	GetWalletBalanceHistory(walletID string, days int) ([]BalancePoint, error)
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(name, icon, color string) (*models.Category, error)
	GetCategories() ([]models.Category, error)
	GetCategoryByID(id string) (*models.Category, error)
	DeleteCategory(id string) error
	SeedDefaultCategories() (int, error)
}

// BudgetInput holds the attributes of a new budget.
type BudgetInput struct {
	Name       string
	CategoryID *string
	Amount     decimal.Decimal
	Period     models.BudgetPeriod
	StartDate  time.Time
}

// BudgetUpdate holds the optional budget fields to change.
type BudgetUpdate struct {
	Name     *string
	Amount   *decimal.Decimal
	Period   *models.BudgetPeriod
	IsActive *bool
}

// BudgetProgress contains spending vs budget data for a budget's current period.
type BudgetProgress struct {
	BudgetID    string          `json:"budget_id"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	Budgeted    decimal.Decimal `json:"budgeted"`
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"`
	Percentage  float64         `json:"percentage"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(in BudgetInput) (*models.Budget, error)
	GetBudgets(activeOnly bool) ([]models.Budget, error)
	GetBudgetByID(id string) (*models.Budget, error)
	UpdateBudget(id string, in BudgetUpdate) (*models.Budget, error)
	DeleteBudget(id string) error
	GetBudgetProgress(id string) (*BudgetProgress, error)
}

// BillInput holds the attributes of a new bill.
type BillInput struct {
	Name       string
	Amount     decimal.Decimal
	DueDate    time.Time
	Frequency  models.Frequency
	WalletID   *string
	CategoryID *string
}

// ReminderInput holds the attributes of a new recurring income or expense.
type ReminderInput struct {
	Title      string
	Type       models.TransactionType
	Amount     decimal.Decimal
	WalletID   string
	CategoryID *string
	Frequency  models.Frequency
	NextDue    time.Time
	AutoPost   bool
}

// GoalInput holds the attributes of a new savings goal.
type GoalInput struct {
	Name         string
	TargetAmount decimal.Decimal
	Deadline     *time.Time
	WalletID     *string
}

// PlanningServicer defines the contract for bills, reminders and goals.
type PlanningServicer interface {
	CreateBill(in BillInput) (*models.Bill, error)
	GetBills(includePaid bool) ([]models.Bill, error)
	MarkBillPaid(id string) (*models.Bill, error)
	DeleteBill(id string) error

	CreateReminder(in ReminderInput) (*models.Reminder, error)
	GetReminders() ([]models.Reminder, error)
	DeleteReminder(id string) error
	PostDueReminders() ([]models.Transaction, error)

	CreateGoal(in GoalInput) (*models.Goal, error)
	GetGoals() ([]models.Goal, error)
	ContributeToGoal(id string, amount decimal.Decimal) (*models.Goal, error)
	DeleteGoal(id string) error
}

// MergeStats summarizes the local mutations performed by a merge.
type MergeStats struct {
	Inserted    int
	Adopted     int
	Conflicts   int
	Deleted     int
	Skipped     int
	ConflictIDs map[string]struct{}
}

// SnapshotServicer is the bulk side of the Local Store used by the sync
// coordinator: collecting snapshots, sync bookkeeping and re-hydration.
type SnapshotServicer interface {
	Collect() (*snapshot.Snapshot, error)
	MarkSynced(snap *snapshot.Snapshot, at time.Time, exclude map[string]struct{}) (int64, error)
	ResetSyncState() error
	CountUnsynced() (int64, error)
	Tombstones() (snapshot.Tombstones, error)
	PurgeTombstones() error
	ClearAll() error

	ImportWallet(w models.Wallet, opening decimal.Decimal) (*models.Wallet, error)
	ImportTransaction(t models.Transaction) (*models.Transaction, error)
	ImportCategory(c models.Category) error
	ImportBudget(b models.Budget) error
	ImportBill(b models.Bill) error
	ImportReminder(r models.Reminder) error
	ImportGoal(g models.Goal) error

	ApplyMerge(plan *snapshot.MergePlan) (*MergeStats, error)
}
