package app

import (
	"pocketledger/internal/models"
	"pocketledger/internal/pagination"
	"pocketledger/internal/services"

	"github.com/shopspring/decimal"
)

// Wallets

// CreateWallet creates a wallet and posts its opening balance.
func (a *App) CreateWallet(in services.CreateWalletInput) (*WalletView, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	w, err := st.ledger.Wallets.CreateWallet(in)
	if err != nil {
		return nil, err
	}
	return walletView(w), nil
}

// GetWallets lists the active wallets.
func (a *App) GetWallets() ([]WalletView, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	ws, err := st.ledger.Wallets.GetWallets()
	if err != nil {
		return nil, err
	}
	return walletViews(ws), nil
}

// GetWallet returns one wallet by id.
func (a *App) GetWallet(id string) (*WalletView, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	w, err := st.ledger.Wallets.GetWalletByID(id)
	if err != nil {
		return nil, err
	}
	return walletView(w), nil
}

// UpdateWallet changes the descriptive fields of a wallet.
func (a *App) UpdateWallet(id string, in services.UpdateWalletInput) (*WalletView, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	w, err := st.ledger.Wallets.UpdateWallet(id, in)
	if err != nil {
		return nil, err
	}
	return walletView(w), nil
}

// DeleteWallet deactivates a wallet. Its transactions stay untouched.
func (a *App) DeleteWallet(id string) error {
	st, err := a.state()
	if err != nil {
		return err
	}
	return st.ledger.Wallets.DeleteWallet(id)
}

// GetWalletBalanceHistory returns one end-of-day balance per day, oldest first.
func (a *App) GetWalletBalanceHistory(walletID string, days int) ([]services.BalancePoint, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	return st.ledger.Transactions.GetWalletBalanceHistory(walletID, days)
}

// Transactions

// CreateTransaction records an income or expense and updates the wallet balance.
func (a *App) CreateTransaction(in services.CreateTransactionInput) (*TransactionView, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	t, err := st.ledger.Transactions.CreateTransaction(in)
	if err != nil {
		return nil, err
	}
	return transactionView(t), nil
}

// TransferMoney moves money between two wallets as a pair of linked legs.
func (a *App) TransferMoney(in services.TransferInput) (*TransferView, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	tr, err := st.ledger.Transactions.TransferMoney(in)
	if err != nil {
		return nil, err
	}
	return transferView(tr), nil
}

// GetTransactions lists transactions matching filter.
func (a *App) GetTransactions(filter services.TransactionFilter) ([]TransactionView, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	ts, err := st.ledger.Transactions.GetTransactions(filter)
	if err != nil {
		return nil, err
	}
	return transactionViews(ts), nil
}

// GetWalletTransactions returns one page of a wallet's transactions, newest first.
func (a *App) GetWalletTransactions(walletID string, page pagination.PageRequest) (*pagination.PageResponse[TransactionView], error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	resp, err := st.ledger.Transactions.GetWalletTransactions(walletID, page)
	if err != nil {
		return nil, err
	}
	return transactionPage(resp), nil
}

// GetTransaction returns one transaction by id.
func (a *App) GetTransaction(id string) (*TransactionView, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	t, err := st.ledger.Transactions.GetTransactionByID(id)
	if err != nil {
		return nil, err
	}
	return transactionView(t), nil
}

// UpdateTransaction edits the description, notes or category of a transaction.
func (a *App) UpdateTransaction(id string, in services.UpdateTransactionInput) (*TransactionView, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	t, err := st.ledger.Transactions.UpdateTransaction(id, in)
	if err != nil {
		return nil, err
	}
	return transactionView(t), nil
}

// DeleteTransaction removes a transaction and reverses its balance effect.
// Deleting either leg of a transfer removes both.
func (a *App) DeleteTransaction(id string) error {
	st, err := a.state()
	if err != nil {
		return err
	}
	return st.ledger.Transactions.DeleteTransaction(id)
}

// Categories

// CreateCategory adds a custom category.
func (a *App) CreateCategory(name, icon, color string) (*models.Category, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	return st.ledger.Categories.CreateCategory(name, icon, color)
}

// GetCategories lists the seeded and custom categories.
func (a *App) GetCategories() ([]models.Category, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	return st.ledger.Categories.GetCategories()
}

// DeleteCategory removes a custom category.
func (a *App) DeleteCategory(id string) error {
	st, err := a.state()
	if err != nil {
		return err
	}
	return st.ledger.Categories.DeleteCategory(id)
}

// Budgets

// CreateBudget creates an active budget.
func (a *App) CreateBudget(in services.BudgetInput) (*models.Budget, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	return st.ledger.Budgets.CreateBudget(in)
}

// GetBudgets lists budgets, optionally only the active ones.
func (a *App) GetBudgets(activeOnly bool) ([]models.Budget, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	return st.ledger.Budgets.GetBudgets(activeOnly)
}

// GetBudget returns one budget by id.
func (a *App) GetBudget(id string) (*models.Budget, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	return st.ledger.Budgets.GetBudgetByID(id)
}

// UpdateBudget changes the fields set in in.
func (a *App) UpdateBudget(id string, in services.BudgetUpdate) (*models.Budget, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	return st.ledger.Budgets.UpdateBudget(id, in)
}

// DeleteBudget removes a budget.
func (a *App) DeleteBudget(id string) error {
	st, err := a.state()
	if err != nil {
		return err
	}
	return st.ledger.Budgets.DeleteBudget(id)
}

// GetBudgetProgress reports spending against a budget for its current period.
func (a *App) GetBudgetProgress(id string) (*services.BudgetProgress, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	return st.ledger.Budgets.GetBudgetProgress(id)
}

// Bills, reminders and goals

// CreateBill adds an unpaid bill.
func (a *App) CreateBill(in services.BillInput) (*models.Bill, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	return st.ledger.Planning.CreateBill(in)
}

// GetBills lists bills by due date, optionally including paid ones.
func (a *App) GetBills(includePaid bool) ([]models.Bill, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	return st.ledger.Planning.GetBills(includePaid)
}

// MarkBillPaid records a payment and moves recurring bills to their next due date.
func (a *App) MarkBillPaid(id string) (*models.Bill, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	return st.ledger.Planning.MarkBillPaid(id)
}

// DeleteBill removes a bill.
func (a *App) DeleteBill(id string) error {
	st, err := a.state()
	if err != nil {
		return err
	}
	return st.ledger.Planning.DeleteBill(id)
}

// CreateReminder adds a recurring income or expense.
func (a *App) CreateReminder(in services.ReminderInput) (*models.Reminder, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	return st.ledger.Planning.CreateReminder(in)
}

// GetReminders lists the active reminders by next due date.
func (a *App) GetReminders() ([]models.Reminder, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	return st.ledger.Planning.GetReminders()
}

// DeleteReminder removes a reminder. Transactions it posted stay.
func (a *App) DeleteReminder(id string) error {
	st, err := a.state()
	if err != nil {
		return err
	}
	return st.ledger.Planning.DeleteReminder(id)
}

// PostDueReminders posts every auto-post reminder occurrence that is due.
func (a *App) PostDueReminders() ([]TransactionView, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	posted, err := st.ledger.Planning.PostDueReminders()
	if err != nil {
		return nil, err
	}
	return transactionViews(posted), nil
}

// CreateGoal adds a savings goal.
func (a *App) CreateGoal(in services.GoalInput) (*models.Goal, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	return st.ledger.Planning.CreateGoal(in)
}

// GetGoals lists savings goals, open ones first.
func (a *App) GetGoals() ([]models.Goal, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	return st.ledger.Planning.GetGoals()
}

// ContributeToGoal adds amount to a goal's saved total.
func (a *App) ContributeToGoal(id string, amount decimal.Decimal) (*models.Goal, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	return st.ledger.Planning.ContributeToGoal(id, amount)
}

// DeleteGoal removes a goal.
func (a *App) DeleteGoal(id string) error {
	st, err := a.state()
	if err != nil {
		return err
	}
	return st.ledger.Planning.DeleteGoal(id)
}
