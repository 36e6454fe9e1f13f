package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pocketledger/internal/middleware"
)

// Facade is everything the local API exposes.
type Facade interface {
	WalletFacade
	TransactionFacade
	CategoryFacade
	BudgetFacade
	PlanningFacade
	SyncFacade
	SessionFacade
	Initialized() bool
}

// NewRouter builds the local API served to the UI process.
func NewRouter(f Facade, apiKey string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "initialized": f.Initialized()})
	})

	wallets := NewWalletHandler(f)
	transactions := NewTransactionHandler(f)
	categories := NewCategoryHandler(f)
	budgets := NewBudgetHandler(f)
	planning := NewPlanningHandler(f)
	syncs := NewSyncHandler(f)
	session := NewSessionHandler(f)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.APIKey(apiKey))

	w := v1.Group("/wallets")
	w.POST("", wallets.CreateWallet)
	w.GET("", wallets.GetWallets)
	w.GET("/:id", wallets.GetWallet)
	w.PUT("/:id", wallets.UpdateWallet)
	w.DELETE("/:id", wallets.DeleteWallet)
	w.GET("/:id/transactions", wallets.GetWalletTransactions)
	w.GET("/:id/history", wallets.GetBalanceHistory)

	t := v1.Group("/transactions")
	t.POST("", transactions.CreateTransaction)
	t.POST("/transfer", transactions.TransferMoney)
	t.GET("", transactions.GetTransactions)
	t.GET("/:id", transactions.GetTransaction)
	t.PUT("/:id", transactions.UpdateTransaction)
	t.DELETE("/:id", transactions.DeleteTransaction)

	cat := v1.Group("/categories")
	cat.POST("", categories.CreateCategory)
	cat.GET("", categories.GetCategories)
	cat.DELETE("/:id", categories.DeleteCategory)

	b := v1.Group("/budgets")
	b.POST("", budgets.CreateBudget)
	b.GET("", budgets.GetBudgets)
	b.GET("/:id", budgets.GetBudget)
	b.PUT("/:id", budgets.UpdateBudget)
	b.DELETE("/:id", budgets.DeleteBudget)
	b.GET("/:id/progress", budgets.GetBudgetProgress)

	bills := v1.Group("/bills")
	bills.POST("", planning.CreateBill)
	bills.GET("", planning.GetBills)
	bills.POST("/:id/pay", planning.PayBill)
	bills.DELETE("/:id", planning.DeleteBill)

	reminders := v1.Group("/reminders")
	reminders.POST("", planning.CreateReminder)
	reminders.GET("", planning.GetReminders)
	reminders.POST("/post-due", planning.PostDueReminders)
	reminders.DELETE("/:id", planning.DeleteReminder)

	goals := v1.Group("/goals")
	goals.POST("", planning.CreateGoal)
	goals.GET("", planning.GetGoals)
	goals.POST("/:id/contribute", planning.ContributeToGoal)
	goals.DELETE("/:id", planning.DeleteGoal)

	s := v1.Group("/sync")
	s.GET("/status", syncs.GetStatus)
	s.GET("/config", syncs.GetConfig)
	s.PUT("/config", syncs.UpdateConfig)
	s.POST("/enable", syncs.Enable)
	s.POST("/disable", syncs.Disable)
	s.POST("/run", syncs.Sync)
	s.POST("/restore", syncs.Restore)
	s.POST("/resolve", syncs.Resolve)
	s.DELETE("/backup", syncs.DeleteBackup)
	s.POST("/cancel", syncs.Cancel)
	s.GET("/reminder", syncs.GetReminder)
	s.POST("/reminder/shown", syncs.ReminderShown)
	s.GET("/progress", syncs.StreamProgress)

	v1.GET("/session", session.GetSession)
	v1.PUT("/session", session.SetToken)
	v1.DELETE("/session", session.ClearToken)

	settings := v1.Group("/settings")
	settings.GET("", session.GetSettings)
	settings.PUT("/:key", session.SetSetting)
	settings.DELETE("/:key", session.DeleteSetting)

	return router
}
