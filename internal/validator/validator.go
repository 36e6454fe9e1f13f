// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"pocketledger/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		registerOn(v)
	}
}

func registerOn(v *validator.Validate) {
	_ = v.RegisterValidation("hex_color", validateHexColor)
	_ = v.RegisterValidation("wallet_type", validateWalletType)
	_ = v.RegisterValidation("transaction_type", validateTransactionType)
	_ = v.RegisterValidation("entry_type", validateEntryType)
	_ = v.RegisterValidation("budget_period", validateBudgetPeriod)
	_ = v.RegisterValidation("frequency", validateFrequency)
	_ = v.RegisterValidation("sync_strategy", validateSyncStrategy)
}

func validateHexColor(fl validator.FieldLevel) bool {
	return hexColorRegex.MatchString(fl.Field().String())
}

func validateWalletType(fl validator.FieldLevel) bool {
	return models.WalletType(fl.Field().String()).Valid()
}

func validateTransactionType(fl validator.FieldLevel) bool {
	return models.TransactionType(fl.Field().String()).Valid()
}

// validateEntryType accepts the types that may be posted directly. Transfers
// go through their own endpoint.
func validateEntryType(fl validator.FieldLevel) bool {
	switch models.TransactionType(fl.Field().String()) {
	case models.TransactionTypeIncome, models.TransactionTypeExpense:
		return true
	}
	return false
}

func validateBudgetPeriod(fl validator.FieldLevel) bool {
	return models.BudgetPeriod(fl.Field().String()).Valid()
}

func validateFrequency(fl validator.FieldLevel) bool {
	return models.Frequency(fl.Field().String()).Valid()
}

func validateSyncStrategy(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "server-wins", "local-wins", "merge":
		return true
	}
	return false
}
