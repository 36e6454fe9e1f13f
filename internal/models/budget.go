package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetPeriod represents the period type for a budget
type BudgetPeriod string

const (
	BudgetPeriodWeekly  BudgetPeriod = "weekly"
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodYearly  BudgetPeriod = "yearly"
)

// Valid reports whether p is a known budget period.
func (p BudgetPeriod) Valid() bool {
	switch p {
	case BudgetPeriodWeekly, BudgetPeriodMonthly, BudgetPeriodYearly:
		return true
	}
	return false
}

// Window returns the calendar period containing t as [start, end).
// Weeks start on Monday.
func (p BudgetPeriod) Window(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	switch p {
	case BudgetPeriodWeekly:
		offset := (int(t.Weekday()) + 6) % 7
		start := time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
		return start, start.AddDate(0, 0, 7)
	case BudgetPeriodYearly:
		start := time.Date(y, 1, 1, 0, 0, 0, 0, t.Location())
		return start, start.AddDate(1, 0, 0)
	default:
		start := time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
		return start, start.AddDate(0, 1, 0)
	}
}

// Budget represents a spending limit, optionally scoped to one category
type Budget struct {
	Base
	SyncMeta
	Name       string          `gorm:"not null" json:"name"`
	CategoryID *string         `json:"category_id,omitempty"`
	Amount     decimal.Decimal `gorm:"type:decimal(19,4);not null" json:"amount"`
	Period     BudgetPeriod    `gorm:"not null" json:"period"`
	StartDate  time.Time       `gorm:"not null" json:"start_date"`
	IsActive   bool            `gorm:"not null" json:"is_active"`
}
