package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency describes how often a bill or reminder repeats.
type Frequency string

const (
	FrequencyOnce    Frequency = "once"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOnce, FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// Next returns the occurrence after t, or nil for one-off schedules.
func (f Frequency) Next(t time.Time) *time.Time {
	var next time.Time
	switch f {
	case FrequencyDaily:
		next = t.AddDate(0, 0, 1)
	case FrequencyWeekly:
		next = t.AddDate(0, 0, 7)
	case FrequencyMonthly:
		next = t.AddDate(0, 1, 0)
	case FrequencyYearly:
		next = t.AddDate(1, 0, 0)
	default:
		return nil
	}
	return &next
}

// Bill is an upcoming payment the user wants to keep track of.
type Bill struct {
	Base
	SyncMeta
	Name       string          `gorm:"not null" json:"name"`
	Amount     decimal.Decimal `gorm:"type:decimal(19,4);not null" json:"amount"`
	DueDate    time.Time       `gorm:"not null" json:"due_date"`
	Frequency  Frequency       `gorm:"not null" json:"frequency"`
	WalletID   *string         `json:"wallet_id,omitempty"`
	CategoryID *string         `json:"category_id,omitempty"`
	IsPaid     bool            `gorm:"not null" json:"is_paid"`
	LastPaidAt *time.Time      `json:"last_paid_at,omitempty"`
}

// Reminder is a recurring income or expense. With AutoPost set, due
// occurrences are posted to the wallet as regular transactions.
type Reminder struct {
	Base
	SyncMeta
	Title        string          `gorm:"not null" json:"title"`
	Type         TransactionType `gorm:"not null" json:"type"`
	Amount       decimal.Decimal `gorm:"type:decimal(19,4);not null" json:"amount"`
	WalletID     string          `gorm:"not null" json:"wallet_id"`
	CategoryID   *string         `json:"category_id,omitempty"`
	Frequency    Frequency       `gorm:"not null" json:"frequency"`
	NextDue      time.Time       `gorm:"not null;index" json:"next_due"`
	AutoPost     bool            `gorm:"not null" json:"auto_post"`
	IsActive     bool            `gorm:"not null" json:"is_active"`
	LastPostedAt *time.Time      `json:"last_posted_at,omitempty"`
}

// Goal is a savings target.
type Goal struct {
	Base
	SyncMeta
	Name          string          `gorm:"not null" json:"name"`
	TargetAmount  decimal.Decimal `gorm:"type:decimal(19,4);not null" json:"target_amount"`
	CurrentAmount decimal.Decimal `gorm:"type:decimal(19,4);not null" json:"current_amount"`
	Deadline      *time.Time      `json:"deadline,omitempty"`
	WalletID      *string         `json:"wallet_id,omitempty"`
	IsCompleted   bool            `gorm:"not null" json:"is_completed"`
}

// Setting is one key/value pair of local bookkeeping or user preference.
type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
