package models

import "github.com/shopspring/decimal"

// WalletType represents the kind of wallet
type WalletType string

const (
	WalletTypeBank       WalletType = "BANK"
	WalletTypeCash       WalletType = "CASH"
	WalletTypeSavings    WalletType = "SAVINGS"
	WalletTypeCreditCard WalletType = "CREDIT_CARD"
	WalletTypeInvestment WalletType = "INVESTMENT"
	WalletTypeOther      WalletType = "OTHER"
)

// Valid reports whether t is a known wallet type.
func (t WalletType) Valid() bool {
	switch t {
	case WalletTypeBank, WalletTypeCash, WalletTypeSavings, WalletTypeCreditCard, WalletTypeInvestment, WalletTypeOther:
		return true
	}
	return false
}

// Wallet is a store of money the user tracks. Balance is maintained
// incrementally by every posting against the wallet.
type Wallet struct {
	Base
	Name     string          `gorm:"not null" json:"name"`
	Type     WalletType      `gorm:"not null" json:"type"`
	Balance  decimal.Decimal `gorm:"type:decimal(19,4);not null" json:"balance"`
	Color    string          `json:"color"`
	Icon     string          `json:"icon"`
	IsActive bool            `gorm:"not null;index" json:"is_active"`
	SyncMeta
}

// AllowsOverdraft reports whether postings may drive the balance below zero.
func (w *Wallet) AllowsOverdraft() bool {
	return w.Type == WalletTypeCreditCard
}
