package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "INCOME"
	TransactionTypeExpense  TransactionType = "EXPENSE"
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer:
		return true
	}
	return false
}

// TransferDirection tells which leg of a transfer a transaction is.
type TransferDirection string

const (
	TransferOutgoing TransferDirection = "OUT"
	TransferIncoming TransferDirection = "IN"
)

// Transaction is a single posting against one wallet. A transfer is stored as
// two transactions sharing a TransferRef: an OUT leg on the source wallet and
// an IN leg on the destination.
type Transaction struct {
	Base
	WalletID             string            `gorm:"not null;index" json:"wallet_id"`
	CategoryID           *string           `json:"category_id,omitempty"`
	Type                 TransactionType   `gorm:"not null" json:"type"`
	Amount               decimal.Decimal   `gorm:"type:decimal(19,4);not null" json:"amount"`
	Description          string            `json:"description"`
	Notes                string            `json:"notes,omitempty"`
	Date                 time.Time         `gorm:"not null;index" json:"date"`
	TransferRef          *string           `gorm:"index" json:"transfer_ref,omitempty"`
	TransferDirection    TransferDirection `json:"transfer_direction,omitempty"`
	CounterpartyWalletID *string           `json:"counterparty_wallet_id,omitempty"`
	ReminderID           *string           `json:"reminder_id,omitempty"`
	SyncMeta
}

// Effect returns the signed change this transaction applies to its wallet's balance.
func (t *Transaction) Effect() decimal.Decimal {
	switch t.Type {
	case TransactionTypeIncome:
		return t.Amount
	case TransactionTypeExpense:
		return t.Amount.Neg()
	case TransactionTypeTransfer:
		if t.TransferDirection == TransferIncoming {
			return t.Amount
		}
		return t.Amount.Neg()
	}
	return decimal.Zero
}

// IsTransferLeg reports whether the transaction is one half of a transfer.
func (t *Transaction) IsTransferLeg() bool {
	return t.Type == TransactionTypeTransfer && t.TransferRef != nil
}
