package app

import (
	"pocketledger/internal/models"
	"pocketledger/internal/pagination"
	"pocketledger/internal/services"
)

// WalletView is a wallet decorated with its sync badge.
type WalletView struct {
	models.Wallet
	SyncStatus models.SyncState `json:"sync_status"`
}

// TransactionView is a transaction decorated with its sync badge.
type TransactionView struct {
	models.Transaction
	SyncStatus models.SyncState `json:"sync_status"`
}

// TransferView is the pair of legs created by a transfer.
type TransferView struct {
	Ref    string          `json:"transfer_ref"`
	Debit  TransactionView `json:"debit"`
	Credit TransactionView `json:"credit"`
}

func walletView(w *models.Wallet) *WalletView {
	return &WalletView{Wallet: *w, SyncStatus: w.State()}
}

func walletViews(ws []models.Wallet) []WalletView {
	out := make([]WalletView, 0, len(ws))
	for i := range ws {
		out = append(out, *walletView(&ws[i]))
	}
	return out
}

func transactionView(t *models.Transaction) *TransactionView {
	return &TransactionView{Transaction: *t, SyncStatus: t.State()}
}

func transactionViews(ts []models.Transaction) []TransactionView {
	out := make([]TransactionView, 0, len(ts))
	for i := range ts {
		out = append(out, *transactionView(&ts[i]))
	}
	return out
}

func transferView(tr *services.Transfer) *TransferView {
	return &TransferView{
		Ref:    tr.Ref,
		Debit:  *transactionView(&tr.Debit),
		Credit: *transactionView(&tr.Credit),
	}
}

func transactionPage(page *pagination.PageResponse[models.Transaction]) *pagination.PageResponse[TransactionView] {
	return &pagination.PageResponse[TransactionView]{
		Data:       transactionViews(page.Data),
		Limit:      page.Limit,
		Offset:     page.Offset,
		TotalItems: page.TotalItems,
		HasMore:    page.HasMore,
	}
}
