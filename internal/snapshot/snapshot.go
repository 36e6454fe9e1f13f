// Package snapshot defines the full point-in-time export of local financial
// data that is uploaded to and downloaded from the sync backend, together with
// its integrity checks and the pure merge planner.
package snapshot

import (
	"fmt"
	"time"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/models"

	"github.com/shopspring/decimal"
)

// Version is the snapshot format written by this client.
const Version = 1

// Data is the record payload of a snapshot.
type Data struct {
	Wallets      []models.Wallet      `json:"wallets"`
	Transactions []models.Transaction `json:"transactions"`
	Categories   []models.Category    `json:"categories"`
	Budgets      []models.Budget      `json:"budgets"`
	Bills        []models.Bill        `json:"bills"`
	Reminders    []models.Reminder    `json:"reminders"`
	Goals        []models.Goal        `json:"goals"`
	Settings     map[string]string    `json:"settings,omitempty"`
}

// Snapshot is Data plus the envelope the backend stores alongside it.
type Snapshot struct {
	Data
	Timestamp time.Time `json:"timestamp"`
	Version   int       `json:"version"`
	Checksum  string    `json:"checksum,omitempty"`
}

// New returns an empty snapshot with non-nil slices.
func New() *Snapshot {
	return &Snapshot{
		Data: Data{
			Wallets:      []models.Wallet{},
			Transactions: []models.Transaction{},
			Categories:   []models.Category{},
			Budgets:      []models.Budget{},
			Bills:        []models.Bill{},
			Reminders:    []models.Reminder{},
			Goals:        []models.Goal{},
			Settings:     map[string]string{},
		},
		Version: Version,
	}
}

// ItemsCount returns the number of records carried by the snapshot.
func (s *Snapshot) ItemsCount() int {
	return len(s.Wallets) + len(s.Transactions) + len(s.Categories) +
		len(s.Budgets) + len(s.Bills) + len(s.Reminders) + len(s.Goals)
}

// Seal stamps the snapshot with its timestamp, format version and checksum.
func (s *Snapshot) Seal(at time.Time) {
	s.Timestamp = at.UTC()
	s.Version = Version
	s.Checksum = Checksum(s)
}

// Validate rejects snapshots that cannot be safely restored: unknown format
// versions, records without ids, duplicate ids, transactions or reminders
// pointing at wallets the snapshot lacks, and checksum mismatches. A missing
// checksum is accepted since not every backend preserves it.
func (s *Snapshot) Validate() error {
	if s.Version > Version {
		return malformed("unsupported snapshot version %d", s.Version)
	}

	seen := make(map[string]struct{}, s.ItemsCount())
	check := func(kind, id string) error {
		if id == "" {
			return malformed("%s without id", kind)
		}
		key := kind + ":" + id
		if _, dup := seen[key]; dup {
			return malformed("duplicate %s %s", kind, id)
		}
		seen[key] = struct{}{}
		return nil
	}

	for _, w := range s.Wallets {
		if err := check("wallet", w.ID); err != nil {
			return err
		}
	}
	for _, t := range s.Transactions {
		if err := check("transaction", t.ID); err != nil {
			return err
		}
		if !t.Type.Valid() {
			return malformed("transaction %s has unknown type %q", t.ID, t.Type)
		}
		if !t.Amount.IsPositive() {
			return malformed("transaction %s has non-positive amount", t.ID)
		}
		if _, ok := seen["wallet:"+t.WalletID]; !ok {
			return malformed("transaction %s references unknown wallet %q", t.ID, t.WalletID)
		}
	}
	for _, c := range s.Categories {
		if err := check("category", c.ID); err != nil {
			return err
		}
	}
	for _, b := range s.Budgets {
		if err := check("budget", b.ID); err != nil {
			return err
		}
	}
	for _, b := range s.Bills {
		if err := check("bill", b.ID); err != nil {
			return err
		}
	}
	for _, r := range s.Reminders {
		if err := check("reminder", r.ID); err != nil {
			return err
		}
		if _, ok := seen["wallet:"+r.WalletID]; !ok {
			return malformed("reminder %s references unknown wallet %q", r.ID, r.WalletID)
		}
	}
	for _, g := range s.Goals {
		if err := check("goal", g.ID); err != nil {
			return err
		}
	}

	if s.Checksum != "" && s.Checksum != Checksum(s) {
		return malformed("checksum mismatch")
	}
	return nil
}

// OpeningBalance returns the balance a wallet must start from so that
// replaying txns through the normal posting path ends at w.Balance.
func OpeningBalance(w models.Wallet, txns []models.Transaction) decimal.Decimal {
	opening := w.Balance
	for i := range txns {
		if txns[i].WalletID == w.ID {
			opening = opening.Sub(txns[i].Effect())
		}
	}
	return opening
}

func malformed(format string, args ...interface{}) error {
	return apperrors.WithMessage(apperrors.ErrMalformedSnapshot, fmt.Sprintf("malformed snapshot: "+format, args...))
}
