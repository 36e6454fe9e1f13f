package snapshot

import (
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Checksum returns the hex BLAKE2b-256 digest of the snapshot's canonical
// form. Records are reduced to kind, id, update time and money fields and
// sorted, so the digest is independent of record order and JSON layout.
func Checksum(s *Snapshot) string {
	lines := make([]string, 0, s.ItemsCount()+len(s.Settings))

	for _, w := range s.Wallets {
		lines = append(lines, line("wallet", w.ID, w.UpdatedAt, w.Balance.String(), strconv.FormatBool(w.IsActive)))
	}
	for _, t := range s.Transactions {
		lines = append(lines, line("transaction", t.ID, t.UpdatedAt, t.WalletID, string(t.Type), t.Amount.String()))
	}
	for _, c := range s.Categories {
		lines = append(lines, line("category", c.ID, c.UpdatedAt, c.Name))
	}
	for _, b := range s.Budgets {
		lines = append(lines, line("budget", b.ID, b.UpdatedAt, b.Amount.String()))
	}
	for _, b := range s.Bills {
		lines = append(lines, line("bill", b.ID, b.UpdatedAt, b.Amount.String()))
	}
	for _, r := range s.Reminders {
		lines = append(lines, line("reminder", r.ID, r.UpdatedAt, r.Amount.String()))
	}
	for _, g := range s.Goals {
		lines = append(lines, line("goal", g.ID, g.UpdatedAt, g.TargetAmount.String(), g.CurrentAmount.String()))
	}
	for k, v := range s.Settings {
		lines = append(lines, "setting:"+k+"="+v)
	}
	sort.Strings(lines)

	sum := blake2b.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

func line(kind, id string, updated time.Time, fields ...string) string {
	parts := append([]string{kind, id, strconv.FormatInt(updated.UnixNano(), 10)}, fields...)
	return strings.Join(parts, ":")
}
