// Package remote talks to the place cloud backups live: the sync service's
// HTTP API or, for self-hosted setups, a Google Cloud Storage bucket.
package remote

import (
	"context"
	"errors"
	"time"

	"pocketledger/internal/snapshot"
)

// Receipt is the backend's acknowledgement of a stored backup.
type Receipt struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Version   int       `json:"version"`
}

// Backend stores one full snapshot per account. Errors are *AppError values
// of kind auth_required, network, server, not_found or validation.
type Backend interface {
	// Backup replaces the remote snapshot with snap.
	Backup(ctx context.Context, token string, snap *snapshot.Snapshot) (*Receipt, error)
	// Restore fetches the remote snapshot. A missing backup is ErrNotFound.
	Restore(ctx context.Context, token string) (*snapshot.Snapshot, error)
	// Merge pushes locally merged state, telling the backend which strategy produced it.
	Merge(ctx context.Context, token string, snap *snapshot.Snapshot, strategy string) error
	// DeleteBackup removes the remote snapshot.
	DeleteBackup(ctx context.Context, token string) error
}

// interrupted reports whether ctx was cancelled by the caller, as opposed to
// running out of time.
func interrupted(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}
