// Package kv persists small pieces of local bookkeeping: the sync config, the
// last sync time, the session token, seed markers and user settings.
package kv

import "context"

// Well-known keys.
const (
	KeySyncConfig   = "sync.config"
	KeyLastSync     = "sync.last_sync"
	KeySessionToken = "auth.session_token"
	KeySeedWallets  = "seed.wallets"
)

// PrefPrefix prefixes user settings. Only these keys travel in snapshots.
const PrefPrefix = "pref."

// Store is a string key/value store.
type Store interface {
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// List returns every pair whose key starts with prefix.
	List(ctx context.Context, prefix string) (map[string]string, error)
}
