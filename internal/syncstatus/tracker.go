// Package syncstatus keeps the sync cadence state and decides when the UI
// should nag about unsynced data.
package syncstatus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/kv"
	"pocketledger/internal/logger"
)

// Config is the persisted sync config record.
type Config struct {
	Enabled              bool       `json:"enabled"`
	AutoSync             bool       `json:"auto_sync"`
	LastSyncReminder     *time.Time `json:"last_sync_reminder,omitempty"`
	ReminderIntervalDays int        `json:"reminder_interval_days"`
}

// Status is the composed view returned to the UI.
type Status struct {
	Enabled         bool       `json:"enabled"`
	AutoSync        bool       `json:"auto_sync"`
	Authenticated   bool       `json:"authenticated"`
	LastSync        *time.Time `json:"last_sync,omitempty"`
	UnsyncedItems   int64      `json:"unsynced_items"`
	NextReminderDue *time.Time `json:"next_reminder_due,omitempty"`
}

// Counter counts local records not yet confirmed uploaded.
type Counter interface {
	CountUnsynced() (int64, error)
}

// Authenticator reports whether a usable session token exists.
type Authenticator interface {
	Authenticated(ctx context.Context) bool
}

// Tracker reads and writes the sync config and last-sync time.
type Tracker struct {
	mu              sync.Mutex // serializes config read-modify-write
	store           kv.Store
	counter         Counter
	auth            Authenticator
	defaultInterval int
	now             func() time.Time
}

// NewTracker builds a Tracker. defaultInterval applies until the user picks one.
func NewTracker(store kv.Store, counter Counter, auth Authenticator, defaultInterval int) *Tracker {
	if defaultInterval < 1 {
		defaultInterval = 7
	}
	return &Tracker{
		store:           store,
		counter:         counter,
		auth:            auth,
		defaultInterval: defaultInterval,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the tracker's clock.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Config returns the stored config, or the defaults when none was saved.
func (t *Tracker) Config(ctx context.Context) (Config, error) {
	cfg := Config{AutoSync: true, ReminderIntervalDays: t.defaultInterval}

	raw, ok, err := t.store.Get(ctx, kv.KeySyncConfig)
	if err != nil {
		return cfg, apperrors.Wrap(apperrors.ErrInternal, err)
	}
	if !ok {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		logger.Named("syncstatus").Warnw("sync config unreadable, using defaults", "error", err)
		return Config{AutoSync: true, ReminderIntervalDays: t.defaultInterval}, nil
	}
	if cfg.ReminderIntervalDays < 1 {
		cfg.ReminderIntervalDays = t.defaultInterval
	}
	return cfg, nil
}

func (t *Tracker) save(ctx context.Context, cfg Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, err)
	}
	if err := t.store.Set(ctx, kv.KeySyncConfig, string(raw)); err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, err)
	}
	return nil
}

func (t *Tracker) update(ctx context.Context, fn func(*Config)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cfg, err := t.Config(ctx)
	if err != nil {
		return err
	}
	fn(&cfg)
	return t.save(ctx, cfg)
}

// SetEnabled turns cloud sync on or off. Local data is untouched.
func (t *Tracker) SetEnabled(ctx context.Context, enabled bool) error {
	return t.update(ctx, func(c *Config) { c.Enabled = enabled })
}

// SetAutoSync toggles periodic background sync.
func (t *Tracker) SetAutoSync(ctx context.Context, auto bool) error {
	return t.update(ctx, func(c *Config) { c.AutoSync = auto })
}

// SetReminderInterval changes how many days pass between sync reminders.
func (t *Tracker) SetReminderInterval(ctx context.Context, days int) error {
	if days < 1 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "reminder interval must be at least one day")
	}
	return t.update(ctx, func(c *Config) { c.ReminderIntervalDays = days })
}

// RecordSync stores the completion time of a successful sync.
func (t *Tracker) RecordSync(ctx context.Context, at time.Time) error {
	if err := t.store.Set(ctx, kv.KeyLastSync, at.UTC().Format(time.RFC3339Nano)); err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, err)
	}
	return nil
}

// ClearLastSync forgets the last-sync time.
func (t *Tracker) ClearLastSync(ctx context.Context) error {
	if err := t.store.Delete(ctx, kv.KeyLastSync); err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, err)
	}
	return nil
}

// LastSync returns the completion time of the last successful sync, or nil.
func (t *Tracker) LastSync(ctx context.Context) (*time.Time, error) {
	raw, ok, err := t.store.Get(ctx, kv.KeyLastSync)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, err)
	}
	if !ok {
		return nil, nil
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, fmt.Errorf("parse last sync %q: %w", raw, err))
	}
	return &at, nil
}

// GetSyncStatus composes the stored flags, the auth state and the count of
// unsynced records.
func (t *Tracker) GetSyncStatus(ctx context.Context) (*Status, error) {
	cfg, err := t.Config(ctx)
	if err != nil {
		return nil, err
	}
	lastSync, err := t.LastSync(ctx)
	if err != nil {
		return nil, err
	}
	unsynced, err := t.counter.CountUnsynced()
	if err != nil {
		return nil, err
	}

	status := &Status{
		Enabled:       cfg.Enabled,
		AutoSync:      cfg.AutoSync,
		Authenticated: t.auth.Authenticated(ctx),
		LastSync:      lastSync,
		UnsyncedItems: unsynced,
	}
	if cfg.Enabled {
		due := t.now()
		if cfg.LastSyncReminder != nil {
			due = cfg.LastSyncReminder.Add(interval(cfg))
		}
		status.NextReminderDue = &due
	}
	return status, nil
}

// ShouldShowSyncReminder reports whether sync is enabled and authenticated,
// the reminder interval has elapsed (or no reminder was ever shown), and
// there is something to upload.
func (t *Tracker) ShouldShowSyncReminder(ctx context.Context) (bool, error) {
	cfg, err := t.Config(ctx)
	if err != nil {
		return false, err
	}
	if !cfg.Enabled || !t.auth.Authenticated(ctx) {
		return false, nil
	}
	if cfg.LastSyncReminder != nil && t.now().Sub(*cfg.LastSyncReminder) < interval(cfg) {
		return false, nil
	}
	unsynced, err := t.counter.CountUnsynced()
	if err != nil {
		return false, err
	}
	return unsynced > 0, nil
}

// MarkReminderShown records that the reminder was just shown.
func (t *Tracker) MarkReminderShown(ctx context.Context) error {
	now := t.now()
	return t.update(ctx, func(c *Config) { c.LastSyncReminder = &now })
}

func interval(cfg Config) time.Duration {
	return time.Duration(cfg.ReminderIntervalDays) * 24 * time.Hour
}
