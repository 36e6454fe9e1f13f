package app

import (
	"context"
	"strings"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/kv"
	"pocketledger/internal/progress"
	"pocketledger/internal/syncer"
	"pocketledger/internal/syncstatus"
)

// EnableSync turns cloud sync on.
func (a *App) EnableSync(ctx context.Context) error {
	st, err := a.state()
	if err != nil {
		return err
	}
	return st.coord.EnableSync(ctx)
}

// DisableSync turns cloud sync off without touching local data.
func (a *App) DisableSync(ctx context.Context) error {
	st, err := a.state()
	if err != nil {
		return err
	}
	return st.coord.DisableSync(ctx)
}

// SetAutoSync toggles the background sync worker's permission to run.
func (a *App) SetAutoSync(ctx context.Context, enabled bool) error {
	st, err := a.state()
	if err != nil {
		return err
	}
	return st.tracker.SetAutoSync(ctx, enabled)
}

// SetReminderInterval changes how many days pass between sync reminders.
func (a *App) SetReminderInterval(ctx context.Context, days int) error {
	st, err := a.state()
	if err != nil {
		return err
	}
	return st.tracker.SetReminderInterval(ctx, days)
}

// GetSyncConfig returns the persisted sync config.
func (a *App) GetSyncConfig(ctx context.Context) (*syncstatus.Config, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	cfg, err := st.tracker.Config(ctx)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PerformManualSync uploads everything to the cloud now.
func (a *App) PerformManualSync(ctx context.Context) (*syncer.Result, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	return st.coord.PerformFullSync(ctx)
}

// RestoreFromCloud replaces local data with the cloud backup.
func (a *App) RestoreFromCloud(ctx context.Context, opts syncer.RestoreOptions) (*syncer.Result, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	return st.coord.RestoreFromCloud(ctx, opts)
}

// ResolveConflicts reconciles local and cloud data.
func (a *App) ResolveConflicts(ctx context.Context, strategy syncer.Strategy) (*syncer.Result, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	return st.coord.ResolveConflicts(ctx, strategy)
}

// DeleteCloudBackup removes the cloud backup.
func (a *App) DeleteCloudBackup(ctx context.Context) error {
	st, err := a.state()
	if err != nil {
		return err
	}
	return st.coord.DeleteCloudBackup(ctx)
}

// GetSyncStatus returns the sync state shown by the UI.
func (a *App) GetSyncStatus(ctx context.Context) (*syncstatus.Status, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	return st.tracker.GetSyncStatus(ctx)
}

// ShouldShowSyncReminder reports whether the UI should nag about unsynced data.
func (a *App) ShouldShowSyncReminder(ctx context.Context) (bool, error) {
	st, err := a.state()
	if err != nil {
		return false, err
	}
	return st.tracker.ShouldShowSyncReminder(ctx)
}

// MarkReminderShown records that the sync reminder was displayed. Storage
// failures are logged and dropped; only a missing initialization is reported.
func (a *App) MarkReminderShown(ctx context.Context) error {
	st, err := a.state()
	if err != nil {
		return err
	}
	if err := st.tracker.MarkReminderShown(ctx); err != nil {
		a.log.Warnw("failed to record sync reminder", "error", err)
	}
	return nil
}

// Progress returns the channel sync progress is published on.
func (a *App) Progress() *progress.Channel {
	return a.channel
}

// CancelSync asks the running sync to stop at its next stage boundary.
func (a *App) CancelSync() {
	a.channel.RequestCancel()
}

// ClearProgress hides the last progress event.
func (a *App) ClearProgress() {
	a.channel.Clear()
}

// Session

// SetSessionToken stores the session token used for cloud calls.
func (a *App) SetSessionToken(ctx context.Context, token string) error {
	st, err := a.state()
	if err != nil {
		return err
	}
	return st.tokens.SetToken(ctx, token)
}

// ClearSessionToken forgets the stored session token.
func (a *App) ClearSessionToken(ctx context.Context) error {
	st, err := a.state()
	if err != nil {
		return err
	}
	return st.tokens.ClearToken(ctx)
}

// IsAuthenticated reports whether a usable session token is stored.
func (a *App) IsAuthenticated(ctx context.Context) (bool, error) {
	st, err := a.state()
	if err != nil {
		return false, err
	}
	return st.tokens.Authenticated(ctx), nil
}

// Settings are user preferences. They are stored under kv.PrefPrefix and
// travel with cloud backups.

// GetSettings returns every user preference without its key prefix.
func (a *App) GetSettings(ctx context.Context) (map[string]string, error) {
	st, err := a.state()
	if err != nil {
		return nil, err
	}
	stored, err := st.kv.List(ctx, kv.PrefPrefix)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, err)
	}
	out := make(map[string]string, len(stored))
	for k, v := range stored {
		out[strings.TrimPrefix(k, kv.PrefPrefix)] = v
	}
	return out, nil
}

// SetSetting stores one user preference.
func (a *App) SetSetting(ctx context.Context, key, value string) error {
	st, err := a.state()
	if err != nil {
		return err
	}
	key, err = settingKey(key)
	if err != nil {
		return err
	}
	if err := st.kv.Set(ctx, key, value); err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, err)
	}
	return nil
}

// DeleteSetting removes one user preference.
func (a *App) DeleteSetting(ctx context.Context, key string) error {
	st, err := a.state()
	if err != nil {
		return err
	}
	key, err = settingKey(key)
	if err != nil {
		return err
	}
	if err := st.kv.Delete(ctx, key); err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, err)
	}
	return nil
}

func settingKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || len(key) > 128 {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "setting key must be 1-128 characters")
	}
	return kv.PrefPrefix + key, nil
}
