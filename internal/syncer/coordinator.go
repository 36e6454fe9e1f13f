// Package syncer moves full snapshots of the local store to and from the
// cloud backend. At most one sync runs at a time; progress and cancellation
// flow through a progress.Channel.
package syncer

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/kv"
	"pocketledger/internal/logger"
	"pocketledger/internal/models"
	"pocketledger/internal/progress"
	"pocketledger/internal/remote"
	"pocketledger/internal/services"
	"pocketledger/internal/snapshot"
	"pocketledger/internal/syncstatus"

	"go.uber.org/zap"
)

// Strategy selects how local and cloud changes are reconciled.
type Strategy string

const (
	StrategyServerWins Strategy = "server-wins"
	StrategyLocalWins  Strategy = "local-wins"
	StrategyMerge      Strategy = "merge"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyServerWins, StrategyLocalWins, StrategyMerge:
		return true
	}
	return false
}

// TokenProvider supplies the bearer token for backend calls.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// RestoreOptions tunes a restore.
type RestoreOptions struct {
	// KeepSettings leaves local preferences alone instead of taking the cloud ones.
	KeepSettings bool
}

// Result summarizes a finished sync.
type Result struct {
	Operation   progress.Operation `json:"operation"`
	ItemsCount  int                `json:"items_count"`
	Synced      int64              `json:"synced"`
	Skipped     int                `json:"skipped"`
	Conflicts   int                `json:"conflicts"`
	CompletedAt time.Time          `json:"completed_at"`
}

// Coordinator runs backups, restores and merges against a remote.Backend.
type Coordinator struct {
	store   services.SnapshotServicer
	kv      kv.Store
	backend remote.Backend
	tokens  TokenProvider
	tracker *syncstatus.Tracker
	channel *progress.Channel
	now     func() time.Time
	log     *zap.SugaredLogger

	running sync.Mutex
}

// Deps groups the collaborators of a Coordinator.
type Deps struct {
	Store   services.SnapshotServicer
	KV      kv.Store
	Backend remote.Backend
	Tokens  TokenProvider
	Tracker *syncstatus.Tracker
	Channel *progress.Channel
	Clock   func() time.Time
}

// NewCoordinator builds a Coordinator.
func NewCoordinator(d Deps) *Coordinator {
	now := d.Clock
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		store:   d.Store,
		kv:      d.KV,
		backend: d.Backend,
		tokens:  d.Tokens,
		tracker: d.Tracker,
		channel: d.Channel,
		now:     func() time.Time { return now().UTC() },
		log:     logger.Named("syncer"),
	}
}

// Channel returns the progress channel the coordinator publishes to.
func (c *Coordinator) Channel() *progress.Channel {
	return c.channel
}

// EnableSync turns cloud sync on.
func (c *Coordinator) EnableSync(ctx context.Context) error {
	return c.tracker.SetEnabled(ctx, true)
}

// DisableSync turns cloud sync off. Local data and dirty flags are untouched.
func (c *Coordinator) DisableSync(ctx context.Context) error {
	return c.tracker.SetEnabled(ctx, false)
}

// PerformFullSync uploads a full snapshot and marks the uploaded records synced.
func (c *Coordinator) PerformFullSync(ctx context.Context) (*Result, error) {
	return c.run(ctx, progress.OperationBackup, func(a *attempt) (*Result, error) {
		if err := c.requireEnabled(ctx); err != nil {
			return nil, err
		}
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		return c.backup(a, token)
	})
}

// RestoreFromCloud replaces all local financial data with the cloud snapshot.
func (c *Coordinator) RestoreFromCloud(ctx context.Context, opts RestoreOptions) (*Result, error) {
	return c.run(ctx, progress.OperationRestore, func(a *attempt) (*Result, error) {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		return c.restore(a, token, opts)
	})
}

// ResolveConflicts reconciles local and cloud data with strategy.
func (c *Coordinator) ResolveConflicts(ctx context.Context, strategy Strategy) (*Result, error) {
	switch strategy {
	case StrategyServerWins:
		return c.RestoreFromCloud(ctx, RestoreOptions{})
	case StrategyLocalWins:
		return c.PerformFullSync(ctx)
	case StrategyMerge:
		return c.run(ctx, progress.OperationMerge, func(a *attempt) (*Result, error) {
			if err := c.requireEnabled(ctx); err != nil {
				return nil, err
			}
			token, err := c.tokens.Token(ctx)
			if err != nil {
				return nil, err
			}
			return c.merge(a, token)
		})
	}
	return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown conflict strategy")
}

// DeleteCloudBackup removes the remote snapshot. Every local record then
// counts as never synced.
func (c *Coordinator) DeleteCloudBackup(ctx context.Context) error {
	if !c.running.TryLock() {
		return apperrors.ErrSyncInProgress
	}
	defer c.running.Unlock()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	if err := c.backend.DeleteBackup(ctx, token); err != nil {
		return err
	}
	if err := c.store.ResetSyncState(); err != nil {
		return err
	}
	if err := c.tracker.ClearLastSync(ctx); err != nil {
		c.log.Warnw("failed to clear last sync time", "error", err)
	}
	c.log.Infow("cloud backup deleted")
	return nil
}

func (c *Coordinator) requireEnabled(ctx context.Context) error {
	cfg, err := c.tracker.Config(ctx)
	if err != nil {
		return err
	}
	if !cfg.Enabled {
		return apperrors.ErrSyncDisabled
	}
	return nil
}

// attempt is one sync run.
type attempt struct {
	c   *Coordinator
	ctx context.Context
	op  progress.Operation
}

func (a *attempt) header(stage progress.Stage, pct int, msg string) progress.Header {
	return progress.Header{Operation: a.op, Stage: stage, Progress: pct, Message: msg}
}

func (a *attempt) publish(e progress.Event) {
	p := progress.ToPayload(e)
	a.c.log.Infow("sync stage", "operation", p.Operation, "stage", p.Stage, "items", p.ItemsCount)
	a.c.channel.Publish(e)
}

// checkpoint stops the run at a stage boundary if cancellation was requested.
func (a *attempt) checkpoint() error {
	if a.c.channel.CancelRequested() || a.ctx.Err() != nil {
		return apperrors.ErrCancelled
	}
	return nil
}

// run serializes sync attempts and turns their outcome into a terminal event.
func (c *Coordinator) run(ctx context.Context, op progress.Operation, fn func(*attempt) (*Result, error)) (*Result, error) {
	if !c.running.TryLock() {
		return nil, apperrors.ErrSyncInProgress
	}
	defer c.running.Unlock()

	c.channel.ClearCancel()
	defer c.channel.ClearCancel()

	a := &attempt{c: c, ctx: ctx, op: op}
	var res *Result
	err := a.checkpoint()
	if err == nil {
		res, err = fn(a)
	}

	switch {
	case err == nil:
		res.Operation = op
		c.log.Infow("sync completed", "operation", op, "items", res.ItemsCount, "synced", res.Synced, "skipped", res.Skipped, "conflicts", res.Conflicts)
		c.channel.Publish(progress.Completed{Header: a.header(progress.StageComplete, 100, completedMessage(op)), ItemsCount: res.ItemsCount})
		return res, nil
	case apperrors.KindOf(err) == apperrors.KindCancelled:
		c.log.Infow("sync cancelled", "operation", op)
		c.channel.Publish(progress.Cancelled{Header: a.header(progress.StageCancelled, 0, "Sync cancelled")})
		return nil, apperrors.ErrCancelled
	default:
		c.log.Warnw("sync failed", "operation", op, "error", err, "retryable", apperrors.IsRetryable(err))
		c.channel.Publish(progress.Failed{Header: a.header(progress.StageError, 0, failureMessage(err)), Err: err})
		return nil, err
	}
}

func completedMessage(op progress.Operation) string {
	switch op {
	case progress.OperationRestore:
		return "Restore complete"
	case progress.OperationMerge:
		return "Merge complete"
	}
	return "Backup complete"
}

func failureMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return apperrors.ErrInternal.Message
}

// collect reads the local store plus user preferences.
func (c *Coordinator) collect(ctx context.Context) (*snapshot.Snapshot, error) {
	snap, err := c.store.Collect()
	if err != nil {
		return nil, err
	}
	prefs, err := c.kv.List(ctx, kv.PrefPrefix)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, err)
	}
	snap.Settings = prefs
	return snap, nil
}

func (c *Coordinator) backup(a *attempt, token string) (*Result, error) {
	a.publish(progress.Collecting{Header: a.header(progress.StageCollecting, 10, "Collecting local data")})
	snap, err := c.collect(a.ctx)
	if err != nil {
		return nil, err
	}
	if err := a.checkpoint(); err != nil {
		return nil, err
	}

	snap.Seal(c.now())
	a.publish(progress.Uploading{Header: a.header(progress.StageUploading, 50, "Uploading backup"), ItemsCount: snap.ItemsCount()})
	if _, err := c.backend.Backup(a.ctx, token, snap); err != nil {
		return nil, err
	}
	if err := a.checkpoint(); err != nil {
		return nil, err
	}

	at := c.now()
	synced, err := c.store.MarkSynced(snap, at, nil)
	if err != nil {
		return nil, err
	}
	c.finish(a.ctx, at)
	return &Result{ItemsCount: snap.ItemsCount(), Synced: synced, CompletedAt: at}, nil
}

// finish does the bookkeeping after the backend holds the local state.
// Failures are logged and do not fail the sync.
func (c *Coordinator) finish(ctx context.Context, at time.Time) {
	if err := c.store.PurgeTombstones(); err != nil {
		c.log.Warnw("failed to purge tombstones", "error", err)
	}
	if err := c.tracker.RecordSync(ctx, at); err != nil {
		c.log.Warnw("failed to record last sync time", "error", err)
	}
}

func (c *Coordinator) restore(a *attempt, token string, opts RestoreOptions) (*Result, error) {
	a.publish(progress.Downloading{Header: a.header(progress.StageDownloading, 20, "Downloading backup")})
	snap, err := c.backend.Restore(a.ctx, token)
	if err != nil {
		return nil, err
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	if err := a.checkpoint(); err != nil {
		return nil, err
	}

	a.publish(progress.Restoring{Header: a.header(progress.StageRestoring, 60, "Restoring data"), ItemsCount: snap.ItemsCount()})

	// Once clearing starts the restore runs to the end.
	ctx := context.WithoutCancel(a.ctx)
	if err := c.store.ClearAll(); err != nil {
		return nil, err
	}
	skipped := c.hydrate(snap)
	if !opts.KeepSettings {
		c.importSettings(ctx, snap.Settings)
	}

	restored, err := c.store.Collect()
	if err != nil {
		return nil, err
	}
	at := c.now()
	synced, err := c.store.MarkSynced(restored, at, nil)
	if err != nil {
		return nil, err
	}
	if err := c.tracker.RecordSync(ctx, at); err != nil {
		c.log.Warnw("failed to record last sync time", "error", err)
	}
	return &Result{ItemsCount: restored.ItemsCount(), Synced: synced, Skipped: skipped, CompletedAt: at}, nil
}

// hydrate recreates every record of snap through the store's import paths.
// Records that fail are logged and skipped. It returns the number skipped.
func (c *Coordinator) hydrate(snap *snapshot.Snapshot) int {
	skipped := 0
	skip := func(kind, id string, err error) {
		if err != nil {
			skipped++
			c.log.Warnw("restore: skipping record", "kind", kind, "id", id, "error", err)
		}
	}

	for _, cat := range snap.Categories {
		skip("category", cat.ID, c.store.ImportCategory(cat))
	}
	for _, w := range snap.Wallets {
		_, err := c.store.ImportWallet(w, snapshot.OpeningBalance(w, snap.Transactions))
		skip("wallet", w.ID, err)
	}

	txns := append([]models.Transaction(nil), snap.Transactions...)
	sort.SliceStable(txns, func(i, j int) bool { return txns[i].Date.Before(txns[j].Date) })
	for _, t := range txns {
		_, err := c.store.ImportTransaction(t)
		skip("transaction", t.ID, err)
	}

	for _, b := range snap.Budgets {
		skip("budget", b.ID, c.store.ImportBudget(b))
	}
	for _, b := range snap.Bills {
		skip("bill", b.ID, c.store.ImportBill(b))
	}
	for _, r := range snap.Reminders {
		skip("reminder", r.ID, c.store.ImportReminder(r))
	}
	for _, g := range snap.Goals {
		skip("goal", g.ID, c.store.ImportGoal(g))
	}
	return skipped
}

// importSettings writes user preferences from a snapshot. Keys outside the
// preference namespace are ignored.
func (c *Coordinator) importSettings(ctx context.Context, settings map[string]string) {
	for k, v := range settings {
		if !strings.HasPrefix(k, kv.PrefPrefix) {
			continue
		}
		if err := c.kv.Set(ctx, k, v); err != nil {
			c.log.Warnw("failed to import setting", "key", k, "error", err)
		}
	}
}

func (c *Coordinator) merge(a *attempt, token string) (*Result, error) {
	a.publish(progress.Downloading{Header: a.header(progress.StageDownloading, 20, "Downloading backup")})
	remoteSnap, err := c.backend.Restore(a.ctx, token)
	switch {
	case apperrors.KindOf(err) == apperrors.KindNotFound:
		remoteSnap = nil
	case err != nil:
		return nil, err
	default:
		if err := remoteSnap.Validate(); err != nil {
			return nil, err
		}
	}
	if err := a.checkpoint(); err != nil {
		return nil, err
	}

	a.publish(progress.Processing{Header: a.header(progress.StageProcessing, 40, "Merging local and cloud data")})
	local, err := c.collect(a.ctx)
	if err != nil {
		return nil, err
	}
	tombstones, err := c.store.Tombstones()
	if err != nil {
		return nil, err
	}
	plan := snapshot.PlanMerge(local, remoteSnap, tombstones)
	stats, err := c.store.ApplyMerge(plan)
	if err != nil {
		return nil, err
	}
	c.importSettings(a.ctx, plan.InsertSettings)
	c.log.Infow("merge applied", "changes", plan.Changes(), "kept_local", plan.KeptLocal, "conflicts", stats.Conflicts, "deleted", stats.Deleted, "skipped", stats.Skipped)
	if err := a.checkpoint(); err != nil {
		return nil, err
	}

	merged, err := c.collect(a.ctx)
	if err != nil {
		return nil, err
	}
	merged.Seal(c.now())
	a.publish(progress.Uploading{Header: a.header(progress.StageUploading, 70, "Uploading merged data"), ItemsCount: merged.ItemsCount()})
	if err := c.backend.Merge(a.ctx, token, merged, string(StrategyMerge)); err != nil {
		return nil, err
	}
	if err := a.checkpoint(); err != nil {
		return nil, err
	}

	at := c.now()
	synced, err := c.store.MarkSynced(merged, at, stats.ConflictIDs)
	if err != nil {
		return nil, err
	}
	c.finish(a.ctx, at)
	return &Result{
		ItemsCount:  merged.ItemsCount(),
		Synced:      synced,
		Skipped:     stats.Skipped,
		Conflicts:   stats.Conflicts,
		CompletedAt: at,
	}, nil
}
