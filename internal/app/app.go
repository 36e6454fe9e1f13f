// Package app is the facade the UI talks to. It owns the lifecycle of the
// local store and the sync machinery and exposes one API over both.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pocketledger/internal/auth"
	"pocketledger/internal/config"
	"pocketledger/internal/database"
	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/kv"
	"pocketledger/internal/logger"
	"pocketledger/internal/progress"
	"pocketledger/internal/remote"
	"pocketledger/internal/services"
	"pocketledger/internal/syncer"
	"pocketledger/internal/syncstatus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options overrides collaborators that Initialize would otherwise build from
// the config. Zero values mean "build from config".
type Options struct {
	DB      *gorm.DB
	KV      kv.Store
	Backend remote.Backend
	Clock   func() time.Time
}

// App is the hybrid facade. All methods fail with ErrNotInitialized until
// Initialize has completed.
type App struct {
	cfg     *config.Config
	opts    Options
	channel *progress.Channel
	log     *zap.SugaredLogger

	mu sync.RWMutex
	st *state
}

// state is everything built by Initialize.
type state struct {
	manager *database.Manager
	ledger  *services.Ledger
	kv      kv.Store
	tokens  *auth.TokenSource
	tracker *syncstatus.Tracker
	coord   *syncer.Coordinator
	auto    *syncer.AutoSyncer
	closers []func() error
}

// New creates an uninitialized App. The progress channel exists from the start
// so observers can subscribe before the first sync.
func New(cfg *config.Config, opts Options) *App {
	return &App{
		cfg:     cfg,
		opts:    opts,
		channel: progress.NewChannel(),
		log:     logger.Named("app"),
	}
}

// Initialize opens the database, seeds defaults and starts the sync machinery.
// Calling it again after success is a no-op.
func (a *App) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.st != nil {
		return nil
	}

	st := &state{}
	if err := a.build(ctx, st); err != nil {
		closeAll(st.closers)
		return err
	}
	a.st = st

	if posted, err := st.ledger.Planning.PostDueReminders(); err != nil {
		a.log.Warnw("posting due reminders failed", "error", err)
	} else if len(posted) > 0 {
		a.log.Infow("posted due reminders", "count", len(posted))
	}

	st.auto.Start(context.Background())
	a.log.Infow("app initialized", "backend", a.cfg.SyncBackend, "db_driver", a.cfg.DBDriver)
	return nil
}

func (a *App) build(ctx context.Context, st *state) error {
	db := a.opts.DB
	if db == nil {
		manager, err := database.NewManager(database.NewConfig(a.cfg))
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternal, err)
		}
		st.manager = manager
		st.closers = append(st.closers, manager.Close)
		if err := manager.Migrate(); err != nil {
			return apperrors.Wrap(apperrors.ErrInternal, err)
		}
		db = manager.DB()
	}

	store, err := a.kvStore(ctx, db, st)
	if err != nil {
		return err
	}
	st.kv = store

	var ledgerOpts []services.Option
	if a.opts.Clock != nil {
		ledgerOpts = append(ledgerOpts, services.WithClock(a.opts.Clock))
	}
	st.ledger = services.NewLedger(db, ledgerOpts...)

	if _, err := st.ledger.Categories.SeedDefaultCategories(); err != nil {
		return err
	}
	if err := seedWallets(ctx, st); err != nil {
		return err
	}

	st.tokens = auth.NewTokenSource(st.kv, a.cfg.SyncAuthToken)
	st.tracker = syncstatus.NewTracker(st.kv, st.ledger.Snapshots, st.tokens, a.cfg.ReminderIntervalDays)
	if a.opts.Clock != nil {
		st.tokens.WithClock(a.opts.Clock)
		st.tracker.WithClock(a.opts.Clock)
	}

	backend, err := a.backend(ctx, st)
	if err != nil {
		return err
	}

	st.coord = syncer.NewCoordinator(syncer.Deps{
		Store:   st.ledger.Snapshots,
		KV:      st.kv,
		Backend: backend,
		Tokens:  st.tokens,
		Tracker: st.tracker,
		Channel: a.channel,
		Clock:   a.opts.Clock,
	})
	st.auto = syncer.NewAutoSyncer(st.coord, st.tracker, a.cfg.AutoSyncInterval)
	return nil
}

func (a *App) kvStore(ctx context.Context, db *gorm.DB, st *state) (kv.Store, error) {
	if a.opts.KV != nil {
		return a.opts.KV, nil
	}
	if a.cfg.RedisURL == "" {
		return kv.NewGormStore(db), nil
	}
	store, err := kv.NewRedisStore(ctx, a.cfg.RedisURL)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, err)
	}
	st.closers = append(st.closers, store.Close)
	return store, nil
}

func (a *App) backend(ctx context.Context, st *state) (remote.Backend, error) {
	if a.opts.Backend != nil {
		return a.opts.Backend, nil
	}
	switch a.cfg.SyncBackend {
	case config.BackendGCS:
		gcs, err := remote.NewGCSBackend(ctx, a.cfg.SyncGCSBucket, a.cfg.RequestTimeout)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternal, err)
		}
		st.closers = append(st.closers, gcs.Close)
		return gcs, nil
	case config.BackendHTTP, "":
		return remote.NewHTTPClient(a.cfg.SyncAPIURL, a.cfg.RequestTimeout), nil
	default:
		return nil, apperrors.Wrap(apperrors.ErrInternal, fmt.Errorf("unknown sync backend %q", a.cfg.SyncBackend))
	}
}

// seedWallets creates the default wallets on first launch only. The kv marker
// keeps a restore down to zero wallets from being reseeded.
func seedWallets(ctx context.Context, st *state) error {
	_, seeded, err := st.kv.Get(ctx, kv.KeySeedWallets)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, err)
	}
	if seeded {
		return nil
	}
	if _, err := st.ledger.Wallets.SeedDefaultWallets(); err != nil {
		return err
	}
	if err := st.kv.Set(ctx, kv.KeySeedWallets, "1"); err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, err)
	}
	return nil
}

// Shutdown stops the auto-sync worker and releases the database and any
// backend connections. The App may be initialized again afterwards.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	st := a.st
	a.st = nil
	a.mu.Unlock()
	if st == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		st.auto.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warnw("auto sync did not stop before shutdown deadline")
	}

	if err := closeAll(st.closers); err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, err)
	}
	a.log.Info("app shut down")
	return nil
}

// Initialized reports whether Initialize has completed.
func (a *App) Initialized() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.st != nil
}

func (a *App) state() (*state, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.st == nil {
		return nil, apperrors.ErrNotInitialized
	}
	return a.st, nil
}

// closeAll runs closers in reverse order and returns the first error.
func closeAll(closers []func() error) error {
	var first error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
