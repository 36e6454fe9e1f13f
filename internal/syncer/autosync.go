package syncer

import (
	"context"
	"sync"
	"time"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/syncstatus"
)

// AutoSyncer periodically runs PerformFullSync while sync and auto sync are
// enabled, the user is signed in and there is something to upload.
type AutoSyncer struct {
	coord    *Coordinator
	tracker  *syncstatus.Tracker
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewAutoSyncer returns a worker ticking every interval. A non-positive
// interval disables it.
func NewAutoSyncer(coord *Coordinator, tracker *syncstatus.Tracker, interval time.Duration) *AutoSyncer {
	return &AutoSyncer{coord: coord, tracker: tracker, interval: interval}
}

// Start launches the worker. Calling Start on a running worker is a no-op.
func (a *AutoSyncer) Start(ctx context.Context) {
	if a.interval <= 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.running = true

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.Tick(ctx)
			}
		}
	}()
	a.coord.log.Infow("auto sync started", "interval", a.interval)
}

// Stop halts the worker and waits for an in-flight tick to finish.
func (a *AutoSyncer) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.cancel()
	a.running = false
	a.mu.Unlock()

	a.wg.Wait()
	a.coord.log.Infow("auto sync stopped")
}

// Tick runs one sync if it is due and reports whether it ran. Errors are
// logged, never returned.
func (a *AutoSyncer) Tick(ctx context.Context) bool {
	status, err := a.tracker.GetSyncStatus(ctx)
	if err != nil {
		a.coord.log.Warnw("auto sync: failed to read sync status", "error", err)
		return false
	}
	if !status.Enabled || !status.AutoSync || !status.Authenticated || status.UnsyncedItems == 0 {
		return false
	}

	_, err = a.coord.PerformFullSync(ctx)
	switch apperrors.KindOf(err) {
	case apperrors.KindCancelled:
	case apperrors.KindConflict:
		a.coord.log.Debugw("auto sync: skipped, another sync is running")
		return false
	default:
		if err != nil {
			a.coord.log.Warnw("auto sync failed", "error", err)
		}
	}
	return true
}
