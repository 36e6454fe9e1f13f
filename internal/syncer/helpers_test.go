package syncer

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"pocketledger/internal/auth"
	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/kv"
	"pocketledger/internal/progress"
	"pocketledger/internal/remote"
	"pocketledger/internal/services"
	"pocketledger/internal/snapshot"
	"pocketledger/internal/syncstatus"
	"pocketledger/internal/testutil"

	"gorm.io/gorm"
)

// fakeBackend keeps one JSON-encoded snapshot in memory.
type fakeBackend struct {
	mu           sync.Mutex
	stored       []byte
	backupErr    error
	restoreErr   error
	onBackup     func()
	backups      int
	merges       int
	lastStrategy string
}

var _ remote.Backend = (*fakeBackend)(nil)

func (f *fakeBackend) put(t *testing.T, snap *snapshot.Snapshot) {
	t.Helper()
	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	f.mu.Lock()
	f.stored = raw
	f.mu.Unlock()
}

func (f *fakeBackend) current(t *testing.T) *snapshot.Snapshot {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stored == nil {
		return nil
	}
	snap := snapshot.New()
	if err := json.Unmarshal(f.stored, snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	return snap
}

func (f *fakeBackend) Backup(_ context.Context, token string, snap *snapshot.Snapshot) (*remote.Receipt, error) {
	if f.onBackup != nil {
		f.onBackup()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.backupErr != nil {
		return nil, f.backupErr
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	f.stored = raw
	f.backups++
	return &remote.Receipt{ID: "bk", Timestamp: snap.Timestamp, Version: snap.Version}, nil
}

func (f *fakeBackend) Restore(_ context.Context, _ string) (*snapshot.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.restoreErr != nil {
		return nil, f.restoreErr
	}
	if f.stored == nil {
		return nil, apperrors.WithMessage(apperrors.ErrNotFound, "No cloud backup found")
	}
	snap := snapshot.New()
	if err := json.Unmarshal(f.stored, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (f *fakeBackend) Merge(ctx context.Context, token string, snap *snapshot.Snapshot, strategy string) error {
	_, err := f.Backup(ctx, token, snap)
	f.mu.Lock()
	f.merges++
	f.lastStrategy = strategy
	f.mu.Unlock()
	return err
}

func (f *fakeBackend) DeleteBackup(context.Context, string) error {
	f.mu.Lock()
	f.stored = nil
	f.mu.Unlock()
	return nil
}

type fixture struct {
	ledger  *services.Ledger
	db      *gorm.DB
	kv      kv.Store
	backend *fakeBackend
	tokens  *auth.TokenSource
	tracker *syncstatus.Tracker
	coord   *Coordinator

	mu     sync.Mutex
	events []progress.Event
}

func newFixture(t *testing.T, backend *fakeBackend, token string) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	ledger := services.NewLedger(db)
	store := kv.NewGormStore(db)
	tokens := auth.NewTokenSource(store, token)
	tracker := syncstatus.NewTracker(store, ledger.Snapshots, tokens, 7)
	channel := progress.NewChannel()

	f := &fixture{ledger: ledger, db: db, kv: store, backend: backend, tokens: tokens, tracker: tracker}
	f.coord = NewCoordinator(Deps{
		Store:   ledger.Snapshots,
		KV:      store,
		Backend: backend,
		Tokens:  tokens,
		Tracker: tracker,
		Channel: channel,
		Clock:   time.Now,
	})
	channel.Subscribe(func(e progress.Event) {
		f.mu.Lock()
		f.events = append(f.events, e)
		f.mu.Unlock()
	})
	return f
}

func (f *fixture) enable(t *testing.T) {
	t.Helper()
	testutil.AssertNoError(t, f.coord.EnableSync(context.Background()))
}

func (f *fixture) unsynced(t *testing.T) int64 {
	t.Helper()
	n, err := f.ledger.Snapshots.CountUnsynced()
	testutil.AssertNoError(t, err)
	return n
}

func (f *fixture) lastEvent() progress.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return nil
	}
	return f.events[len(f.events)-1]
}

func (f *fixture) stages() []progress.Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]progress.Stage, 0, len(f.events))
	for _, e := range f.events {
		if e != nil {
			out = append(out, progress.ToPayload(e).Stage)
		}
	}
	return out
}
