package syncer

import (
	"context"
	"testing"
	"time"

	"pocketledger/internal/models"
	"pocketledger/internal/testutil"
)

func TestAutoSyncerTick(t *testing.T) {
	ctx := context.Background()

	t.Run("syncs_when_due", func(t *testing.T) {
		f := newFixture(t, &fakeBackend{}, "tok")
		f.enable(t)
		mustWallet(t, f, "Cash", models.WalletTypeCash, "10")
		auto := NewAutoSyncer(f.coord, f.tracker, time.Minute)

		if !auto.Tick(ctx) {
			t.Fatal("expected a sync to run")
		}
		if f.unsynced(t) != 0 {
			t.Error("expected everything synced")
		}
		if auto.Tick(ctx) {
			t.Error("expected nothing to do on second tick")
		}
	})

	t.Run("respects_toggles", func(t *testing.T) {
		f := newFixture(t, &fakeBackend{}, "tok")
		mustWallet(t, f, "Cash", models.WalletTypeCash, "10")
		auto := NewAutoSyncer(f.coord, f.tracker, time.Minute)

		if auto.Tick(ctx) {
			t.Error("expected no sync while disabled")
		}

		f.enable(t)
		testutil.AssertNoError(t, f.tracker.SetAutoSync(ctx, false))
		if auto.Tick(ctx) {
			t.Error("expected no sync with auto sync off")
		}
	})

	t.Run("signed_out", func(t *testing.T) {
		f := newFixture(t, &fakeBackend{}, "")
		f.enable(t)
		mustWallet(t, f, "Cash", models.WalletTypeCash, "10")
		if NewAutoSyncer(f.coord, f.tracker, time.Minute).Tick(ctx) {
			t.Error("expected no sync without a session")
		}
	})
}

func TestAutoSyncerStartStop(t *testing.T) {
	f := newFixture(t, &fakeBackend{}, "tok")
	f.enable(t)
	mustWallet(t, f, "Cash", models.WalletTypeCash, "10")

	auto := NewAutoSyncer(f.coord, f.tracker, 10*time.Millisecond)
	auto.Start(context.Background())
	auto.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for f.unsynced(t) != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	auto.Stop()
	auto.Stop()

	if f.unsynced(t) != 0 {
		t.Error("expected the worker to sync pending records")
	}
}

func TestAutoSyncerDisabledInterval(t *testing.T) {
	f := newFixture(t, &fakeBackend{}, "tok")
	auto := NewAutoSyncer(f.coord, f.tracker, 0)
	auto.Start(context.Background())
	auto.Stop()
}
