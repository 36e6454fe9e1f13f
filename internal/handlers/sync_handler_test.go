package handlers

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/progress"
	"pocketledger/internal/syncer"
	"pocketledger/internal/syncstatus"
)

// --- mock sync facade ---

type mockSync struct {
	cfg       syncstatus.Config
	cancelled bool
	channel   *progress.Channel

	getSyncStatusFn     func(ctx context.Context) (*syncstatus.Status, error)
	performSyncFn       func(ctx context.Context) (*syncer.Result, error)
	restoreFn           func(ctx context.Context, opts syncer.RestoreOptions) (*syncer.Result, error)
	resolveFn           func(ctx context.Context, strategy syncer.Strategy) (*syncer.Result, error)
	markReminderShownFn func(ctx context.Context) error
}

func (m *mockSync) EnableSync(context.Context) error  { m.cfg.Enabled = true; return nil }
func (m *mockSync) DisableSync(context.Context) error { m.cfg.Enabled = false; return nil }

func (m *mockSync) SetAutoSync(_ context.Context, enabled bool) error {
	m.cfg.AutoSync = enabled
	return nil
}

func (m *mockSync) SetReminderInterval(_ context.Context, days int) error {
	m.cfg.ReminderIntervalDays = days
	return nil
}

func (m *mockSync) GetSyncConfig(context.Context) (*syncstatus.Config, error) {
	cfg := m.cfg
	return &cfg, nil
}

func (m *mockSync) GetSyncStatus(ctx context.Context) (*syncstatus.Status, error) {
	if m.getSyncStatusFn != nil {
		return m.getSyncStatusFn(ctx)
	}
	return &syncstatus.Status{}, nil
}

func (m *mockSync) PerformManualSync(ctx context.Context) (*syncer.Result, error) {
	if m.performSyncFn != nil {
		return m.performSyncFn(ctx)
	}
	return &syncer.Result{Operation: progress.OperationBackup}, nil
}

func (m *mockSync) RestoreFromCloud(ctx context.Context, opts syncer.RestoreOptions) (*syncer.Result, error) {
	if m.restoreFn != nil {
		return m.restoreFn(ctx, opts)
	}
	return &syncer.Result{Operation: progress.OperationRestore}, nil
}

func (m *mockSync) ResolveConflicts(ctx context.Context, strategy syncer.Strategy) (*syncer.Result, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, strategy)
	}
	return &syncer.Result{Operation: progress.OperationMerge}, nil
}

func (m *mockSync) DeleteCloudBackup(context.Context) error { return nil }

func (m *mockSync) ShouldShowSyncReminder(context.Context) (bool, error) { return true, nil }

func (m *mockSync) MarkReminderShown(ctx context.Context) error {
	if m.markReminderShownFn != nil {
		return m.markReminderShownFn(ctx)
	}
	return nil
}

func (m *mockSync) CancelSync() { m.cancelled = true }

func (m *mockSync) Progress() *progress.Channel { return m.channel }

var _ SyncFacade = (*mockSync)(nil)

func setupSyncRouter(handler *SyncHandler) *gin.Engine {
	r := gin.New()
	r.GET("/sync/status", handler.GetStatus)
	r.GET("/sync/config", handler.GetConfig)
	r.PUT("/sync/config", handler.UpdateConfig)
	r.POST("/sync/enable", handler.Enable)
	r.POST("/sync/run", handler.Sync)
	r.POST("/sync/restore", handler.Restore)
	r.POST("/sync/resolve", handler.Resolve)
	r.POST("/sync/cancel", handler.Cancel)
	r.GET("/sync/reminder", handler.GetReminder)
	r.POST("/sync/reminder/shown", handler.ReminderShown)
	r.GET("/sync/progress", handler.StreamProgress)
	return r
}

// --- tests ---

func TestSyncHandler_GetStatus(t *testing.T) {
	t.Run("returns status", func(t *testing.T) {
		mock := &mockSync{
			getSyncStatusFn: func(context.Context) (*syncstatus.Status, error) {
				return &syncstatus.Status{Enabled: true, UnsyncedItems: 4}, nil
			},
		}
		r := setupSyncRouter(NewSyncHandler(mock))
		rec := doRequest(r, "GET", "/sync/status", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		status := parseJSON(t, rec)["status"].(map[string]interface{})
		if status["unsynced_items"] != float64(4) || status["enabled"] != true {
			t.Errorf("unexpected status: %v", status)
		}
	})

	t.Run("returns 503 before initialization", func(t *testing.T) {
		mock := &mockSync{
			getSyncStatusFn: func(context.Context) (*syncstatus.Status, error) { return nil, apperrors.ErrNotInitialized },
		}
		r := setupSyncRouter(NewSyncHandler(mock))
		rec := doRequest(r, "GET", "/sync/status", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "NOT_INITIALIZED")
	})
}

func TestSyncHandler_UpdateConfig(t *testing.T) {
	t.Run("applies provided fields", func(t *testing.T) {
		mock := &mockSync{cfg: syncstatus.Config{ReminderIntervalDays: 7}}
		r := setupSyncRouter(NewSyncHandler(mock))
		rec := doRequest(r, "PUT", "/sync/config", `{"auto_sync":true,"reminder_interval_days":14}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		cfg := parseJSON(t, rec)["config"].(map[string]interface{})
		if cfg["auto_sync"] != true || cfg["reminder_interval_days"] != float64(14) {
			t.Errorf("unexpected config: %v", cfg)
		}
	})

	t.Run("returns 400 on out of range interval", func(t *testing.T) {
		mock := &mockSync{cfg: syncstatus.Config{ReminderIntervalDays: 7}}
		r := setupSyncRouter(NewSyncHandler(mock))
		rec := doRequest(r, "PUT", "/sync/config", `{"reminder_interval_days":0}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if mock.cfg.ReminderIntervalDays != 7 {
			t.Errorf("expected interval unchanged, got %d", mock.cfg.ReminderIntervalDays)
		}
	})
}

func TestSyncHandler_Sync(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"disabled", apperrors.ErrSyncDisabled, http.StatusConflict, "SYNC_DISABLED"},
		{"signed out", apperrors.ErrAuthRequired, http.StatusUnauthorized, "AUTH_REQUIRED"},
		{"offline", apperrors.ErrNetwork, http.StatusBadGateway, "NETWORK_ERROR"},
		{"cancelled", apperrors.ErrCancelled, http.StatusConflict, "SYNC_CANCELLED"},
	}
	for _, tt := range tests {
		t.Run("maps "+tt.name, func(t *testing.T) {
			mock := &mockSync{
				performSyncFn: func(context.Context) (*syncer.Result, error) { return nil, tt.err },
			}
			r := setupSyncRouter(NewSyncHandler(mock))
			rec := doRequest(r, "POST", "/sync/run", "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			assertErrorCode(t, parseJSON(t, rec), tt.wantCode)
		})
	}

	t.Run("returns the result", func(t *testing.T) {
		mock := &mockSync{
			performSyncFn: func(context.Context) (*syncer.Result, error) {
				return &syncer.Result{Operation: progress.OperationBackup, ItemsCount: 12}, nil
			},
		}
		r := setupSyncRouter(NewSyncHandler(mock))
		rec := doRequest(r, "POST", "/sync/run", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)["result"].(map[string]interface{})
		if result["items_count"] != float64(12) || result["operation"] != "backup" {
			t.Errorf("unexpected result: %v", result)
		}
	})
}

func TestSyncHandler_Restore(t *testing.T) {
	t.Run("accepts an empty body", func(t *testing.T) {
		var got *syncer.RestoreOptions
		mock := &mockSync{
			restoreFn: func(_ context.Context, opts syncer.RestoreOptions) (*syncer.Result, error) {
				got = &opts
				return &syncer.Result{}, nil
			},
		}
		r := setupSyncRouter(NewSyncHandler(mock))
		rec := doRequest(r, "POST", "/sync/restore", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got == nil || got.KeepSettings {
			t.Errorf("unexpected options: %+v", got)
		}
	})

	t.Run("forwards keep_settings", func(t *testing.T) {
		var got syncer.RestoreOptions
		mock := &mockSync{
			restoreFn: func(_ context.Context, opts syncer.RestoreOptions) (*syncer.Result, error) {
				got = opts
				return &syncer.Result{}, nil
			},
		}
		r := setupSyncRouter(NewSyncHandler(mock))
		rec := doRequest(r, "POST", "/sync/restore", `{"keep_settings":true}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !got.KeepSettings {
			t.Error("expected keep_settings to be forwarded")
		}
	})

	t.Run("maps malformed snapshot", func(t *testing.T) {
		mock := &mockSync{
			restoreFn: func(context.Context, syncer.RestoreOptions) (*syncer.Result, error) {
				return nil, apperrors.ErrMalformedSnapshot
			},
		}
		r := setupSyncRouter(NewSyncHandler(mock))
		rec := doRequest(r, "POST", "/sync/restore", "")
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "MALFORMED_SNAPSHOT")
	})
}

func TestSyncHandler_Resolve(t *testing.T) {
	t.Run("forwards the strategy", func(t *testing.T) {
		var got syncer.Strategy
		mock := &mockSync{
			resolveFn: func(_ context.Context, strategy syncer.Strategy) (*syncer.Result, error) {
				got = strategy
				return &syncer.Result{}, nil
			},
		}
		r := setupSyncRouter(NewSyncHandler(mock))
		rec := doRequest(r, "POST", "/sync/resolve", `{"strategy":"local-wins"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got != syncer.StrategyLocalWins {
			t.Errorf("expected local-wins, got %q", got)
		}
	})

	for _, body := range []string{`{}`, `{"strategy":"newest"}`} {
		t.Run("returns 400 for "+body, func(t *testing.T) {
			r := setupSyncRouter(NewSyncHandler(&mockSync{}))
			rec := doRequest(r, "POST", "/sync/resolve", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestSyncHandler_CancelAndReminder(t *testing.T) {
	mock := &mockSync{}
	r := setupSyncRouter(NewSyncHandler(mock))

	rec := doRequest(r, "POST", "/sync/cancel", "")
	if rec.Code != http.StatusAccepted || !mock.cancelled {
		t.Fatalf("expected 202 and cancel requested, got %d cancelled=%v", rec.Code, mock.cancelled)
	}

	rec = doRequest(r, "GET", "/sync/reminder", "")
	if rec.Code != http.StatusOK || parseJSON(t, rec)["due"] != true {
		t.Errorf("expected due reminder, got %d %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(r, "POST", "/sync/reminder/shown", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestSyncHandler_StreamProgress(t *testing.T) {
	channel := progress.NewChannel()
	channel.Publish(progress.Collecting{Header: progress.Header{
		Operation: progress.OperationBackup,
		Stage:     progress.StageCollecting,
		Progress:  10,
		Message:   "Collecting local data",
	}})

	srv := httptest.NewServer(setupSyncRouter(NewSyncHandler(&mockSync{channel: channel})))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sync/progress", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("expected event stream, got %q", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	nextEvent := func() (string, string) {
		t.Helper()
		var name, data string
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				name = strings.TrimPrefix(line, "event:")
			case strings.HasPrefix(line, "data:"):
				data = strings.TrimPrefix(line, "data:")
			case line == "" && name != "":
				return name, data
			}
		}
		t.Fatalf("stream ended: %v", scanner.Err())
		return "", ""
	}

	name, data := nextEvent()
	if name != "progress" || !strings.Contains(data, `"stage":"collecting"`) {
		t.Fatalf("expected current progress first, got %s %s", name, data)
	}

	channel.Clear()
	if name, _ := nextEvent(); name != "clear" {
		t.Fatalf("expected clear event, got %s", name)
	}

	channel.Publish(progress.Completed{Header: progress.Header{
		Operation: progress.OperationBackup,
		Stage:     progress.StageComplete,
		Progress:  100,
	}, ItemsCount: 3})
	name, data = nextEvent()
	if name != "progress" || !strings.Contains(data, `"complete":true`) || !strings.Contains(data, `"items_count":3`) {
		t.Fatalf("unexpected completed event: %s %s", name, data)
	}
}
