package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/progress"
	"pocketledger/internal/syncer"
)

// progressBuffer bounds the events queued for one slow stream reader. Older
// events are dropped first since only the latest state matters.
const progressBuffer = 16

// SyncHandler exposes cloud sync controls and the progress stream.
type SyncHandler struct {
	facade SyncFacade
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(facade SyncFacade) *SyncHandler {
	return &SyncHandler{facade: facade}
}

// UpdateSyncConfigRequest represents the sync preferences that can be changed.
type UpdateSyncConfigRequest struct {
	AutoSync             *bool `json:"auto_sync"`
	ReminderIntervalDays *int  `json:"reminder_interval_days" binding:"omitempty,min=1,max=365"`
}

// RestoreRequest represents the options of a restore.
type RestoreRequest struct {
	KeepSettings bool `json:"keep_settings"`
}

// ResolveRequest represents the strategy used to reconcile local and cloud data.
type ResolveRequest struct {
	Strategy string `json:"strategy" binding:"required,sync_strategy"`
}

// GetStatus returns the composed sync status.
func (h *SyncHandler) GetStatus(c *gin.Context) {
	status, err := h.facade.GetSyncStatus(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// GetConfig returns the persisted sync config.
func (h *SyncHandler) GetConfig(c *gin.Context) {
	cfg, err := h.facade.GetSyncConfig(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"config": cfg})
}

// UpdateConfig changes the auto-sync flag and the reminder interval.
func (h *SyncHandler) UpdateConfig(c *gin.Context) {
	var req UpdateSyncConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalid(err))
		return
	}

	ctx := c.Request.Context()
	if req.AutoSync != nil {
		if err := h.facade.SetAutoSync(ctx, *req.AutoSync); err != nil {
			respondWithError(c, err)
			return
		}
	}
	if req.ReminderIntervalDays != nil {
		if err := h.facade.SetReminderInterval(ctx, *req.ReminderIntervalDays); err != nil {
			respondWithError(c, err)
			return
		}
	}
	h.GetConfig(c)
}

// Enable turns cloud sync on.
func (h *SyncHandler) Enable(c *gin.Context) {
	if err := h.facade.EnableSync(c.Request.Context()); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cloud sync enabled"})
}

// Disable turns cloud sync off. Local data is kept.
func (h *SyncHandler) Disable(c *gin.Context) {
	if err := h.facade.DisableSync(c.Request.Context()); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cloud sync disabled"})
}

// Sync uploads local data now.
func (h *SyncHandler) Sync(c *gin.Context) {
	result, err := h.facade.PerformManualSync(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// Restore replaces local data with the cloud backup.
func (h *SyncHandler) Restore(c *gin.Context) {
	var req RestoreRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondWithError(c, invalid(err))
			return
		}
	}

	result, err := h.facade.RestoreFromCloud(c.Request.Context(), syncer.RestoreOptions{KeepSettings: req.KeepSettings})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// Resolve reconciles local and cloud data with the requested strategy.
func (h *SyncHandler) Resolve(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalid(err))
		return
	}

	result, err := h.facade.ResolveConflicts(c.Request.Context(), syncer.Strategy(req.Strategy))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// DeleteBackup removes the cloud backup.
func (h *SyncHandler) DeleteBackup(c *gin.Context) {
	if err := h.facade.DeleteCloudBackup(c.Request.Context()); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cloud backup deleted"})
}

// Cancel asks the running sync to stop at its next stage.
func (h *SyncHandler) Cancel(c *gin.Context) {
	h.facade.CancelSync()
	c.JSON(http.StatusAccepted, gin.H{"message": "Cancellation requested"})
}

// GetReminder reports whether the UI should nudge the user to sync.
func (h *SyncHandler) GetReminder(c *gin.Context) {
	due, err := h.facade.ShouldShowSyncReminder(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"due": due})
}

// ReminderShown records that the reminder was displayed.
func (h *SyncHandler) ReminderShown(c *gin.Context) {
	if err := h.facade.MarkReminderShown(c.Request.Context()); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StreamProgress streams progress events as server-sent events until the
// client disconnects. A "clear" event tells the UI to hide its indicator.
func (h *SyncHandler) StreamProgress(c *gin.Context) {
	channel := h.facade.Progress()
	if channel == nil {
		respondWithError(c, apperrors.ErrNotInitialized)
		return
	}

	events := make(chan progress.Event, progressBuffer)
	unsubscribe := channel.Subscribe(func(e progress.Event) {
		for {
			select {
			case events <- e:
				return
			default:
			}
			select {
			case <-events:
			default:
			}
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	if current := channel.Current(); current != nil {
		c.SSEvent("progress", progress.ToPayload(current))
		c.Writer.Flush()
	}

	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e := <-events:
			if e == nil {
				c.SSEvent("clear", gin.H{})
			} else {
				c.SSEvent("progress", progress.ToPayload(e))
			}
			return true
		}
	})
}
