package models

import (
	"time"

	"pocketledger/internal/uuid"

	"gorm.io/gorm"
)

// Base contains common columns for all tables
type Base struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook generates a UUIDv7 for new records. Records imported from
// a cloud snapshot keep the id they already carry.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	return nil
}

// SyncState is the per-record sync badge shown by the UI. It is derived from
// SyncMeta and never stored.
type SyncState string

const (
	SyncStateSynced      SyncState = "synced"
	SyncStatePendingSync SyncState = "pending_sync"
	SyncStateLocalOnly   SyncState = "local_only"
	SyncStateConflict    SyncState = "conflict"
)

// SyncMeta is the dirty-tracking bookkeeping carried by every syncable record.
// Revision grows on each local mutation; a sync only clears IsDirty when the
// revision it uploaded is still current.
type SyncMeta struct {
	LastSynced *time.Time `json:"last_synced,omitempty"`
	IsDirty    bool       `gorm:"not null;index" json:"is_dirty"`
	Revision   int64      `gorm:"not null" json:"revision"`
}

// Touch records a local mutation.
func (m *SyncMeta) Touch() {
	m.IsDirty = true
	m.LastSynced = nil
	m.Revision++
}

// Unsynced reports whether the record still has to be uploaded.
func (m SyncMeta) Unsynced() bool {
	return m.IsDirty || m.LastSynced == nil
}

// State derives the UI sync badge.
func (m SyncMeta) State() SyncState {
	switch {
	case !m.IsDirty && m.LastSynced != nil:
		return SyncStateSynced
	case m.IsDirty && m.LastSynced != nil:
		return SyncStateConflict
	case m.IsDirty:
		return SyncStatePendingSync
	default:
		return SyncStateLocalOnly
	}
}
