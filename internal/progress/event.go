// Package progress broadcasts sync progress to UI observers and carries the
// cooperative cancellation flag the sync coordinator polls.
package progress

import (
	"errors"

	apperrors "pocketledger/internal/errors"
)

// Operation names the sync operation an event belongs to.
type Operation string

const (
	OperationBackup  Operation = "backup"
	OperationRestore Operation = "restore"
	OperationMerge   Operation = "merge"
)

// Stage names a phase of a sync operation.
type Stage string

const (
	StageCollecting  Stage = "collecting"
	StageUploading   Stage = "uploading"
	StageDownloading Stage = "downloading"
	StageRestoring   Stage = "restoring"
	StageProcessing  Stage = "processing"
	StageComplete    Stage = "complete"
	StageCancelled   Stage = "cancelled"
	StageError       Stage = "error"
)

// Header carries the fields every event has.
type Header struct {
	Operation Operation
	Stage     Stage
	Progress  int
	Message   string
}

// Event is one progress update. The concrete type tells which stage it is.
type Event interface {
	header() Header
}

func (h Header) header() Header { return h }

// Collecting: reading local data into a snapshot.
type Collecting struct{ Header }

// Uploading: sending the snapshot to the backend.
type Uploading struct {
	Header
	ItemsCount int
}

// Downloading: fetching the remote snapshot.
type Downloading struct{ Header }

// Restoring: replacing local data with the downloaded snapshot.
type Restoring struct {
	Header
	ItemsCount int
}

// Processing: reconciling local and remote data.
type Processing struct{ Header }

// Completed is terminal.
type Completed struct {
	Header
	ItemsCount int
}

// Cancelled is terminal and not a failure.
type Cancelled struct{ Header }

// Failed is terminal. Err is the error the operation returned.
type Failed struct {
	Header
	Err error
}

// Payload is the flat shape the UI renders.
type Payload struct {
	Operation  Operation `json:"operation"`
	Stage      Stage     `json:"stage"`
	Progress   int       `json:"progress"`
	Message    string    `json:"message"`
	Complete   bool      `json:"complete,omitempty"`
	Cancelled  bool      `json:"cancelled,omitempty"`
	Failed     bool      `json:"failed,omitempty"`
	Error      string    `json:"error,omitempty"`
	ErrorCode  string    `json:"error_code,omitempty"`
	Retryable  bool      `json:"retryable,omitempty"`
	ItemsCount *int      `json:"items_count,omitempty"`
}

// ToPayload flattens e.
func ToPayload(e Event) Payload {
	h := e.header()
	p := Payload{Operation: h.Operation, Stage: h.Stage, Progress: h.Progress, Message: h.Message}

	switch v := e.(type) {
	case Uploading:
		p.ItemsCount = intPtr(v.ItemsCount)
	case Restoring:
		p.ItemsCount = intPtr(v.ItemsCount)
	case Completed:
		p.Complete = true
		p.ItemsCount = intPtr(v.ItemsCount)
	case Cancelled:
		p.Cancelled = true
	case Failed:
		p.Failed = true
		if v.Err != nil {
			p.Error = v.Err.Error()
			p.Retryable = apperrors.IsRetryable(v.Err)
			var appErr *apperrors.AppError
			if errors.As(v.Err, &appErr) {
				p.ErrorCode = appErr.Code
			}
		}
	}
	return p
}

func intPtr(n int) *int { return &n }
