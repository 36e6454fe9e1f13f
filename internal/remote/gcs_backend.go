package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"pocketledger/internal/auth"
	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/snapshot"

	"cloud.google.com/go/storage"
)

// GCSBackend keeps each account's snapshot as one JSON object in a bucket.
// It assumes Application Default Credentials are configured.
type GCSBackend struct {
	client  *storage.Client
	bucket  string
	timeout time.Duration
}

// NewGCSBackend creates a storage client for bucket.
func NewGCSBackend(ctx context.Context, bucket string, timeout time.Duration) (*GCSBackend, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSBackend{client: client, bucket: bucket, timeout: timeout}, nil
}

// Close releases the storage client.
func (b *GCSBackend) Close() error {
	return b.client.Close()
}

// objectName returns the object holding the snapshot of the account token
// belongs to. Tokens without a subject share the default namespace.
func objectName(token string) string {
	namespace := auth.Subject(token)
	if namespace == "" {
		namespace = "default"
	}
	return "backups/" + namespace + "/snapshot.json"
}

// Backup implements Backend.
func (b *GCSBackend) Backup(ctx context.Context, token string, snap *snapshot.Snapshot) (*Receipt, error) {
	if token == "" {
		return nil, apperrors.ErrAuthRequired
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, fmt.Errorf("marshal snapshot: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	name := objectName(token)
	w := b.client.Bucket(b.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return nil, storageError(ctx, fmt.Errorf("write %s: %w", name, err))
	}
	// Close to finalize the upload
	if err := w.Close(); err != nil {
		return nil, storageError(ctx, fmt.Errorf("finalize upload: %w", err))
	}

	attrs := w.Attrs()
	receipt := &Receipt{ID: name, Timestamp: snap.Timestamp, Version: snap.Version}
	if attrs != nil {
		receipt.ID = fmt.Sprintf("%s#%d", name, attrs.Generation)
	}
	return receipt, nil
}

// Restore implements Backend.
func (b *GCSBackend) Restore(ctx context.Context, token string) (*snapshot.Snapshot, error) {
	if token == "" {
		return nil, apperrors.ErrAuthRequired
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	r, err := b.client.Bucket(b.bucket).Object(objectName(token)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, apperrors.WithMessage(apperrors.ErrNotFound, "No cloud backup found")
	}
	if err != nil {
		return nil, storageError(ctx, fmt.Errorf("open GCS object reader: %w", err))
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, storageError(ctx, fmt.Errorf("read GCS object: %w", err))
	}

	snap := snapshot.New()
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrMalformedSnapshot, err)
	}
	return snap, nil
}

// Merge implements Backend. The bucket has no server-side merge, so the
// merged state simply replaces the object.
func (b *GCSBackend) Merge(ctx context.Context, token string, snap *snapshot.Snapshot, _ string) error {
	_, err := b.Backup(ctx, token, snap)
	return err
}

// DeleteBackup implements Backend.
func (b *GCSBackend) DeleteBackup(ctx context.Context, token string) error {
	if token == "" {
		return apperrors.ErrAuthRequired
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	err := b.client.Bucket(b.bucket).Object(objectName(token)).Delete(ctx)
	if err == nil || errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return storageError(ctx, fmt.Errorf("delete GCS object: %w", err))
}

// storageError classifies a storage failure. Deadline and connection
// failures are network errors; everything else is reported by the server.
func storageError(ctx context.Context, err error) error {
	switch {
	case interrupted(ctx):
		return apperrors.Wrap(apperrors.ErrCancelled, err)
	case ctx.Err() != nil:
		return apperrors.Wrap(apperrors.ErrNetwork, err)
	}
	return apperrors.Wrap(apperrors.ErrServer, err)
}
