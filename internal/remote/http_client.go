package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/snapshot"
)

// maxErrorBody caps how much of a failed response is kept for logs.
const maxErrorBody = 4 << 10

// HTTPClient consumes the sync service's /sync endpoints.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a client for the API rooted at baseURL. Requests are
// bounded by timeout.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return NewHTTPClientWith(baseURL, &http.Client{Timeout: timeout})
}

// NewHTTPClientWith creates a client using httpClient.
func NewHTTPClientWith(baseURL string, httpClient *http.Client) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Backup posts snap to /sync/backup.
func (c *HTTPClient) Backup(ctx context.Context, token string, snap *snapshot.Snapshot) (*Receipt, error) {
	var result struct {
		envelope
		Backup Receipt `json:"backup"`
	}
	if err := c.do(ctx, http.MethodPost, "/sync/backup", token, snap, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, serverError("backup", result.Error)
	}
	return &result.Backup, nil
}

// Restore fetches the remote snapshot from /sync/restore.
func (c *HTTPClient) Restore(ctx context.Context, token string) (*snapshot.Snapshot, error) {
	var result struct {
		envelope
		Data      *snapshot.Data `json:"data"`
		Timestamp time.Time      `json:"timestamp"`
		Version   int            `json:"version"`
		Checksum  string         `json:"checksum,omitempty"`
	}
	if err := c.do(ctx, http.MethodGet, "/sync/restore", token, nil, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, serverError("restore", result.Error)
	}
	if result.Data == nil {
		return nil, apperrors.WithMessage(apperrors.ErrMalformedSnapshot, "cloud backup has no data")
	}

	snap := snapshot.New()
	snap.Data = *result.Data
	snap.Timestamp = result.Timestamp
	snap.Version = result.Version
	snap.Checksum = result.Checksum
	return snap, nil
}

// Merge posts the merged local state to /sync/merge.
func (c *HTTPClient) Merge(ctx context.Context, token string, snap *snapshot.Snapshot, strategy string) error {
	body := struct {
		LocalData *snapshot.Snapshot `json:"localData"`
		Strategy  string             `json:"strategy"`
	}{LocalData: snap, Strategy: strategy}

	var result struct {
		envelope
		Merged   bool   `json:"merged"`
		Strategy string `json:"strategy"`
	}
	if err := c.do(ctx, http.MethodPost, "/sync/merge", token, body, &result); err != nil {
		return err
	}
	if !result.Success {
		return serverError("merge", result.Error)
	}
	return nil
}

// DeleteBackup removes the remote snapshot. Deleting a missing backup succeeds.
func (c *HTTPClient) DeleteBackup(ctx context.Context, token string) error {
	var result envelope
	err := c.do(ctx, http.MethodDelete, "/sync/backup", token, nil, &result)
	if apperrors.KindOf(err) == apperrors.KindNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if !result.Success {
		return serverError("delete backup", result.Error)
	}
	return nil
}

// do sends one JSON request and decodes the response into out.
func (c *HTTPClient) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	if token == "" {
		return apperrors.ErrAuthRequired
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternal, fmt.Errorf("marshaling %s body: %w", path, err))
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, fmt.Errorf("creating request: %w", err))
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if interrupted(ctx) {
			return apperrors.Wrap(apperrors.ErrCancelled, err)
		}
		return apperrors.Wrap(apperrors.ErrNetwork, fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.Wrap(apperrors.ErrAuthRequired, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.WithMessage(apperrors.ErrNotFound, "No cloud backup found")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apperrors.Wrap(apperrors.ErrServer, fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(detail))))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if interrupted(ctx) {
			return apperrors.Wrap(apperrors.ErrCancelled, err)
		}
		return apperrors.Wrap(apperrors.ErrMalformedSnapshot, fmt.Errorf("decoding %s response: %w", path, err))
	}
	return nil
}

func serverError(op, detail string) error {
	if detail == "" {
		detail = "request was not successful"
	}
	return apperrors.Wrap(apperrors.ErrServer, fmt.Errorf("%s: %s", op, detail))
}
