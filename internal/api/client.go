// Package api is the HTTP client for the case-management backend. It owns
// request mechanics (auth, JSON encoding, status mapping) and nothing else;
// transfer planning and stream decoding live in their own packages.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/caseboard/casewire/internal/model"
)

// ErrPayloadTooLarge marks a request the transport refused for size
// (HTTP 413). The transfer planner uses it to tell a recoverable size
// rejection apart from a fatal transport failure.
var ErrPayloadTooLarge = errors.New("payload too large")

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *slog.Logger
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		log:     slog.Default().With("component", "api"),
	}
}

// postJSON sends a JSON payload and drains the response. A 413 maps to
// ErrPayloadTooLarge; any other non-2xx status is a plain error carrying a
// snippet of the response body.
func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		return fmt.Errorf("%s rejected %d bytes: %w", path, len(body), ErrPayloadTooLarge)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, snippet)
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// PostSnapshot sends a whole snapshot in a single request.
func (c *Client) PostSnapshot(ctx context.Context, snap *model.Snapshot) error {
	return c.postJSON(ctx, "/api/snapshots", snap)
}

// PostChunk sends one chunk and waits for its acknowledgement. The caller
// must not send chunk n+1 before this returns for chunk n.
func (c *Client) PostChunk(ctx context.Context, chunk *model.Chunk) error {
	return c.postJSON(ctx, "/api/snapshots/chunks", chunk)
}

// GetSnapshot fetches a saved snapshot by id.
func (c *Client) GetSnapshot(ctx context.Context, snapshotID string) (*model.Snapshot, error) {
	endpoint := c.baseURL + "/api/snapshots/" + url.PathEscape(snapshotID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("snapshot fetch returned %d: %s", resp.StatusCode, snippet)
	}

	var snap model.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// SimilarityStream opens the server-driven progress stream for an
// entity-similarity scan. The caller owns the returned body and must close
// it; cancelling ctx aborts the stream mid-read.
func (c *Client) SimilarityStream(ctx context.Context, caseID string, entityTypes []string, threshold float64) (io.ReadCloser, error) {
	endpoint := c.baseURL + "/api/cases/" + url.PathEscape(caseID) + "/similarity"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	q := req.URL.Query()
	for _, et := range entityTypes {
		q.Add("entity_type", et)
	}
	if threshold > 0 {
		q.Set("threshold", strconv.FormatFloat(threshold, 'f', -1, 64))
	}
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// No client timeout here: the scan is long-running and the stream stays
	// open until the server finishes or ctx is cancelled.
	httpClient := &http.Client{Transport: c.http.Transport}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("similarity stream request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("similarity stream returned %d: %s", resp.StatusCode, snippet)
	}

	c.log.Debug("similarity stream opened", "case_id", caseID)
	return resp.Body, nil
}
