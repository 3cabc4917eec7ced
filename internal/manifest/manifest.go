// Package manifest fetches the perchup release manifest, a small JSON
// document the update flow uses to tell the user when perchup itself is
// out of date.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Manifest is the published release descriptor.
type Manifest struct {
	Version string `json:"version"`
	URL     string `json:"url"`
	Notes   string `json:"notes"`
}

// fetchTimeout keeps the self-check from stalling an update when the
// release host is slow or unreachable.
const fetchTimeout = 5 * time.Second

// maxBodySize bounds the response read. The manifest is a few hundred
// bytes; anything larger is not ours.
const maxBodySize = 1 << 20

// Fetch downloads and decodes the manifest at url.
func Fetch(ctx context.Context, url string) (*Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build manifest request: %w", err)
	}

	client := &http.Client{Timeout: fetchTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch release manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release manifest returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read release manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("failed to parse release manifest: %w", err)
	}
	if m.Version == "" {
		return nil, fmt.Errorf("release manifest has no version field")
	}
	return &m, nil
}
