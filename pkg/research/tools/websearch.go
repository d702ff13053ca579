// Package tools holds the external collaborators the research engine calls
// out to, currently the web search provider client.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultSearchTimeout = 45 * time.Second

// WebSearch queries the Bocha web search API. It implements the engine's
// Searcher interface.
type WebSearch struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

// NewWebSearch builds a client for the given endpoint. The zero http.Client
// has no timeout, so a bounded one is installed here.
func NewWebSearch(endpoint, apiKey string) *WebSearch {
	return &WebSearch{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Client:   &http.Client{Timeout: defaultSearchTimeout},
	}
}

type searchRequest struct {
	Query   string `json:"query"`
	Summary bool   `json:"summary"`
	Count   int    `json:"count"`
	Page    int    `json:"page"`
}

type searchResponse struct {
	Data struct {
		WebPages struct {
			Value []map[string]any `json:"value"`
		} `json:"webPages"`
	} `json:"data"`
}

// Search runs one query and returns the provider's raw result objects. Any
// transport, status, or decoding problem is reported as an error with no
// partial results.
func (w *WebSearch) Search(ctx context.Context, query string, count int) ([]map[string]any, error) {
	body, err := json.Marshal(searchRequest{
		Query:   query,
		Summary: true,
		Count:   count,
		Page:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", w.APIKey)

	client := w.Client
	if client == nil {
		client = &http.Client{Timeout: defaultSearchTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned status %s: %s", resp.Status, string(raw))
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return parsed.Data.WebPages.Value, nil
}
