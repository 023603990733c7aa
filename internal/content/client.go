// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package content is the HTTP client for the upstream content store:
// article queries (by category, by vector similarity, trending,
// recent, breaking, popular) and the category taxonomy. The exported
// Client wraps the raw HTTP client with a circuit breaker so a failing
// upstream degrades feed stages to their fallbacks instead of
// stalling every request.
package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/models"
)

// maxErrorBodySize bounds how much of an error response body is read
// for diagnostics.
const maxErrorBodySize = 64 * 1024

// httpClient is the raw, breaker-less HTTP client.
type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(cfg config.ContentConfig) *httpClient {
	return &httpClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// envelope is the content store's standard response wrapper.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	return body
}

// get performs a GET request and decodes the enveloped response into
// result.
func (c *httpClient) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", path, err)
	}

	return c.do(req, path, result)
}

// post performs a POST request with a JSON body and decodes the
// enveloped response into result.
func (c *httpClient) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, path, result)
}

func (c *httpClient) do(req *http.Request, path string, result interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return fmt.Errorf("%s request failed with status %d: %s", path, resp.StatusCode, string(body))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	if err := json.Unmarshal(env.Data, result); err != nil {
		return fmt.Errorf("decoding %s payload: %w", path, err)
	}
	return nil
}

func (c *httpClient) categories(ctx context.Context) ([]models.CategoryNode, error) {
	var nodes []models.CategoryNode
	if err := c.get(ctx, "/api/v1/categories", nil, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (c *httpClient) articlesByCategories(ctx context.Context, categoryIDs []string, since time.Time, limit int) ([]models.ArticleRef, error) {
	params := url.Values{}
	params.Set("categories", strings.Join(categoryIDs, ","))
	params.Set("since", since.UTC().Format(time.RFC3339))
	params.Set("limit", strconv.Itoa(limit))

	var refs []models.ArticleRef
	if err := c.get(ctx, "/api/v1/articles", params, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

// similarRequest is the body for vector-similarity queries.
type similarRequest struct {
	Vector     []float32 `json:"vector"`
	Categories []string  `json:"categories,omitempty"`
	Limit      int       `json:"limit"`
}

func (c *httpClient) similarArticles(ctx context.Context, vector []float32, categoryIDs []string, limit int) ([]models.ArticleRef, error) {
	var refs []models.ArticleRef
	err := c.post(ctx, "/api/v1/articles/similar", similarRequest{
		Vector:     vector,
		Categories: categoryIDs,
		Limit:      limit,
	}, &refs)
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func (c *httpClient) trending(ctx context.Context, limit int) ([]models.ArticleRef, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	var refs []models.ArticleRef
	if err := c.get(ctx, "/api/v1/articles/trending", params, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

func (c *httpClient) recent(ctx context.Context, since time.Time, limit int) ([]models.ArticleRef, error) {
	params := url.Values{}
	params.Set("since", since.UTC().Format(time.RFC3339))
	params.Set("limit", strconv.Itoa(limit))

	var refs []models.ArticleRef
	if err := c.get(ctx, "/api/v1/articles/recent", params, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

func (c *httpClient) breaking(ctx context.Context, window time.Duration, limit int) ([]models.ArticleRef, error) {
	params := url.Values{}
	params.Set("since", time.Now().Add(-window).UTC().Format(time.RFC3339))
	params.Set("limit", strconv.Itoa(limit))

	var refs []models.ArticleRef
	if err := c.get(ctx, "/api/v1/articles/breaking", params, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

func (c *httpClient) popular(ctx context.Context, days, limit int) ([]models.ArticleRef, error) {
	params := url.Values{}
	params.Set("days", strconv.Itoa(days))
	params.Set("limit", strconv.Itoa(limit))

	var refs []models.ArticleRef
	if err := c.get(ctx, "/api/v1/articles/popular", params, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

// timedQuery measures one upstream query for the metrics pipeline.
func timedQuery(query string, fn func() error) error {
	start := time.Now()
	err := fn()
	errType := ""
	if err != nil {
		errType = classifyError(err)
	}
	metrics.RecordContentQuery(query, time.Since(start), errType)
	return err
}

func classifyError(err error) string {
	switch {
	case err == nil:
		return ""
	case isBreakerError(err):
		return "breaker_open"
	case strings.Contains(err.Error(), "context deadline exceeded"),
		strings.Contains(err.Error(), "Client.Timeout"):
		return "timeout"
	default:
		return "upstream"
	}
}
