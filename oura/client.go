// Copyright 2025 Halcyon Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package oura

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/halcyonlabs/ringsight/core"
)

const (
	// DefaultBaseURL is the production Oura API host.
	DefaultBaseURL = "https://api.ouraring.com"

	defaultPageSize = 200
	defaultTimeout  = 30 * time.Second
)

// Client is an Oura v2 API client.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	token      string
	pageSize   int
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API host. Used in tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient supplies a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit overrides the request rate limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithPageSize overrides the pagination page size.
func WithPageSize(n int) Option {
	return func(c *Client) { c.pageSize = n }
}

// NewClient creates an Oura API client using the given personal access
// token.
func NewClient(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		// Oura's documented limit is 5000 requests per 5 minutes; stay
		// well under it.
		limiter:  rate.NewLimiter(rate.Limit(5), 10),
		baseURL:  DefaultBaseURL,
		token:    token,
		pageSize: defaultPageSize,
		logger:   slog.Default().With("component", "oura-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// apiPage is one page of a paginated collection response.
type apiPage struct {
	Data      []map[string]any `json:"data"`
	NextToken string           `json:"next_token"`
}

// get performs one rate-limited GET and decodes the page.
func (c *Client) get(ctx context.Context, path string, query url.Values) (*apiPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s returned %d", ErrUnauthorized, path, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, path)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s returned %d: %s", ErrRequestFailed, path, resp.StatusCode, body)
	}

	var page apiPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrRequestFailed, path, err)
	}
	return &page, nil
}

// paginate collects every document of a collection across pages.
func (c *Client) paginate(ctx context.Context, path string, start, end core.Day) ([]map[string]any, error) {
	query := url.Values{
		"start_date": {string(start)},
		"end_date":   {string(end)},
		"page_size":  {fmt.Sprintf("%d", c.pageSize)},
	}

	var docs []map[string]any
	for {
		page, err := c.get(ctx, path, query)
		if err != nil {
			return nil, err
		}
		docs = append(docs, page.Data...)
		if page.NextToken == "" {
			return docs, nil
		}
		query.Set("next_token", page.NextToken)
	}
}
