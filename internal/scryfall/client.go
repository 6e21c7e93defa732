// Package scryfall is a rate-limited client for the Scryfall card API.
package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://api.scryfall.com"
	DefaultUserAgent = "deckstats/1.0"

	rateLimitDelay = 100 * time.Millisecond // 100ms between requests (10 req/sec)
	requestTimeout = 30 * time.Second
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 16 * time.Second
)

// Client represents a Scryfall API client with rate limiting.
type Client struct {
	httpClient     *http.Client
	rateLimiter    *rate.Limiter
	userAgent      string
	baseURL        string
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRateLimit sets the minimum delay between requests.
func WithRateLimit(every time.Duration) Option {
	return func(c *Client) {
		if every > 0 {
			c.rateLimiter = rate.NewLimiter(rate.Every(every), 1)
		}
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithBackoff sets the retry backoff bounds.
func WithBackoff(initial, max time.Duration) Option {
	return func(c *Client) {
		c.initialBackoff = initial
		c.maxBackoff = max
	}
}

// NewClient creates a new Scryfall API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		// Rate limiter: 1 request per 100ms = 10 req/sec
		rateLimiter:    rate.NewLimiter(rate.Every(rateLimitDelay), 1),
		userAgent:      DefaultUserAgent,
		baseURL:        DefaultBaseURL,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetSet retrieves set information by set code.
func (c *Client) GetSet(ctx context.Context, code string) (*Set, error) {
	u := fmt.Sprintf("%s/sets/%s", c.baseURL, url.PathEscape(code))

	var set Set
	if err := c.doRequest(ctx, u, &set); err != nil {
		return nil, fmt.Errorf("failed to get set %s: %w", code, err)
	}

	return &set, nil
}

// SearchCards fetches the first page of a full-text card search.
func (c *Client) SearchCards(ctx context.Context, query string) (*SearchResult, error) {
	u := fmt.Sprintf("%s/cards/search?q=%s", c.baseURL, url.QueryEscape(query))

	var result SearchResult
	if err := c.doRequest(ctx, u, &result); err != nil {
		return nil, fmt.Errorf("failed to search cards with query '%s': %w", query, err)
	}

	return &result, nil
}

// SearchAll runs a card search and follows next_page links until the result
// set is exhausted.
func (c *Client) SearchAll(ctx context.Context, query string) ([]Card, error) {
	page, err := c.SearchCards(ctx, query)
	if err != nil {
		return nil, err
	}

	cards := append([]Card(nil), page.Data...)
	pages := 1
	for page.HasMore && page.NextPage != "" {
		next := page.NextPage
		page = &SearchResult{}
		if err := c.doRequest(ctx, next, page); err != nil {
			return nil, fmt.Errorf("failed to fetch search page %d for '%s': %w", pages+1, query, err)
		}
		cards = append(cards, page.Data...)
		pages++
	}

	log.Printf("[Scryfall] Search '%s': %d cards over %d pages", query, len(cards), pages)
	return cards, nil
}

// doRequest performs an HTTP request with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, url string, result interface{}) error {
	var lastErr error
	backoff := c.initialBackoff

	for attempt := 0; attempt <= maxRetries; attempt++ {
		// Wait for rate limiter
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)

			// Retry on network errors
			if attempt < maxRetries {
				if err := sleep(ctx, backoff); err != nil {
					return err
				}
				backoff = minDuration(backoff*2, c.maxBackoff)
				continue
			}
			return lastErr
		}

		retry, err := c.handleResponse(resp, url, result)
		if !retry {
			return err
		}
		lastErr = err

		if attempt < maxRetries {
			wait := backoff
			// Retry-After is given in seconds
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if d, perr := time.ParseDuration(ra + "s"); perr == nil {
					wait = d
				}
			}
			if err := sleep(ctx, wait); err != nil {
				return err
			}
			backoff = minDuration(backoff*2, c.maxBackoff)
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// handleResponse decodes a response into result. It reports retry=true for
// responses worth retrying (429 and 5xx).
func (c *Client) handleResponse(resp *http.Response, url string, result interface{}) (retry bool, err error) {
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false, fmt.Errorf("failed to read response body: %w", err)
		}
		if err := json.Unmarshal(body, result); err != nil {
			return false, fmt.Errorf("failed to parse JSON response: %w", err)
		}
		return false, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		return true, fmt.Errorf("rate limited (HTTP 429)")

	case resp.StatusCode == http.StatusNotFound:
		return false, &NotFoundError{URL: url}

	case resp.StatusCode >= 500:
		return true, fmt.Errorf("server error (HTTP %d)", resp.StatusCode)

	default:
		body, _ := io.ReadAll(resp.Body)

		var apiErr APIError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Details != "" {
			return false, &apiErr
		}
		return false, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
