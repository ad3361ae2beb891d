// Package pexels is a minimal client for the Pexels photo search API,
// shaped to produce curation candidates.
package pexels

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/avbell/easel/internal/logging"
	"github.com/avbell/easel/internal/store"
)

const defaultBaseURL = "https://api.pexels.com/v1"

// Client calls the Pexels search API. Requests are rate limited client-side
// to stay inside the free-tier quota, and transient failures are retried.
type Client struct {
	apiKey     string
	baseURL    string
	client     *http.Client
	limiter    *rate.Limiter
	retryDelay time.Duration
}

// Photo is one search result as Pexels returns it.
type Photo struct {
	ID              int    `json:"id"`
	Photographer    string `json:"photographer"`
	PhotographerURL string `json:"photographer_url"`
	Alt             string `json:"alt"`
	Src             struct {
		Original string `json:"original"`
		Large2x  string `json:"large2x"`
		Large    string `json:"large"`
		Medium   string `json:"medium"`
	} `json:"src"`
}

type searchResponse struct {
	Photos       []Photo `json:"photos"`
	TotalResults int     `json:"total_results"`
}

// NewClient creates a Pexels client.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		// Pexels allows 200 requests/hour on the free tier
		limiter:    rate.NewLimiter(rate.Every(750*time.Millisecond), 1),
		retryDelay: 2 * time.Second,
	}
}

// SetBaseURL overrides the API endpoint. Tests point it at a local server.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// Available reports whether the client has credentials.
func (c *Client) Available() bool {
	return c.apiKey != ""
}

// Search runs one query and returns up to perPage photos.
func (c *Client) Search(ctx context.Context, query string, perPage int) ([]Photo, error) {
	if !c.Available() {
		return nil, fmt.Errorf("pexels API key not configured")
	}
	if perPage <= 0 {
		perPage = 15
	}
	if perPage > 80 {
		perPage = 80
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(perPage))
	reqURL := c.baseURL + "/search?" + params.Encode()

	body, err := c.doWithRetry(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	logging.Debug("Pexels search", "query", query, "returned", len(result.Photos), "total", result.TotalResults)
	return result.Photos, nil
}

// SearchCandidates runs a query and converts results to curation candidates.
func (c *Client) SearchCandidates(ctx context.Context, query string, perPage int) ([]store.CuratedImage, error) {
	photos, err := c.Search(ctx, query, perPage)
	if err != nil {
		return nil, err
	}

	candidates := make([]store.CuratedImage, 0, len(photos))
	for _, p := range photos {
		candidates = append(candidates, p.ToCuratedImage())
	}
	return candidates, nil
}

// ToCuratedImage converts a Pexels photo to the canonical candidate form.
// The provider id carries a prefix so ids from different sources can never
// collide.
func (p Photo) ToCuratedImage() store.CuratedImage {
	u := p.Src.Large2x
	if u == "" {
		u = p.Src.Large
	}
	if u == "" {
		u = p.Src.Original
	}
	return store.CuratedImage{
		ProviderID:  fmt.Sprintf("pexels-%d", p.ID),
		Description: p.Alt,
		URL:         u,
		Thumbnail:   p.Src.Medium,
		Attribution: fmt.Sprintf("Photo by %s on Pexels", p.Photographer),
	}
}

// doWithRetry performs a GET with up to three attempts, backing off on
// server errors and rate limiting.
func (c *Client) doWithRetry(ctx context.Context, reqURL string) ([]byte, error) {
	const maxAttempts = 3

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else {
			body, readErr := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
			resp.Body.Close()

			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("failed to read response: %w", readErr)
			case resp.StatusCode == http.StatusOK:
				return body, nil
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				lastErr = fmt.Errorf("API error (status %d)", resp.StatusCode)
			default:
				// Client errors won't improve on retry
				return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
			}
		}

		if attempt < maxAttempts {
			backoff := time.Duration(attempt) * c.retryDelay
			logging.Warn("Pexels request failed, retrying", "attempt", attempt, "backoff", backoff, "error", lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}
