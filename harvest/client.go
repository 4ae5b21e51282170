package harvest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// ErrDailyLimitExceeded is returned when the provider reports the daily
// request quota is spent. Callers map it to 429 rather than retrying.
var ErrDailyLimitExceeded = errors.New("harvest: provider daily quota exceeded")

// ErrMissingAPIKey is returned by NewClient when no provider key is set.
var ErrMissingAPIKey = errors.New("harvest: missing listing API key")

type Client struct {
	key     string
	baseURL string
	http    *retryablehttp.Client
	limiter *rate.Limiter
}

// NewClient builds the listing-provider client. The key is required; the
// provider rejects anonymous calls with an HTML error page.
func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 900 * time.Millisecond
	rc.RetryMax = 3
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.Logger = nil

	return &Client{
		key:     apiKey,
		baseURL: "https://homeharvest-api.p.rapidapi.com",
		// provider allows 2 req/s sustained; burst covers paging
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		http:    rc,
	}, nil
}

// WithBaseURL overrides the provider endpoint, for tests and self-hosted
// gateways.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = base
	return c
}

// SearchForSale fetches for-sale listings in a zip code, capped at maxPrice
// when maxPrice > 0. Returns the raw payload; NormalizePayload maps it.
func (c *Client) SearchForSale(ctx context.Context, zipCode string, maxPrice float64, limit int) ([]byte, error) {
	q := url.Values{}
	q.Set("location", zipCode)
	q.Set("listing_type", "for_sale")
	if maxPrice > 0 {
		q.Set("max_price", fmt.Sprintf("%.0f", maxPrice))
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	return c.get(ctx, "/properties/search?"+q.Encode())
}

// FetchSold fetches recently sold listings for comparable lookups.
func (c *Client) FetchSold(ctx context.Context, zipCode string, limit int) ([]byte, error) {
	q := url.Values{}
	q.Set("location", zipCode)
	q.Set("listing_type", "sold")
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	return c.get(ctx, "/properties/search?"+q.Encode())
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("x-rapidapi-key", c.key)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrDailyLimitExceeded
	}
	if resp.StatusCode >= 400 {
		var body map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, fmt.Errorf("harvest error %d: %v", resp.StatusCode, body)
	}
	return ioReadAllLimit(resp.Body, 8<<20) // 8MB guard
}

func ioReadAllLimit(r io.Reader, limit int64) ([]byte, error) {
	lr := io.LimitReader(r, limit+1)
	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errors.New("payload too large")
	}
	return b, nil
}
