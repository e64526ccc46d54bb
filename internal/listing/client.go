package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable reports that the detail payload could not be retrieved after
// the fetch layer exhausted its retries.
var ErrUnavailable = errors.New("listing: detail payload unavailable")

// PageFetcher retrieves a raw body, returning nil once retries are exhausted.
type PageFetcher interface {
	FetchWithRetry(ctx context.Context, url string) []byte
}

// Client fetches and maps per-listing detail payloads.
type Client struct {
	fetcher PageFetcher
	baseURL string
	tags    Tags
}

// NewClient builds a detail client rooted at the origin's base URL.
func NewClient(fetcher PageFetcher, baseURL string, tags Tags) *Client {
	return &Client{
		fetcher: fetcher,
		baseURL: strings.TrimRight(baseURL, "/"),
		tags:    tags,
	}
}

// FetchDetail retrieves the detail payload for a listing and maps it into a
// Record carrying the already-resolved phone number.
func (c *Client) FetchDetail(ctx context.Context, id, phone string) (*Record, error) {
	url := fmt.Sprintf("%s/api/v1/offers/%s/", c.baseURL, id)
	body := c.fetcher.FetchWithRetry(ctx, url)
	if len(body) == 0 {
		return nil, ErrUnavailable
	}
	return MapOffer(body, phone, c.tags)
}
