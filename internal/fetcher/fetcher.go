// Package fetcher implements the HTTP retrieval client for the origin site.
//
// A single Colly collector carries the browser-like identity and transport
// settings; every request runs on a clone of it so per-request callbacks never
// leak between fetches.
package fetcher

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Config controls the fetch client.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// Client fetches origin-site pages and API payloads.
type Client struct {
	base   *colly.Collector
	cfg    Config
	logger *zap.Logger
}

// New constructs a configured Colly-based fetch client.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.MaxAttempts <= 0 {
		return nil, errors.New("fetcher: max attempts must be > 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
	)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.Timeout)

	return &Client{
		base:   base,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Fetch retrieves a URL once and returns the response body.
// Non-2xx statuses surface as errors through Colly's error callback.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	collector := c.base.Clone()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnResponse(func(r *colly.Response) {
		send(fetchResult{body: append([]byte{}, r.Body...)})
	})
	collector.OnError(func(_ *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(fetchResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return nil, err
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return res.body, res.err
	default:
		return nil, errors.New("fetch produced no result")
	}
}

// FetchWithRetry attempts a fetch up to the configured number of times with a
// constant delay between attempts. On exhaustion it returns nil: the caller
// treats a missing body as a skip, never as a fatal error.
func (c *Client) FetchWithRetry(ctx context.Context, rawURL string) []byte {
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		body, err := c.Fetch(ctx, rawURL)
		if err == nil {
			return body
		}
		if attempt == c.cfg.MaxAttempts || ctx.Err() != nil {
			c.logger.Error("fetch failed after retries",
				zap.String("url", rawURL),
				zap.Int("attempts", attempt),
				zap.Error(err),
			)
			return nil
		}
		c.logger.Info("retrying fetch",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Duration("delay", c.cfg.RetryDelay),
		)
		if !sleep(ctx, c.cfg.RetryDelay) {
			return nil
		}
	}
	return nil
}

type fetchResult struct {
	body []byte
	err  error
}

// sleep waits for d unless the context finishes first. It reports whether the
// full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
