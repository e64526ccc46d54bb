// Package phone resolves listing contact numbers through the origin's
// phone-disclosure API. The endpoint is only reachable through a forward proxy
// whose hop does not present the origin's TLS chain, so the client runs a
// relaxed-certificate transport with proxy basic-auth.
package phone

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNoPhone reports that the listing discloses no usable phone number. This
// is a frequent, expected outcome and callers skip the listing on it.
var ErrNoPhone = errors.New("phone: no phone disclosed")

// Config controls the phone-disclosure client.
type Config struct {
	BaseURL       string
	ProxyHost     string
	ProxyPort     int
	ProxyUsername string
	ProxyPassword string
	Timeout       time.Duration
}

// Resolver issues proxied phone-disclosure requests.
type Resolver struct {
	client  *http.Client
	baseURL string
}

// NewResolver builds a Resolver. When no proxy host is configured the client
// connects directly, which only works against test servers.
func NewResolver(cfg Config) (*Resolver, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("phone: base url is required")
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // proxy hop breaks the origin chain
	}
	if cfg.ProxyHost != "" {
		proxyURL := &url.URL{
			Scheme: "http",
			Host:   net.JoinHostPort(cfg.ProxyHost, strconv.Itoa(cfg.ProxyPort)),
		}
		if cfg.ProxyUsername != "" {
			proxyURL.User = url.UserPassword(cfg.ProxyUsername, cfg.ProxyPassword)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Resolver{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}, nil
}

type phonesResponse struct {
	Data struct {
		Phones json.RawMessage `json:"phones"`
	} `json:"data"`
}

// Resolve returns the normalized first disclosed phone for a listing.
// Any transport error, non-2xx status, or empty phone field yields ErrNoPhone
// territory for the caller: the listing is skipped, not failed.
func (r *Resolver) Resolve(ctx context.Context, id string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/v1/offers/%s/limited-phones/", r.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("phone: build request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("phone: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("phone: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("phone: read body: %w", err)
	}

	var payload phonesResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("phone: decode body: %w", err)
	}

	first := firstPhone(payload.Data.Phones)
	if first == "" {
		return "", ErrNoPhone
	}
	normalized := Normalize(first)
	if normalized == "" {
		return "", ErrNoPhone
	}
	return normalized, nil
}

// firstPhone handles both response shapes: a single string or an array of
// strings. Anything else counts as no phone.
func firstPhone(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		if len(many) > 0 {
			return many[0]
		}
		return ""
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return one
	}
	return ""
}

// Normalize strips internal separators and maps an "8" trunk prefix followed
// by ten digits to the "+7" country-code form. It is idempotent.
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch r {
		case ' ', '\t', '\n', '-', '(', ')':
			continue
		}
		b.WriteRune(r)
	}
	s := b.String()
	if len(s) == 11 && s[0] == '8' && allDigits(s[1:]) {
		return "+7" + s[1:]
	}
	return s
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
