// Package iiko is a client for the iiko back-office (resto) API: token
// authentication and OLAP transaction reports.
package iiko

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-json-experiment/json"

	"github.com/dvloznov/cashflow-bot/internal/logger"
)

var (
	// ErrAuth is returned when credentials are missing or rejected.
	ErrAuth = errors.New("iiko: authentication failed")
	// ErrStatus is returned for non-2xx responses.
	ErrStatus = errors.New("iiko: unexpected status")
)

const (
	// DefaultTokenTTL renews the session before the server-side ten minute expiry.
	DefaultTokenTTL = 8 * time.Minute
	// DefaultTimeout bounds a single HTTP exchange.
	DefaultTimeout = 60 * time.Second

	dateLayout = "2006-01-02"
)

// Config holds connection settings.
type Config struct {
	BaseURL  string
	Login    string
	Password string
	Timeout  time.Duration
	TokenTTL time.Duration
}

// Client talks to one back-office server. It is safe for concurrent use.
type Client struct {
	baseURL  string
	login    string
	passHash string
	ttl      time.Duration
	http     *http.Client
	now      func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithClock replaces the time source used for token expiry.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// NewClient creates a Client. The password is kept only as its SHA-1 hex
// digest, which is what the server expects.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		login:   cfg.Login,
		ttl:     ttl,
		http:    &http.Client{Timeout: timeout},
		now:     time.Now,
	}
	if cfg.Password != "" {
		sum := sha1.Sum([]byte(cfg.Password))
		c.passHash = hex.EncodeToString(sum[:])
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticate obtains a fresh session token.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authLocked(ctx)
}

func (c *Client) authLocked(ctx context.Context) error {
	if c.login == "" || c.passHash == "" {
		return fmt.Errorf("%w: login or password not set", ErrAuth)
	}

	q := url.Values{}
	q.Set("login", c.login)
	q.Set("pass", c.passHash)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/resto/api/auth?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("Client.Authenticate: build request: %w", err)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("Client.Authenticate: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("Client.Authenticate: read body: %w", err)
	}
	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuth, res.StatusCode)
	case res.StatusCode/100 != 2:
		return fmt.Errorf("Client.Authenticate: %w: %d %s", ErrStatus, res.StatusCode, snippet(body))
	}

	token := strings.Trim(strings.TrimSpace(string(body)), `"`)
	if token == "" {
		return fmt.Errorf("%w: empty token", ErrAuth)
	}
	c.token = token
	c.expires = c.now().Add(c.ttl)

	log := logger.FromContext(ctx)
	log.Debug().Time("expires", c.expires).Msg("iiko session renewed")
	return nil
}

// ensureToken returns a valid token, renewing it when expired.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || !c.now().Before(c.expires) {
		if err := c.authLocked(ctx); err != nil {
			return "", err
		}
	}
	return c.token, nil
}

// invalidate drops token if it is still the current one.
func (c *Client) invalidate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == token {
		c.token = ""
	}
}

// PresetReport runs the saved OLAP report presetID over [from, to).
func (c *Client) PresetReport(ctx context.Context, presetID string, from, to time.Time) ([]Record, error) {
	build := func(token string) (*http.Request, error) {
		q := url.Values{}
		q.Set("key", token)
		q.Set("dateFrom", from.Format(dateLayout))
		q.Set("dateTo", to.Format(dateLayout))
		u := c.baseURL + "/resto/api/v2/reports/olap/byPresetId/" + url.PathEscape(presetID) + "?" + q.Encode()
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}
	recs, err := c.report(ctx, build)
	if err != nil {
		return nil, fmt.Errorf("Client.PresetReport: %w", err)
	}
	return recs, nil
}

// TransactionsReport requests the TRANSACTIONS OLAP report over [from, to)
// grouped by date, account and cash flow category.
func (c *Client) TransactionsReport(ctx context.Context, from, to time.Time) ([]Record, error) {
	payload, err := json.Marshal(newTransactionsRequest(from, to))
	if err != nil {
		return nil, fmt.Errorf("Client.TransactionsReport: encode request: %w", err)
	}
	build := func(token string) (*http.Request, error) {
		u := c.baseURL + "/resto/api/v2/reports/olap?key=" + url.QueryEscape(token)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}
	recs, err := c.report(ctx, build)
	if err != nil {
		return nil, fmt.Errorf("Client.TransactionsReport: %w", err)
	}
	return recs, nil
}

// report executes a report request, re-authenticating once on 401.
func (c *Client) report(ctx context.Context, build func(token string) (*http.Request, error)) ([]Record, error) {
	log := logger.FromContext(ctx)

	for attempt := 0; ; attempt++ {
		token, err := c.ensureToken(ctx)
		if err != nil {
			return nil, err
		}
		req, err := build(token)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		start := c.now()
		res, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}

		if res.StatusCode == http.StatusUnauthorized && attempt == 0 {
			res.Body.Close()
			c.invalidate(token)
			log.Debug().Msg("iiko session rejected, re-authenticating")
			continue
		}

		recs, err := decodeReport(res)
		res.Body.Close()
		if err != nil {
			return nil, err
		}
		log.Debug().
			Int("rows", len(recs)).
			Dur("duration", c.now().Sub(start)).
			Msg("iiko report fetched")
		return recs, nil
	}
}

func decodeReport(res *http.Response) ([]Record, error) {
	if res.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("%w: %d %s", ErrStatus, res.StatusCode, snippet(body))
	}
	var payload struct {
		Data []Record `json:"data"`
	}
	if err := json.UnmarshalRead(res.Body, &payload); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return payload.Data, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
