// Package remote is the client for the kisan backend: session auth, row
// queries, mutations, server-side procedures and object storage. It speaks
// the PostgREST / GoTrue / storage-api conventions over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/asteroid-belt/kisan/internal/log"
	"github.com/asteroid-belt/kisan/pkg/version"
)

const (
	restPrefix    = "/rest/v1"
	authPrefix    = "/auth/v1"
	storagePrefix = "/storage/v1"

	// MinVersionHeader is set by the backend when it needs a newer client.
	MinVersionHeader = "X-Kisan-Min-Version"

	// DefaultRateLimit is requests per second when none is configured.
	DefaultRateLimit = 10

	defaultHTTPTimeout = 30 * time.Second
)

// Options configures a Client.
type Options struct {
	// Project base URL, e.g. https://xyz.supabase.co. Empty means offline-only.
	URL string
	// Public anon key sent as the apikey header and as the guest bearer token.
	AnonKey string
	// Requests per second (0 uses DefaultRateLimit, negative disables limiting).
	RateLimit int
	// Optional persistence for the session across process runs.
	Store SessionStore
	// Optional base HTTP client; its Transport is wrapped for bearer auth.
	HTTPClient *http.Client
}

// Client is a rate-limited handle to the backend.
type Client struct {
	baseURL string
	anonKey string

	// plain is used for auth endpoints; authed adds the session bearer token.
	plain   *http.Client
	authed  *http.Client
	limiter *rate.Limiter
	store   SessionStore

	mu        sync.RWMutex
	session   *Session
	listeners map[int]func(*Session)
	nextID    int

	refreshMu   sync.Mutex
	versionOnce sync.Once
}

// New creates a backend client.
func New(opts Options) *Client {
	plain := opts.HTTPClient
	if plain == nil {
		plain = &http.Client{Timeout: defaultHTTPTimeout}
	}

	limit := opts.RateLimit
	if limit == 0 {
		limit = DefaultRateLimit
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if limit > 0 {
		limiter = rate.NewLimiter(rate.Limit(limit), limit)
	}

	c := &Client{
		baseURL:   strings.TrimRight(opts.URL, "/"),
		anonKey:   opts.AnonKey,
		plain:     plain,
		limiter:   limiter,
		store:     opts.Store,
		listeners: make(map[int]func(*Session)),
	}

	base := plain.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.authed = &http.Client{
		Timeout: plain.Timeout,
		Transport: &oauth2.Transport{
			Source: &sessionTokenSource{c: c},
			Base:   base,
		},
	}
	return c
}

// Configured reports whether a backend URL is set.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// request describes one HTTP call against the backend.
type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	header      http.Header
	// anonymous requests skip the session bearer token (auth endpoints).
	anonymous bool
}

// jsonBody encodes v for a request body.
func jsonBody(v interface{}) (io.Reader, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return bytes.NewReader(data), nil
}

// do sends r and returns the response for a 2xx status. Any other status is
// decoded into an *Error. The caller closes the response body.
func (c *Client) do(ctx context.Context, r request) (*http.Response, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("User-Agent", version.UserAgent())
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if r.body != nil {
		ct := r.contentType
		if ct == "" {
			ct = "application/json"
		}
		req.Header.Set("Content-Type", ct)
	}

	httpClient := c.authed
	if r.anonymous {
		httpClient = c.plain
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}

	log.Debugf("remote %s %s", r.method, r.path)
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	c.checkMinVersion(resp.Header)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		return nil, decodeError(resp.StatusCode, resp.Body)
	}
	return resp, nil
}

// doJSON sends r and decodes a JSON response into dest (if non-nil).
func (c *Client) doJSON(ctx context.Context, r request, dest interface{}) (*http.Response, error) {
	resp, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if dest == nil || r.method == http.MethodHead {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil && err != io.EOF {
		return resp, fmt.Errorf("decode %s response: %w", r.path, err)
	}
	return resp, nil
}

// checkMinVersion warns once when the backend asks for a newer client.
func (c *Client) checkMinVersion(h http.Header) {
	minVersion := h.Get(MinVersionHeader)
	if minVersion == "" {
		return
	}
	if version.Satisfies(">= " + minVersion) {
		return
	}
	c.versionOnce.Do(func() {
		log.Warnf("backend expects kisan >= %s, running %s", minVersion, version.Short())
	})
}
