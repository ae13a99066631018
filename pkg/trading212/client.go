// Package trading212 is a client for the private web API behind the
// Trading212 platform. It logs in through the public login form, binds the
// resulting cookies to an account session and exposes market-data, account
// and order operations for CFD and Equity accounts.
//
// Every request goes through a CallGate (3 calls per second unless
// configured otherwise) and every non-2xx answer surfaces as *HTTPError.
// A Client is safe for concurrent use.
package trading212

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

	"github.com/gorilla/schema"
	"github.com/rs/zerolog"
)

const (
	DefaultSessionTTL  = 300 * time.Second
	DefaultHTTPTimeout = 30 * time.Second

	platformDomain     = "trading212.com"
	siteHost           = "www." + platformDomain
	accountPlaceholder = "{account}"
)

// Endpoints are the two base URLs the client talks to. AccountURL contains
// the {account} placeholder, replaced by "demo" or "live".
type Endpoints struct {
	SiteURL    string
	AccountURL string
}

// DefaultEndpoints point at the production platform.
var DefaultEndpoints = Endpoints{
	SiteURL:    "https://" + siteHost,
	AccountURL: "https://" + accountPlaceholder + "." + platformDomain,
}

// Client holds credentials, the cached session and the targeted account type.
type Client struct {
	username    string
	password    string
	endpoints   Endpoints
	gate        *CallGate
	httpTimeout time.Duration
	cache       *sessionCache
	log         zerolog.Logger

	mu          sync.RWMutex
	accountType AccountType
}

// Option customises a Client.
type Option func(*Client)

// WithCallGate gives the client its own quota instead of the process-wide one.
func WithCallGate(g *CallGate) Option {
	return func(c *Client) { c.gate = g }
}

// WithSessionTTL changes how long a session is reused.
func WithSessionTTL(ttl time.Duration) Option {
	return func(c *Client) { c.cache = newSessionCache(ttl) }
}

// WithHTTPTimeout bounds every request. Zero means no timeout.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpTimeout = d }
}

// WithEndpoints overrides the base URLs.
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) { c.endpoints = e }
}

// NewClient validates the account type and returns an unauthenticated
// client. The first operation logs in.
func NewClient(username, password, accountType string, log zerolog.Logger, opts ...Option) (*Client, error) {
	at, err := ParseAccountType(accountType)
	if err != nil {
		return nil, err
	}

	c := &Client{
		username:    username,
		password:    password,
		endpoints:   DefaultEndpoints,
		gate:        defaultGate,
		httpTimeout: DefaultHTTPTimeout,
		cache:       newSessionCache(DefaultSessionTTL),
		log:         log.With().Str("component", "trading212").Logger(),
		accountType: at,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AccountType is the environment the client currently targets.
func (c *Client) AccountType() AccountType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accountType
}

func (c *Client) setAccountType(t AccountType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accountType = t
}

// Session returns the cached session, logging in again when it has expired
// or was invalidated by an account switch.
func (c *Client) Session(ctx context.Context) (*Session, error) {
	sess, hit, err := c.cache.get(ctx, c.login)
	if err != nil {
		return nil, err
	}
	if hit {
		c.log.Debug().Str("session_id", sess.ID).Msg("Session cache hit")
	}
	return sess, nil
}

// login runs the full sequence: login page, credentials, account session.
func (c *Client) login(ctx context.Context) (*Session, error) {
	sess, err := newSession(c.httpTimeout)
	if err != nil {
		return nil, err
	}

	if err := c.authenticate(ctx, sess); err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	account, err := c.establishAccountSession(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("account session failed: %w", err)
	}
	sess.Account = account
	c.setAccountType(account.AccountType)

	c.log.Info().
		Str("session_id", sess.ID).
		Str("account_id", account.AccountID).
		Str("account_type", string(account.AccountType)).
		Str("trading_type", string(account.TradingType)).
		Str("application", account.ApplicationName).
		Str("version", account.ApplicationVersion).
		Msg("Session established")

	return sess, nil
}

// RestURL joins the account-scoped base URL and path.
func (c *Client) RestURL(accountType AccountType, path string) string {
	base := strings.ReplaceAll(c.endpoints.AccountURL, accountPlaceholder, string(accountType))
	return strings.TrimRight(base, "/") + "/" + strings.Trim(path, "/")
}

// RestHeaders are the headers every account-scoped REST call carries.
func RestHeaders(account AccountContext) http.Header {
	host := string(account.AccountType) + "." + platformDomain
	h := make(http.Header)
	h.Set("Host", host)
	h.Set("Origin", "https://"+host)
	h.Set("Referer", "https://"+host+"/")
	h.Set("X-Trader-Client", account.TraderClient())
	return h
}

func siteHeaders(referer string) http.Header {
	h := make(http.Header)
	h.Set("Host", siteHost)
	h.Set("Origin", "https://"+siteHost)
	h.Set("Referer", referer)
	return h
}

var queryEncoder = schema.NewEncoder()

// encodeValues turns a schema-tagged struct into form or query values.
func encodeValues(src interface{}) (url.Values, error) {
	values := url.Values{}
	if err := queryEncoder.Encode(src, values); err != nil {
		return nil, fmt.Errorf("failed to encode values: %w", err)
	}
	return values, nil
}

// call performs one account-scoped REST request with the current session.
// body is sent as JSON when non-nil; out receives the decoded response when non-nil.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	sess, err := c.Session(ctx)
	if err != nil {
		return err
	}
	return c.callWith(ctx, sess, method, path, query, body, out)
}

func (c *Client) callWith(ctx context.Context, sess *Session, method, path string, query url.Values, body, out interface{}) error {
	requestURL := c.RestURL(sess.Account.AccountType, path)
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = RestHeaders(sess.Account)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	raw, err := c.send(sess, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", path, err)
	}
	return nil
}

// send pushes req through the call gate and returns the decoded body of a
// 2xx response.
func (c *Client) send(sess *Session, req *http.Request) ([]byte, error) {
	sess.prepare(req)

	start := time.Now()
	resp, err := c.gate.Do(sess.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: request failed: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%s %s: failed to read response: %w", req.Method, req.URL, err)
	}

	c.log.Debug().
		Str("session_id", sess.ID).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status_code", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("API call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := newHTTPError(req.Method, req.URL.String(), resp.StatusCode, resp.Status, body)
		c.log.Error().
			Int("status_code", resp.StatusCode).
			Str("status", resp.Status).
			Str("response_body", httpErr.Body).
			Str("url", httpErr.URL).
			Msg("API returned non-2xx status")
		return nil, httpErr
	}
	return body, nil
}
