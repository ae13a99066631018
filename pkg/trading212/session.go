package trading212

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/85.0.4183.102 Safari/537.36"

// defaultHeaders are sent on every request unless the request sets its own.
var defaultHeaders = map[string]string{
	"Accept-Encoding": "gzip, deflate",
	"Accept":          "*/*",
	"Connection":      "keep-alive",
	"User-Agent":      userAgent,
}

// Session is an authenticated cookie-bearing HTTP session together with the
// account context it was established for.
type Session struct {
	ID        string // correlation id for logs
	Account   AccountContext
	CreatedAt time.Time

	httpClient *http.Client
}

func newSession(timeout time.Duration) (*Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}, nil
}

// Headers returns the default header set applied to every request.
func (s *Session) Headers() http.Header {
	h := make(http.Header, len(defaultHeaders))
	for k, v := range defaultHeaders {
		h.Set(k, v)
	}
	return h
}

// Cookies returns the name/value pairs the jar would send to each of the
// given URLs. Later URLs win on name clashes.
func (s *Session) Cookies(rawURLs ...string) map[string]string {
	cookies := make(map[string]string)
	for _, raw := range rawURLs {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		for _, c := range s.httpClient.Jar.Cookies(u) {
			cookies[c.Name] = c.Value
		}
	}
	return cookies
}

func (s *Session) prepare(req *http.Request) {
	for k, v := range defaultHeaders {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	// net/http ignores a Host entry in the header map.
	if host := req.Header.Get("Host"); host != "" {
		req.Host = host
		req.Header.Del("Host")
	}
}

// readBody reads the response, undoing the encodings advertised in defaultHeaders.
// Setting Accept-Encoding by hand turns off the transport's own gzip handling.
func readBody(resp *http.Response) ([]byte, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return raw, nil
	}

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case "deflate":
		// Servers disagree on whether deflate means zlib-wrapped or raw.
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			defer zr.Close()
			return io.ReadAll(zr)
		}
		fr := flate.NewReader(bytes.NewReader(raw))
		defer fr.Close()
		return io.ReadAll(fr)
	}
	return raw, nil
}

// sessionCache memoises one session for ttl. The lock is held while a new
// session is created, so concurrent callers share a single login.
type sessionCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	session   *Session
	expiresAt time.Time
}

func newSessionCache(ttl time.Duration) *sessionCache {
	return &sessionCache{ttl: ttl, now: time.Now}
}

func (c *sessionCache) get(ctx context.Context, create func(context.Context) (*Session, error)) (*Session, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && c.now().Before(c.expiresAt) {
		return c.session, true, nil
	}

	s, err := create(ctx)
	if err != nil {
		return nil, false, err
	}
	c.session = s
	c.expiresAt = c.now().Add(c.ttl)
	return s, false, nil
}

func (c *sessionCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
	c.expiresAt = time.Time{}
}
