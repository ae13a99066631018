package trading212

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testUsername = "trader@example.com"
	testPassword = "s3cret"
	testToken    = "form-token-7f3a"
)

type recordedRequest struct {
	Method  string
	Account string // "demo" or "live" for account-scoped calls
	Route   string // METHOD plus path without the account prefix
	Host    string
	Header  http.Header
	Query   url.Values
	Body    []byte
}

type fakeAccount struct {
	ID          int64
	Type        string
	TradingType string
}

// fakePlatform imitates the login site, the account session exchange and
// the REST endpoints on one httptest server.
type fakePlatform struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
	logins   int
	routes   map[string]http.HandlerFunc

	loginPage         string
	authStatus        int
	sessionCookieName string
	exchangeBody      string // overrides the rendered account context when set
	accounts          []fakeAccount
	active            fakeAccount
}

func newFakePlatform(t *testing.T) *fakePlatform {
	fp := &fakePlatform{
		t:      t,
		routes: make(map[string]http.HandlerFunc),
		loginPage: `<html><body><form method="post" action="/en/authenticate">
<input type="text" name="login[username]">
<input type="hidden" name="login[_token]" value="` + testToken + `"/>
</form></body></html>`,
		sessionCookieName: cookieSessionDemo,
		accounts: []fakeAccount{
			{ID: 1001, Type: "demo", TradingType: "CFD"},
			{ID: 1002, Type: "demo", TradingType: "EQUITY"},
			{ID: 2001, Type: "live", TradingType: "EQUITY"},
		},
	}
	fp.active = fp.accounts[1]

	fp.handle("GET /rest/v3/init-info", fp.serveInitInfo)
	fp.handle("POST /rest/v2/account/switch", fp.serveSwitch)

	fp.server = httptest.NewServer(fp)
	t.Cleanup(fp.server.Close)
	return fp
}

func (fp *fakePlatform) endpoints() Endpoints {
	return Endpoints{
		SiteURL:    fp.server.URL,
		AccountURL: fp.server.URL + "/" + accountPlaceholder,
	}
}

func newTestClient(t *testing.T, fp *fakePlatform, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithCallGate(NewCallGate(1, 0)),
		WithEndpoints(fp.endpoints()),
	}, opts...)
	client, err := NewClient(testUsername, testPassword, "demo", zerolog.New(nil).Level(zerolog.Disabled), opts...)
	require.NoError(t, err)
	return client
}

func (fp *fakePlatform) handle(route string, h http.HandlerFunc) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.routes[route] = h
}

func (fp *fakePlatform) respondJSON(route string, v interface{}) {
	fp.handle(route, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, v)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (fp *fakePlatform) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))

	rec := recordedRequest{
		Method: r.Method,
		Host:   r.Host,
		Header: r.Header.Clone(),
		Query:  r.URL.Query(),
		Body:   body,
	}

	path := r.URL.Path
	if path != "/en/login" && path != "/en/authenticate" {
		parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)
		rec.Account = parts[0]
		path = "/"
		if len(parts) == 2 {
			path += parts[1]
		}
	}
	rec.Route = r.Method + " " + path

	fp.mu.Lock()
	fp.requests = append(fp.requests, rec)
	handler := fp.routes[rec.Route]
	fp.mu.Unlock()

	switch {
	case rec.Route == "GET /en/login":
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, fp.loginPage)
	case rec.Route == "POST /en/authenticate":
		fp.serveAuthenticate(w, body)
	case rec.Route == "POST /":
		fp.serveExchange(w, body)
	case handler != nil:
		handler(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (fp *fakePlatform) serveAuthenticate(w http.ResponseWriter, body []byte) {
	form, _ := url.ParseQuery(string(body))
	if fp.authStatus != 0 {
		http.Error(w, `{"code":"BadCredentials"}`, fp.authStatus)
		return
	}
	if form.Get("login[_token]") != testToken ||
		form.Get("login[username]") != testUsername ||
		form.Get("login[password]") != testPassword {
		http.Error(w, `{"code":"BadCredentials"}`, http.StatusUnauthorized)
		return
	}

	fp.mu.Lock()
	fp.logins++
	n := fp.logins
	cookieName := fp.sessionCookieName
	fp.mu.Unlock()

	set := func(name, value string) {
		http.SetCookie(w, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	set(cookieLoginToken, fmt.Sprintf("login-%d", n))
	set("JSESSIONID", fmt.Sprintf("jsession-%d", n))
	set(cookieCustomerSession, fmt.Sprintf("customer-%d", n))
	if cookieName != "" {
		set(cookieName, fmt.Sprintf("trading-%d", n))
	}
	writeJSON(w, map[string]interface{}{"redirect": "/"})
}

func (fp *fakePlatform) serveExchange(w http.ResponseWriter, body []byte) {
	form, _ := url.ParseQuery(string(body))

	fp.mu.Lock()
	n := fp.logins
	active := fp.active
	override := fp.exchangeBody
	fp.mu.Unlock()

	if form.Get("rememberMeCookie") != fmt.Sprintf("login-%d", n) ||
		form.Get("sessionCookie") != fmt.Sprintf("trading-%d", n) ||
		form.Get("customerSessionCookie") != fmt.Sprintf("customer-%d", n) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	if override != "" {
		fmt.Fprint(w, override)
		return
	}
	fmt.Fprint(w, renderAccountSession(active))
}

func renderAccountSession(a fakeAccount) string {
	return fmt.Sprintf(`<script>
    window.__PLATFORM_CONFIG__ = {
        'accountId': '%d',
        'accountType': '%s',
        'accountTradingType': '%s'
    };
</script>
<script src="/assets/bundle.js?application=WC4, version=5.131.0"></script>`,
		a.ID, strings.ToUpper(a.Type), a.TradingType)
}

func (fp *fakePlatform) serveInitInfo(w http.ResponseWriter, r *http.Request) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	demo := []map[string]interface{}{}
	live := []map[string]interface{}{}
	for _, a := range fp.accounts {
		entry := map[string]interface{}{"id": a.ID, "tradingType": a.TradingType}
		if a.Type == "demo" {
			demo = append(demo, entry)
		} else {
			live = append(live, entry)
		}
	}
	writeJSON(w, map[string]interface{}{
		"customer": map[string]interface{}{
			"id":           9731102,
			"demoAccounts": demo,
			"liveAccounts": live,
		},
	})
}

func (fp *fakePlatform) serveSwitch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID json.Number `json:"accountId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()
	for _, a := range fp.accounts {
		if req.AccountID.String() == fmt.Sprint(a.ID) {
			fp.active = a
			writeJSON(w, map[string]interface{}{"accountId": a.ID, "tradingType": a.TradingType})
			return
		}
	}
	http.Error(w, "unknown account", http.StatusNotFound)
}

func (fp *fakePlatform) loginCount() int {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.logins
}

func (fp *fakePlatform) requestCount() int {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return len(fp.requests)
}

func (fp *fakePlatform) requestsTo(route string) []recordedRequest {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	var out []recordedRequest
	for _, r := range fp.requests {
		if r.Route == route {
			out = append(out, r)
		}
	}
	return out
}

// lastRequest returns the most recent request to route, failing the test if none.
func (fp *fakePlatform) lastRequest(route string) recordedRequest {
	fp.t.Helper()
	reqs := fp.requestsTo(route)
	require.NotEmpty(fp.t, reqs, "no request to %s", route)
	return reqs[len(reqs)-1]
}

func decodeJSONBody(t *testing.T, r recordedRequest) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(r.Body, &m), "body: %s", r.Body)
	return m
}
