package trading212

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindLoginToken(t *testing.T) {
	testCases := []struct {
		name     string
		page     string
		expected string
		err      error
	}{
		{
			name:     "hidden input",
			page:     `<form><input type="hidden" name="login[_token]" value="abc123"></form>`,
			expected: "abc123",
		},
		{
			name:     "self closing with other inputs first",
			page:     `<input name="login[username]" value="x"/><input name="login[_token]" value="tok-9"/>`,
			expected: "tok-9",
		},
		{
			name: "no token input",
			page: `<form><input name="login[username]"></form>`,
			err:  ErrTokenNotFound,
		},
		{
			name: "token input without value",
			page: `<input name="login[_token]">`,
			err:  ErrTokenNotFound,
		},
		{
			name: "empty page",
			page: ``,
			err:  ErrTokenNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := findLoginToken([]byte(tc.page))
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				assert.ErrorIs(t, err, ErrParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, token)
		})
	}
}

func TestParseAccountContext_Fixture(t *testing.T) {
	body, err := os.ReadFile("testdata/account_session.txt")
	require.NoError(t, err)

	account, err := ParseAccountContext(body)
	require.NoError(t, err)

	assert.Equal(t, AccountContext{
		AccountID:          "20381477",
		AccountType:        AccountDemo,
		TradingType:        TradingCFD,
		ApplicationName:    "WC4",
		ApplicationVersion: "5.131.0",
	}, account)
	assert.Equal(t, "application=WC4, version=5.131.0, accountId=20381477", account.TraderClient())
}

func TestParseAccountContext_MissingField(t *testing.T) {
	fixture, err := os.ReadFile("testdata/account_session.txt")
	require.NoError(t, err)

	testCases := []struct {
		field  string
		remove string
	}{
		{"accountId", "'accountId': '20381477',"},
		{"accountType", "'accountType': 'DEMO',"},
		{"accountTradingType", "'accountTradingType': 'CFD',"},
		{"application", "application=WC4, "},
		{"version", "version=5.131.0"},
	}

	for _, tc := range testCases {
		t.Run(tc.field, func(t *testing.T) {
			body := strings.Replace(string(fixture), tc.remove, "", 1)
			_, err := ParseAccountContext([]byte(body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrParse)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestParseAccountContext_UnknownAccountType(t *testing.T) {
	body := `'accountId': '1', 'accountType': 'PAPER', 'accountTradingType': 'CFD' application=WC4, version=1.0`
	_, err := ParseAccountContext([]byte(body))
	assert.ErrorIs(t, err, ErrParse)
}

func TestSession_LoginSequence(t *testing.T) {
	fp := newFakePlatform(t)
	client := newTestClient(t, fp)

	sess, err := client.Session(context.Background())
	require.NoError(t, err)

	// Login page, then credentials.
	loginPage := fp.lastRequest("GET /en/login")
	assert.NotEmpty(t, loginPage.Header.Get("User-Agent"))

	auth := fp.lastRequest("POST /en/authenticate")
	assert.Equal(t, "www.trading212.com", auth.Host)
	assert.Equal(t, "https://www.trading212.com", auth.Header.Get("Origin"))
	assert.Equal(t, "https://www.trading212.com/en/login", auth.Header.Get("Referer"))
	assert.Equal(t, formContentType, auth.Header.Get("Content-Type"))

	form, err := url.ParseQuery(string(auth.Body))
	require.NoError(t, err)
	assert.Equal(t, testUsername, form.Get("login[username]"))
	assert.Equal(t, testPassword, form.Get("login[password]"))
	assert.Equal(t, "1", form.Get("login[rememberMe]"))
	assert.Equal(t, testToken, form.Get("login[_token]"))
	for _, key := range []string{"login[twoFactorAuthCode]", "login[twoFactorBackupCode]", "login[twoFactorAuthRememberDevice]"} {
		values, ok := form[key]
		assert.True(t, ok, "%s should be sent", key)
		assert.Equal(t, []string{""}, values)
	}

	// Account session exchange on the account root.
	exchange := fp.lastRequest("POST /")
	assert.Equal(t, "demo", exchange.Account)
	assert.Equal(t, "www.trading212.com", exchange.Host)

	form, err = url.ParseQuery(string(exchange.Body))
	require.NoError(t, err)
	assert.Equal(t, "login-1", form.Get("rememberMeCookie"))
	assert.Equal(t, "trading-1", form.Get("sessionCookie"))
	assert.Equal(t, "customer-1", form.Get("customerSessionCookie"))
	rnd, err := strconv.ParseInt(form.Get("rand"), 10, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rnd, int64(randMin))
	assert.Less(t, rnd, int64(randMax))

	assert.Equal(t, AccountContext{
		AccountID:          "1002",
		AccountType:        AccountDemo,
		TradingType:        TradingEquity,
		ApplicationName:    "WC4",
		ApplicationVersion: "5.131.0",
	}, sess.Account)
	assert.NotEmpty(t, sess.ID)

	cookies := sess.Cookies(fp.server.URL)
	for _, name := range []string{cookieLoginToken, "JSESSIONID", cookieCustomerSession, cookieSessionDemo} {
		assert.Contains(t, cookies, name)
	}
}

func TestSession_CachedWithinTTL(t *testing.T) {
	fp := newFakePlatform(t)
	client := newTestClient(t, fp)
	ctx := context.Background()

	first, err := client.Session(ctx)
	require.NoError(t, err)
	requestsAfterLogin := fp.requestCount()

	second, err := client.Session(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, fp.loginCount())
	assert.Equal(t, requestsAfterLogin, fp.requestCount(), "cache hit must not touch the network")
	assert.Equal(t, first.Cookies(fp.server.URL), second.Cookies(fp.server.URL))
}

func TestSession_ExpiresAfterTTL(t *testing.T) {
	fp := newFakePlatform(t)
	client := newTestClient(t, fp, WithSessionTTL(time.Minute))
	ctx := context.Background()

	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	client.cache.now = func() time.Time { return now }

	first, err := client.Session(ctx)
	require.NoError(t, err)

	now = now.Add(59 * time.Second)
	again, err := client.Session(ctx)
	require.NoError(t, err)
	assert.Same(t, first, again)

	now = now.Add(2 * time.Second)
	fresh, err := client.Session(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
	assert.Equal(t, 2, fp.loginCount())
	assert.NotEqual(t, first.Cookies(fp.server.URL)[cookieLoginToken], fresh.Cookies(fp.server.URL)[cookieLoginToken])
}

func TestSession_ConcurrentCallersShareLogin(t *testing.T) {
	fp := newFakePlatform(t)
	client := newTestClient(t, fp)

	var wg sync.WaitGroup
	sessions := make([]*Session, 8)
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := client.Session(context.Background())
			assert.NoError(t, err)
			sessions[i] = s
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, fp.loginCount())
	for _, s := range sessions[1:] {
		assert.Same(t, sessions[0], s)
	}
}

func TestSession_AuthenticationRejected(t *testing.T) {
	fp := newFakePlatform(t)
	fp.authStatus = http.StatusUnauthorized
	client := newTestClient(t, fp)

	_, err := client.Session(context.Background())
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.Contains(t, httpErr.Body, "BadCredentials")
	assert.Empty(t, fp.requestsTo("POST /"), "no exchange after a failed login")
}

func TestSession_LoginPageWithoutToken(t *testing.T) {
	fp := newFakePlatform(t)
	fp.loginPage = `<html><body>maintenance</body></html>`
	client := newTestClient(t, fp)

	_, err := client.Session(context.Background())
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.Empty(t, fp.requestsTo("POST /en/authenticate"))
}

func TestSession_MissingTradingSessionCookie(t *testing.T) {
	fp := newFakePlatform(t)
	fp.sessionCookieName = ""
	client := newTestClient(t, fp)

	_, err := client.Session(context.Background())
	assert.ErrorIs(t, err, ErrSessionCookieNotFound)
	assert.Empty(t, fp.requestsTo("POST /"))
}

func TestSession_LiveCookieFallback(t *testing.T) {
	fp := newFakePlatform(t)
	fp.sessionCookieName = cookieSessionLive
	client := newTestClient(t, fp)

	_, err := client.Session(context.Background())
	require.NoError(t, err)

	form, err := url.ParseQuery(string(fp.lastRequest("POST /").Body))
	require.NoError(t, err)
	assert.Equal(t, "trading-1", form.Get("sessionCookie"))
}

func TestSession_UnparseableExchangeFailsLoudly(t *testing.T) {
	fp := newFakePlatform(t)
	fp.exchangeBody = `<html>new layout without config</html>`
	client := newTestClient(t, fp)

	_, err := client.Session(context.Background())
	assert.ErrorIs(t, err, ErrParse)

	// Nothing was cached, the next call tries again.
	fp.mu.Lock()
	fp.exchangeBody = ""
	fp.mu.Unlock()
	_, err = client.Session(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fp.loginCount())
}
