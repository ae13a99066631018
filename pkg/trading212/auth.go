package trading212

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Cookie names set by the platform during login.
const (
	cookieLoginToken      = "LOGIN_TOKEN"
	cookieCustomerSession = "CUSTOMER_SESSION"
	cookieSessionDemo     = "TRADING212_SESSION_DEMO"
	cookieSessionLive     = "TRADING212_SESSION_LIVE"

	loginTokenField = "login[_token]"
	formContentType = "application/x-www-form-urlencoded; charset=UTF-8"
)

// The account session request carries a random cache buster in this range.
const (
	randMin = 1400000000
	randMax = 1500000000
)

type loginForm struct {
	Username                    string `schema:"login[username]"`
	Password                    string `schema:"login[password]"`
	RememberMe                  int    `schema:"login[rememberMe]"`
	Token                       string `schema:"login[_token]"`
	TwoFactorAuthCode           string `schema:"login[twoFactorAuthCode]"`
	TwoFactorBackupCode         string `schema:"login[twoFactorBackupCode]"`
	TwoFactorAuthRememberDevice string `schema:"login[twoFactorAuthRememberDevice]"`
}

type accountSessionForm struct {
	RememberMeCookie      string `schema:"rememberMeCookie"`
	SessionCookie         string `schema:"sessionCookie"`
	CustomerSessionCookie string `schema:"customerSessionCookie"`
	Rand                  int64  `schema:"rand"`
}

// loginToken fetches the login page and returns its one-time form token.
func (c *Client) loginToken(ctx context.Context, sess *Session) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoints.SiteURL+"/en/login", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	page, err := c.send(sess, req)
	if err != nil {
		return "", err
	}
	return findLoginToken(page)
}

// findLoginToken returns the value of the login[_token] input of page.
func findLoginToken(page []byte) (string, error) {
	z := html.NewTokenizer(bytes.NewReader(page))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return "", ErrTokenNotFound
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "input" {
				continue
			}
			var name, value string
			hasValue := false
			for _, attr := range tok.Attr {
				switch attr.Key {
				case "name":
					name = attr.Val
				case "value":
					value, hasValue = attr.Val, true
				}
			}
			if name != loginTokenField {
				continue
			}
			if !hasValue {
				return "", fmt.Errorf("%w: input has no value", ErrTokenNotFound)
			}
			return value, nil
		}
	}
}

// authenticate submits the credentials. On success the session's jar holds
// LOGIN_TOKEN, JSESSIONID and CUSTOMER_SESSION.
func (c *Client) authenticate(ctx context.Context, sess *Session) error {
	token, err := c.loginToken(ctx, sess)
	if err != nil {
		return err
	}

	form, err := encodeValues(loginForm{
		Username:   c.username,
		Password:   c.password,
		RememberMe: 1,
		Token:      token,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoints.SiteURL+"/en/authenticate", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = siteHeaders("https://" + siteHost + "/en/login")
	req.Header.Set("Content-Type", formContentType)

	if _, err := c.send(sess, req); err != nil {
		return err
	}

	c.log.Debug().Str("session_id", sess.ID).Msg("Credentials accepted")
	return nil
}

// establishAccountSession trades the login cookies for an application
// session on the account subdomain and parses the account context out of
// the answer.
func (c *Client) establishAccountSession(ctx context.Context, sess *Session) (AccountContext, error) {
	accountRoot := c.RestURL(c.AccountType(), "")
	cookies := sess.Cookies(c.endpoints.SiteURL, accountRoot)

	sessionCookie, ok := cookies[cookieSessionDemo]
	if !ok || sessionCookie == "" {
		sessionCookie, ok = cookies[cookieSessionLive]
	}
	if !ok || sessionCookie == "" {
		return AccountContext{}, ErrSessionCookieNotFound
	}
	for _, name := range []string{cookieLoginToken, cookieCustomerSession} {
		if cookies[name] == "" {
			return AccountContext{}, fmt.Errorf("%w: %s missing", ErrSessionCookieNotFound, name)
		}
	}

	form, err := encodeValues(accountSessionForm{
		RememberMeCookie:      cookies[cookieLoginToken],
		SessionCookie:         sessionCookie,
		CustomerSessionCookie: cookies[cookieCustomerSession],
		Rand:                  randMin + rand.Int63n(randMax-randMin),
	})
	if err != nil {
		return AccountContext{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, accountRoot, strings.NewReader(form.Encode()))
	if err != nil {
		return AccountContext{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = siteHeaders("https://" + siteHost + "/")
	req.Header.Set("Content-Type", formContentType)

	body, err := c.send(sess, req)
	if err != nil {
		return AccountContext{}, err
	}
	return ParseAccountContext(body)
}

var (
	accountIDPattern   = regexp.MustCompile(`'accountId':\s'([0-9]+)'`)
	accountTypePattern = regexp.MustCompile(`'accountType':\s'([A-Za-z]+)'`)
	tradingTypePattern = regexp.MustCompile(`'accountTradingType':\s'([A-Za-z]+)'`)
	appNamePattern     = regexp.MustCompile(`application=([A-Za-z0-9]+)`)
	appVersionPattern  = regexp.MustCompile(`version=([A-Za-z0-9.]+)`)
)

// ParseAccountContext extracts the account context from the script text the
// platform returns after the account session exchange. Every field must be
// present; nothing is defaulted.
func ParseAccountContext(body []byte) (AccountContext, error) {
	find := func(field string, re *regexp.Regexp) (string, error) {
		m := re.FindSubmatch(body)
		if m == nil {
			return "", fmt.Errorf("%w: %s not found in account session response", ErrParse, field)
		}
		return string(m[1]), nil
	}

	var ctx AccountContext
	var err error

	if ctx.AccountID, err = find("accountId", accountIDPattern); err != nil {
		return AccountContext{}, err
	}

	rawType, err := find("accountType", accountTypePattern)
	if err != nil {
		return AccountContext{}, err
	}
	if ctx.AccountType, err = ParseAccountType(rawType); err != nil {
		return AccountContext{}, fmt.Errorf("%w: unexpected accountType %q", ErrParse, rawType)
	}

	rawTrading, err := find("accountTradingType", tradingTypePattern)
	if err != nil {
		return AccountContext{}, err
	}
	if ctx.TradingType, err = ParseTradingType(rawTrading); err != nil {
		return AccountContext{}, fmt.Errorf("%w: unexpected accountTradingType %q", ErrParse, rawTrading)
	}

	if ctx.ApplicationName, err = find("application", appNamePattern); err != nil {
		return AccountContext{}, err
	}
	if ctx.ApplicationVersion, err = find("version", appVersionPattern); err != nil {
		return AccountContext{}, err
	}

	return ctx, nil
}
