package trading212

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// InitInfo returns the platform bootstrap document (customer, accounts, settings).
func (c *Client) InitInfo(ctx context.Context) (Response, error) {
	var out Response
	if err := c.call(ctx, http.MethodGet, "/rest/v3/init-info", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get init info: %w", err)
	}
	return out, nil
}

// Accounts lists the customer's demo and live accounts.
func (c *Client) Accounts(ctx context.Context) (Accounts, error) {
	var info initInfo
	if err := c.call(ctx, http.MethodGet, "/rest/v3/init-info", nil, nil, &info); err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}
	return Accounts{
		AccountDemo: info.Customer.DemoAccounts,
		AccountLive: info.Customer.LiveAccounts,
	}, nil
}

// Account returns a fresh snapshot of the active account: cash, positions
// and pending orders. Nothing is cached.
func (c *Client) Account(ctx context.Context) (Response, error) {
	var out Response
	if err := c.call(ctx, http.MethodGet, "/rest/v2/account", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return out, nil
}

// Notifications returns the account's notification feed.
func (c *Client) Notifications(ctx context.Context) ([]Response, error) {
	var out []Response
	if err := c.call(ctx, http.MethodGet, "/rest/v2/notifications", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	return out, nil
}

// PriceAlerts returns the configured price alerts.
func (c *Client) PriceAlerts(ctx context.Context) ([]Response, error) {
	var out []Response
	if err := c.call(ctx, http.MethodGet, "/rest/v2/price-alerts", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get price alerts: %w", err)
	}
	return out, nil
}

// SwitchAccount activates the first account of accountType whose trading
// type matches tradingType. Once the server has answered, the cached session
// is dropped and the next call logs in against the new account.
func (c *Client) SwitchAccount(ctx context.Context, accountType, tradingType string) (Response, error) {
	at, err := ParseAccountType(accountType)
	if err != nil {
		return nil, err
	}
	tt, err := ParseTradingType(tradingType)
	if err != nil {
		return nil, err
	}

	sess, err := c.Session(ctx)
	if err != nil {
		return nil, err
	}

	var info initInfo
	if err := c.callWith(ctx, sess, http.MethodGet, "/rest/v3/init-info", nil, nil, &info); err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}

	candidates := info.Customer.DemoAccounts
	if at == AccountLive {
		candidates = info.Customer.LiveAccounts
	}

	var target *AccountRef
	for i := range candidates {
		if strings.EqualFold(candidates[i].TradingType, string(tt)) {
			target = &candidates[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("%w - %s - %s", ErrAccountNotFound, at, tt)
	}

	payload := struct {
		AccountID json.Number `json:"accountId"`
	}{AccountID: target.ID}

	var out Response
	err = c.callWith(ctx, sess, http.MethodPost, "/rest/v2/account/switch", nil, payload, &out)

	// A server-side switch may have happened even if the answer is an error status.
	var httpErr *HTTPError
	if err == nil || errors.As(err, &httpErr) {
		c.cache.invalidate()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to switch account: %w", err)
	}

	c.setAccountType(at)
	c.log.Info().
		Str("account_type", string(at)).
		Str("trading_type", string(tt)).
		Str("account_id", target.ID.String()).
		Msg("Switched account")

	return out, nil
}
