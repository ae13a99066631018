package trading212

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Equity trades shares on the client's active account.
type Equity struct {
	*Client
}

// NewEquity switches client to the Equity account of its current account type.
func NewEquity(ctx context.Context, client *Client) (*Equity, error) {
	if _, err := client.SwitchAccount(ctx, string(client.AccountType()), string(TradingEquity)); err != nil {
		return nil, err
	}
	return &Equity{Client: client}, nil
}

// Orders returns the pending equity orders from a fresh account snapshot.
func (e *Equity) Orders(ctx context.Context) ([]EquityOrder, error) {
	var snapshot struct {
		EquityOrders []EquityOrder `json:"equityOrders"`
	}
	if err := e.call(ctx, http.MethodGet, "/rest/v2/account", nil, nil, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to get equity orders: %w", err)
	}
	return snapshot.EquityOrders, nil
}

// OpenOrder places a MARKET order, or a LIMIT order when a limit or stop
// price is given. Time validity defaults to DAY.
func (e *Equity) OpenOrder(ctx context.Context, side Side, instrument string, quantity float64, opts EquityOrderOptions) (Response, error) {
	signed, err := side.signed(quantity)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"instrumentCode": instrument,
		"quantity":       signed,
		"orderType":      OrderTypeMarket,
	}

	if opts.LimitPrice != 0 || opts.StopPrice != 0 {
		validity, err := ParseTimeValidity(opts.TimeValidity)
		if err != nil {
			return nil, err
		}
		payload["limitPrice"] = floatPtr(opts.LimitPrice)
		payload["stopPrice"] = floatPtr(opts.StopPrice)
		payload["orderType"] = OrderTypeLimit
		payload["timeValidity"] = validity
	}

	var out Response
	if err := e.call(ctx, http.MethodPost, "/rest/public/v2/equity/order", nil, payload, &out); err != nil {
		return nil, fmt.Errorf("failed to open order on %s: %w", instrument, err)
	}
	return out, nil
}

type equityModifyPayload struct {
	Quantity   float64  `json:"quantity"`
	LimitPrice *float64 `json:"limitPrice,omitempty"`
	StopPrice  *float64 `json:"stopPrice,omitempty"`
}

// ModifyOrder changes quantity and prices of a pending order. The prices
// sent must fit the order's type: LIMIT takes a limit price, STOP a stop
// price, STOP_LIMIT both.
func (e *Equity) ModifyOrder(ctx context.Context, orderID string, quantity float64, opts EquityModifyOptions) (Response, error) {
	orders, err := e.Orders(ctx)
	if err != nil {
		return nil, err
	}

	var order *EquityOrder
	for i := range orders {
		if string(orders[i].OrderID) == orderID {
			order = &orders[i]
			break
		}
	}
	if order == nil {
		return nil, fmt.Errorf("%w - %s", ErrOrderNotFound, orderID)
	}

	payload := equityModifyPayload{Quantity: quantity}
	switch {
	case order.Type == OrderTypeLimit && opts.LimitPrice != 0:
		payload.LimitPrice = floatPtr(opts.LimitPrice)
	case order.Type == OrderTypeStop && opts.StopPrice != 0:
		payload.StopPrice = floatPtr(opts.StopPrice)
	case order.Type == OrderTypeStopLimit && opts.LimitPrice != 0 && opts.StopPrice != 0:
		payload.LimitPrice = floatPtr(opts.LimitPrice)
		payload.StopPrice = floatPtr(opts.StopPrice)
	default:
		return nil, fmt.Errorf("%w: %s order %s", ErrInvalidRequest, order.Type, orderID)
	}

	var out Response
	path := "/rest/public/v2/equity/order/" + url.PathEscape(orderID)
	if err := e.call(ctx, http.MethodPut, path, nil, payload, &out); err != nil {
		return nil, fmt.Errorf("failed to modify order %s: %w", orderID, err)
	}
	return out, nil
}

// CloseOrder cancels a pending order.
func (e *Equity) CloseOrder(ctx context.Context, orderID string) (Response, error) {
	var out Response
	path := "/rest/public/v2/equity/order/" + url.PathEscape(orderID)
	if err := e.call(ctx, http.MethodDelete, path, nil, struct{}{}, &out); err != nil {
		return nil, fmt.Errorf("failed to cancel order %s: %w", orderID, err)
	}
	return out, nil
}
