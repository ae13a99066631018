package trading212

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// reportTimeFormat is the local-time layout of the position report range.
const reportTimeFormat = "2006-01-02T15:04:05.000"

// CFD trades contracts for difference on the client's active account.
type CFD struct {
	*Client
}

// NewCFD switches client to the CFD account of its current account type.
func NewCFD(ctx context.Context, client *Client) (*CFD, error) {
	if _, err := client.SwitchAccount(ctx, string(client.AccountType()), string(TradingCFD)); err != nil {
		return nil, err
	}
	return &CFD{Client: client}, nil
}

type positionReportQuery struct {
	From        string `schema:"from"`
	To          string `schema:"to"`
	IncludeOpen bool   `schema:"includeOpen"`
}

// Positions returns the position report between from and to. A zero from
// means 24 hours ago, a zero to means now.
func (c *CFD) Positions(ctx context.Context, from, to time.Time) (interface{}, error) {
	now := time.Now()
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = now.Add(-24 * time.Hour)
	}

	query, err := encodeValues(positionReportQuery{
		From:        from.Local().Format(reportTimeFormat),
		To:          to.Local().Format(reportTimeFormat),
		IncludeOpen: true,
	})
	if err != nil {
		return nil, err
	}

	var out interface{}
	if err := c.call(ctx, http.MethodGet, "/user-reports/rest/position", query, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}
	return out, nil
}

// PositionHistory returns the event history of one position.
func (c *CFD) PositionHistory(ctx context.Context, positionID string) (interface{}, error) {
	var out interface{}
	path := "/user-reports/rest/positionHistory/" + url.PathEscape(positionID)
	if err := c.call(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get position history: %w", err)
	}
	return out, nil
}

type openPositionPayload struct {
	InstrumentCode string   `json:"instrumentCode"`
	Notify         string   `json:"notify"`
	Quantity       float64  `json:"quantity"`
	TargetPrice    float64  `json:"targetPrice"`
	LimitDistance  *float64 `json:"limitDistance,omitempty"`
	StopDistance   *float64 `json:"stopDistance,omitempty"`
}

// OpenMarketPosition opens a position at the current price: the ask for a
// buy, the bid for a sell. Take-profit and stop-loss are distances from
// that price.
func (c *CFD) OpenMarketPosition(ctx context.Context, side Side, instrument string, quantity float64, opts PositionOptions) (Response, error) {
	signed, err := side.signed(quantity)
	if err != nil {
		return nil, err
	}

	bid, ask, err := c.MarketPrice(ctx, instrument)
	if err != nil {
		return nil, err
	}
	price := ask.Open
	if signed < 0 {
		price = bid.Open
	}

	payload := openPositionPayload{
		InstrumentCode: instrument,
		Notify:         "NONE",
		Quantity:       signed,
		TargetPrice:    price,
		LimitDistance:  floatPtr(opts.LimitDistance),
		StopDistance:   floatPtr(opts.StopDistance),
	}

	var out Response
	if err := c.call(ctx, http.MethodPost, "/rest/v2/trading/open-positions", nil, payload, &out); err != nil {
		return nil, fmt.Errorf("failed to open position on %s: %w", instrument, err)
	}
	return out, nil
}

type limitOrderPayload struct {
	Notify      string   `json:"notify"`
	Quantity    float64  `json:"quantity"`
	TargetPrice float64  `json:"targetPrice"`
	StopLoss    *float64 `json:"stopLoss"`
	TakeProfit  *float64 `json:"takeProfit"`
}

// OpenLimitOrder places a pending order at price with optional absolute
// take-profit and stop-loss levels.
func (c *CFD) OpenLimitOrder(ctx context.Context, side Side, instrument string, price, quantity float64, opts OrderOptions) (Response, error) {
	signed, err := side.signed(quantity)
	if err != nil {
		return nil, err
	}

	payload := limitOrderPayload{
		Notify:      "NONE",
		Quantity:    signed,
		TargetPrice: price,
		StopLoss:    floatPtr(opts.StopLoss),
		TakeProfit:  floatPtr(opts.TakeProfit),
	}

	var out Response
	path := "/rest/v2/pending-orders/entry-dep-limit-stop/" + url.PathEscape(instrument)
	if err := c.call(ctx, http.MethodPost, path, nil, payload, &out); err != nil {
		return nil, fmt.Errorf("failed to open order on %s: %w", instrument, err)
	}
	return out, nil
}

type takeProfitStopLoss struct {
	TakeProfit *float64 `json:"takeProfit"`
	StopLoss   *float64 `json:"stopLoss"`
}

type trailingStop struct {
	Distance float64 `json:"distance"`
}

type modifyPositionPayload struct {
	Notify string              `json:"notify"`
	TPSL   *takeProfitStopLoss `json:"tp_sl,omitempty"`
	TS     *trailingStop       `json:"ts,omitempty"`
}

// ModifyPosition replaces the risk levels of an open position. Setting only
// one of take-profit and stop-loss clears the other on the server.
func (c *CFD) ModifyPosition(ctx context.Context, positionID string, opts ModifyPositionOptions) (Response, error) {
	payload := modifyPositionPayload{Notify: "NONE"}
	if opts.TakeProfit != 0 || opts.StopLoss != 0 {
		payload.TPSL = &takeProfitStopLoss{
			TakeProfit: floatPtr(opts.TakeProfit),
			StopLoss:   floatPtr(opts.StopLoss),
		}
	}
	if opts.TrailingDistance != 0 {
		payload.TS = &trailingStop{Distance: opts.TrailingDistance}
	}

	var out Response
	path := "/rest/v2/pending-orders/associated/" + url.PathEscape(positionID)
	if err := c.call(ctx, http.MethodPut, path, nil, payload, &out); err != nil {
		return nil, fmt.Errorf("failed to modify position %s: %w", positionID, err)
	}
	return out, nil
}

type modifyOrderPayload struct {
	Notify      string   `json:"notify"`
	Quantity    float64  `json:"quantity"`
	TargetPrice float64  `json:"targetPrice"`
	TakeProfit  *float64 `json:"takeProfit,omitempty"`
	StopLoss    *float64 `json:"stopLoss,omitempty"`
}

// ModifyOrder replaces a pending order. The server issues a new order ID;
// read it from the returned snapshot rather than reusing orderID.
func (c *CFD) ModifyOrder(ctx context.Context, orderID string, price, quantity float64, opts OrderOptions) (Response, error) {
	payload := modifyOrderPayload{
		Notify:      "NONE",
		Quantity:    quantity,
		TargetPrice: price,
		TakeProfit:  floatPtr(opts.TakeProfit),
		StopLoss:    floatPtr(opts.StopLoss),
	}

	var out Response
	path := "/rest/v2/pending-orders/entry-dep-limit-stop/" + url.PathEscape(orderID)
	if err := c.call(ctx, http.MethodPut, path, nil, payload, &out); err != nil {
		return nil, fmt.Errorf("failed to modify order %s: %w", orderID, err)
	}
	return out, nil
}

// ClosePosition closes an open position at market.
func (c *CFD) ClosePosition(ctx context.Context, positionID string) (Response, error) {
	payload := struct {
		TargetPrice *float64 `json:"targetPrice"`
	}{}

	var out Response
	path := "/rest/v2/trading/open-positions/close/" + url.PathEscape(positionID)
	if err := c.call(ctx, http.MethodDelete, path, nil, payload, &out); err != nil {
		return nil, fmt.Errorf("failed to close position %s: %w", positionID, err)
	}
	return out, nil
}

// CloseOrder cancels a pending order.
func (c *CFD) CloseOrder(ctx context.Context, orderID string) (Response, error) {
	var out Response
	path := "/rest/v2/pending-orders/entry/" + url.PathEscape(orderID)
	if err := c.call(ctx, http.MethodDelete, path, nil, struct{}{}, &out); err != nil {
		return nil, fmt.Errorf("failed to cancel order %s: %w", orderID, err)
	}
	return out, nil
}
