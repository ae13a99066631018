package trading212

import (
	"context"
	"fmt"
	"net/http"
)

const defaultCandleLimit = 500

// Candles returns the latest candles of instrument. The period is checked
// before any request is made.
func (c *Client) Candles(ctx context.Context, instrument string, period Period, opts CandleOptions) (*CandleSeries, error) {
	periodType, err := period.PeriodType()
	if err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultCandleLimit
	}

	payload := []CandleRequest{{
		InstCode:   instrument,
		PeriodType: periodType,
		Limit:      limit,
		WithFakes:  opts.WithFakes,
	}}

	var series []CandleSeries
	if err := c.call(ctx, http.MethodPost, "/charting/rest/v2/candles", nil, payload, &series); err != nil {
		return nil, fmt.Errorf("failed to get candles for %s: %w", instrument, err)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: empty candles response for %s", ErrNoMarketData, instrument)
	}
	return &series[0], nil
}

// MarketPrice returns the bid and ask of the current five-minute candle.
func (c *Client) MarketPrice(ctx context.Context, instrument string) (bid, ask OHLC, err error) {
	series, err := c.Candles(ctx, instrument, PeriodFiveMinutes, CandleOptions{Limit: 1})
	if err != nil {
		return OHLC{}, OHLC{}, err
	}
	if len(series.Candles) == 0 {
		return OHLC{}, OHLC{}, fmt.Errorf("%w: no candle for %s", ErrNoMarketData, instrument)
	}
	return series.Candles[0].Bid, series.Candles[0].Ask, nil
}

// Batch sends several chart queries in one request. Candles are served by
// the legacy batch endpoint; highLow and deviations by the v2 endpoint. Any
// other combination, including an empty request, is rejected.
func (c *Client) Batch(ctx context.Context, req BatchRequest) (Response, error) {
	hasCandles := len(req.Candles) > 0
	hasV2 := len(req.HighLow) > 0 || len(req.Deviations) > 0

	var path string
	switch {
	case hasCandles && !hasV2:
		path = "/charting/rest/batch"
	case hasV2 && !hasCandles:
		path = "/charting/v2/batch"
	default:
		return nil, invalidArgument("batch needs either candles or highLow/deviations, not both or neither")
	}

	var out Response
	if err := c.call(ctx, http.MethodPost, path, nil, req, &out); err != nil {
		return nil, fmt.Errorf("batch request failed: %w", err)
	}
	return out, nil
}

// InstrumentSettings returns the account's settings for each instrument code.
func (c *Client) InstrumentSettings(ctx context.Context, instruments []string) ([]Response, error) {
	if len(instruments) == 0 {
		return nil, invalidArgument("no instruments given")
	}

	var out []Response
	if err := c.call(ctx, http.MethodPost, "/rest/v2/account/instruments/settings", nil, instruments, &out); err != nil {
		return nil, fmt.Errorf("failed to get instrument settings: %w", err)
	}
	return out, nil
}

type priceIncrementsQuery struct {
	InstrumentCodes []string `schema:"instrumentCodes"`
}

// PriceIncrements returns the tick size tables of the given instruments.
func (c *Client) PriceIncrements(ctx context.Context, instruments []string) (interface{}, error) {
	if len(instruments) == 0 {
		return nil, invalidArgument("no instruments given")
	}

	query, err := encodeValues(priceIncrementsQuery{InstrumentCodes: instruments})
	if err != nil {
		return nil, err
	}

	var out interface{}
	if err := c.call(ctx, http.MethodGet, "/rest/v2/instruments/price-increments", query, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get price increments: %w", err)
	}
	return out, nil
}
