package trading212

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// AccountType selects the demo or live environment (and its subdomain).
type AccountType string

const (
	AccountDemo AccountType = "demo"
	AccountLive AccountType = "live"
)

// ParseAccountType normalises s case-insensitively.
func ParseAccountType(s string) (AccountType, error) {
	switch t := AccountType(strings.ToLower(strings.TrimSpace(s))); t {
	case AccountDemo, AccountLive:
		return t, nil
	}
	return "", invalidArgument("invalid account type - %s", s)
}

// TradingType selects contract-for-difference or share trading.
type TradingType string

const (
	TradingCFD    TradingType = "cfd"
	TradingEquity TradingType = "equity"
)

// ParseTradingType normalises s case-insensitively.
func ParseTradingType(s string) (TradingType, error) {
	switch t := TradingType(strings.ToLower(strings.TrimSpace(s))); t {
	case TradingCFD, TradingEquity:
		return t, nil
	}
	return "", invalidArgument("invalid trading type - %s", s)
}

// Side is the direction of a trade.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// ParseSide normalises s case-insensitively.
func ParseSide(s string) (Side, error) {
	switch side := Side(strings.ToLower(strings.TrimSpace(s))); side {
	case Buy, Sell:
		return side, nil
	}
	return "", invalidArgument("invalid side - %s", s)
}

// signed returns |quantity| for buys and -|quantity| for sells.
func (s Side) signed(quantity float64) (float64, error) {
	side, err := ParseSide(string(s))
	if err != nil {
		return 0, err
	}
	if side == Sell {
		return -math.Abs(quantity), nil
	}
	return math.Abs(quantity), nil
}

// Period is a candle bucket size in minutes. PeriodOneMonth is 0.
type Period int

const (
	PeriodOneMonth       Period = 0
	PeriodOneMinute      Period = 1
	PeriodFiveMinutes    Period = 5
	PeriodTenMinutes     Period = 10
	PeriodFifteenMinutes Period = 15
	PeriodThirtyMinutes  Period = 30
	PeriodOneHour        Period = 60
	PeriodFourHours      Period = 240
	PeriodOneDay         Period = 1440
	PeriodOneWeek        Period = 10080
)

var periodTypes = map[Period]string{
	PeriodOneMinute:      "ONE_MINUTE",
	PeriodFiveMinutes:    "FIVE_MINUTES",
	PeriodTenMinutes:     "TEN_MINUTES",
	PeriodFifteenMinutes: "FIFTEEN_MINUTES",
	PeriodThirtyMinutes:  "THIRTY_MINUTES",
	PeriodOneHour:        "ONE_HOUR",
	PeriodFourHours:      "FOUR_HOURS",
	PeriodOneDay:         "ONE_DAY",
	PeriodOneWeek:        "ONE_WEEK",
	PeriodOneMonth:       "ONE_MONTH",
}

// PeriodType returns the server name of the bucket, e.g. "ONE_HOUR".
func (p Period) PeriodType() (string, error) {
	name, ok := periodTypes[p]
	if !ok {
		return "", invalidArgument("invalid period - %d", int(p))
	}
	return name, nil
}

// TimeValidity is how long a pending equity order stays on the book.
type TimeValidity string

const (
	ValidDay            TimeValidity = "DAY"
	ValidGoodTillCancel TimeValidity = "GOOD_TILL_CANCEL"
)

// ParseTimeValidity normalises s case-insensitively. Empty means DAY.
func ParseTimeValidity(s string) (TimeValidity, error) {
	if strings.TrimSpace(s) == "" {
		return ValidDay, nil
	}
	switch tv := TimeValidity(strings.ToUpper(strings.TrimSpace(s))); tv {
	case ValidDay, ValidGoodTillCancel:
		return tv, nil
	}
	return "", invalidArgument("invalid time validity - %s", s)
}

// AccountContext identifies the account a session is bound to. Every REST
// header is derived from it.
type AccountContext struct {
	AccountID          string
	AccountType        AccountType
	TradingType        TradingType
	ApplicationName    string
	ApplicationVersion string
}

// TraderClient renders the X-Trader-Client header value.
func (a AccountContext) TraderClient() string {
	return fmt.Sprintf("application=%s, version=%s, accountId=%s",
		a.ApplicationName, a.ApplicationVersion, a.AccountID)
}

// OHLC is one side of a candle.
type OHLC struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Candle carries bid and ask prices for a single period.
type Candle struct {
	Bid OHLC `json:"bid"`
	Ask OHLC `json:"ask"`
}

// CandleRequest is one entry of a candles query.
type CandleRequest struct {
	InstCode   string `json:"instCode"`
	PeriodType string `json:"periodType"`
	Limit      int    `json:"limit"`
	WithFakes  bool   `json:"withFakes"`
}

// CandleSeries is the server's answer to a CandleRequest.
type CandleSeries struct {
	Request CandleRequest `json:"request"`
	Candles []Candle      `json:"candles"`
}

// HighLowRequest asks for the session high/low of a ticker.
type HighLowRequest struct {
	Ticker string `json:"ticker"`
}

// DeviationRequest asks for the price deviation of a ticker.
type DeviationRequest struct {
	Ticker       string `json:"ticker"`
	IncludeFake  bool   `json:"includeFake"`
	UseAskPrices bool   `json:"useAskPrices"`
}

// BatchRequest groups several chart queries. Candles go to one endpoint,
// highLow and deviations to another, so Candles cannot be combined with
// the other two.
type BatchRequest struct {
	Candles    []CandleRequest    `json:"candles,omitempty"`
	HighLow    []HighLowRequest   `json:"highLow,omitempty"`
	Deviations []DeviationRequest `json:"deviations,omitempty"`
}

// AccountRef is an entry of the customer's demo or live account list.
type AccountRef struct {
	ID          json.Number `json:"id"`
	TradingType string      `json:"tradingType"`
}

// Accounts lists the customer's accounts by environment.
type Accounts map[AccountType][]AccountRef

type initInfo struct {
	Customer struct {
		DemoAccounts []AccountRef `json:"demoAccounts"`
		LiveAccounts []AccountRef `json:"liveAccounts"`
	} `json:"customer"`
}

// ID is a server identifier that may be sent as a JSON string or number.
type ID string

// UnmarshalJSON accepts both quoted and bare identifiers.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	*id = ID(b)
	return nil
}

// EquityOrder is a pending order as reported in the account snapshot.
type EquityOrder struct {
	OrderID    ID       `json:"orderId"`
	Code       string   `json:"code"`
	Type       string   `json:"type"`
	Quantity   float64  `json:"quantity"`
	LimitPrice *float64 `json:"limitPrice"`
	StopPrice  *float64 `json:"stopPrice"`
}

// Equity order types reported by the server.
const (
	OrderTypeMarket    = "MARKET"
	OrderTypeLimit     = "LIMIT"
	OrderTypeStop      = "STOP"
	OrderTypeStopLimit = "STOP_LIMIT"
)

// CandleOptions tunes a candles query. Limit 0 means 500.
type CandleOptions struct {
	Limit     int
	WithFakes bool
}

// PositionOptions sets take-profit and stop-loss as distances from the
// execution price. Zero leaves the level unset.
type PositionOptions struct {
	LimitDistance float64
	StopDistance  float64
}

// OrderOptions sets absolute take-profit and stop-loss prices for a pending
// CFD order. Zero leaves the level unset.
type OrderOptions struct {
	TakeProfit float64
	StopLoss   float64
}

// ModifyPositionOptions replaces the risk levels of an open position. Zero
// fields are not sent.
type ModifyPositionOptions struct {
	TakeProfit       float64
	StopLoss         float64
	TrailingDistance float64
}

// EquityOrderOptions turns a market order into a LIMIT order when either
// price is set.
type EquityOrderOptions struct {
	LimitPrice   float64
	StopPrice    float64
	TimeValidity string
}

// EquityModifyOptions carries the new prices of a pending equity order.
type EquityModifyOptions struct {
	LimitPrice float64
	StopPrice  float64
}

// Response is a decoded JSON object returned by the API.
type Response map[string]interface{}

func floatPtr(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}
