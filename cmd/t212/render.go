package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/aristath/trading212/pkg/trading212"
	"github.com/olekukonko/tablewriter"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	return table
}

func price(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optionalPrice(v *float64) string {
	if v == nil {
		return "-"
	}
	return price(*v)
}

func renderAccounts(w io.Writer, accounts trading212.Accounts) {
	table := newTable(w, "ID", "Environment", "Trading type")
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, env := range []trading212.AccountType{trading212.AccountDemo, trading212.AccountLive} {
		for _, ref := range accounts[env] {
			table.Append([]string{ref.ID.String(), string(env), ref.TradingType})
		}
	}
	table.Render()
}

func renderCandles(w io.Writer, series *trading212.CandleSeries) {
	fmt.Fprintf(w, "%s %s\n", series.Request.InstCode, series.Request.PeriodType)
	table := newTable(w, "#", "Bid open", "Bid high", "Bid low", "Bid close", "Ask open", "Ask high", "Ask low", "Ask close")
	for i, c := range series.Candles {
		table.Append([]string{
			strconv.Itoa(i + 1),
			price(c.Bid.Open), price(c.Bid.High), price(c.Bid.Low), price(c.Bid.Close),
			price(c.Ask.Open), price(c.Ask.High), price(c.Ask.Low), price(c.Ask.Close),
		})
	}
	table.Render()
}

func renderPrice(w io.Writer, bid, ask trading212.OHLC) {
	table := newTable(w, "Side", "Open", "High", "Low", "Close")
	table.Append([]string{"bid", price(bid.Open), price(bid.High), price(bid.Low), price(bid.Close)})
	table.Append([]string{"ask", price(ask.Open), price(ask.High), price(ask.Low), price(ask.Close)})
	table.Render()
}

func renderEquityOrders(w io.Writer, orders []trading212.EquityOrder) {
	if len(orders) == 0 {
		fmt.Fprintln(w, "No pending orders")
		return
	}
	table := newTable(w, "Order", "Instrument", "Type", "Quantity", "Limit", "Stop")
	for _, o := range orders {
		table.Append([]string{
			string(o.OrderID), o.Code, o.Type, price(o.Quantity),
			optionalPrice(o.LimitPrice), optionalPrice(o.StopPrice),
		})
	}
	table.Render()
}

// printJSON writes v indented, for payloads whose shape is owned by the server.
func printJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
