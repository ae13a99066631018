package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aristath/trading212/pkg/trading212"
	"github.com/spf13/cobra"
)

func newCFDCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cfd",
		Short: "Trade contracts for difference",
	}

	positions := &cobra.Command{
		Use:   "positions",
		Short: "Print the position report (default: last 24 hours)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := timeFlag(cmd, "from")
			if err != nil {
				return err
			}
			to, err := timeFlag(cmd, "to")
			if err != nil {
				return err
			}

			cfd, err := a.cfd(cmd)
			if err != nil {
				return err
			}
			report, err := cfd.Positions(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			return printJSON(a.out, report)
		},
	}
	positions.Flags().String("from", "", "start of the range (RFC3339 or YYYY-MM-DD)")
	positions.Flags().String("to", "", "end of the range (RFC3339 or YYYY-MM-DD)")

	open := &cobra.Command{
		Use:   "open <instrument> <quantity>",
		Short: "Open a market position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			side, quantity, err := sideAndQuantity(cmd, args[1])
			if err != nil {
				return err
			}
			limitDistance, _ := cmd.Flags().GetFloat64("limit-distance")
			stopDistance, _ := cmd.Flags().GetFloat64("stop-distance")

			cfd, err := a.cfd(cmd)
			if err != nil {
				return err
			}
			out, err := cfd.OpenMarketPosition(cmd.Context(), side, args[0], quantity, trading212.PositionOptions{
				LimitDistance: limitDistance,
				StopDistance:  stopDistance,
			})
			if err != nil {
				return err
			}
			return printJSON(a.out, out)
		},
	}
	open.Flags().String("side", string(trading212.Buy), "buy or sell")
	open.Flags().Float64("limit-distance", 0, "take-profit distance from the entry price")
	open.Flags().Float64("stop-distance", 0, "stop-loss distance from the entry price")

	closeCmd := &cobra.Command{
		Use:   "close <id>",
		Short: "Close an open position, or cancel a pending order with --order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pending, err := cmd.Flags().GetBool("order")
			if err != nil {
				return err
			}

			cfd, err := a.cfd(cmd)
			if err != nil {
				return err
			}
			var out trading212.Response
			if pending {
				out, err = cfd.CloseOrder(cmd.Context(), args[0])
			} else {
				out, err = cfd.ClosePosition(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return printJSON(a.out, out)
		},
	}
	closeCmd.Flags().Bool("order", false, "the id is a pending order")

	cmd.AddCommand(positions, open, closeCmd)
	return cmd
}

func newEquityCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "equity",
		Short: "Trade shares",
	}

	orders := &cobra.Command{
		Use:   "orders",
		Short: "List pending equity orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			equity, err := a.equity(cmd)
			if err != nil {
				return err
			}
			list, err := equity.Orders(cmd.Context())
			if err != nil {
				return err
			}
			renderEquityOrders(a.out, list)
			return nil
		},
	}

	open := &cobra.Command{
		Use:   "open <instrument> <quantity>",
		Short: "Place a market order, or a limit order when a price is given",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			side, quantity, err := sideAndQuantity(cmd, args[1])
			if err != nil {
				return err
			}
			limitPrice, _ := cmd.Flags().GetFloat64("limit-price")
			stopPrice, _ := cmd.Flags().GetFloat64("stop-price")
			validity, _ := cmd.Flags().GetString("validity")

			equity, err := a.equity(cmd)
			if err != nil {
				return err
			}
			out, err := equity.OpenOrder(cmd.Context(), side, args[0], quantity, trading212.EquityOrderOptions{
				LimitPrice:   limitPrice,
				StopPrice:    stopPrice,
				TimeValidity: validity,
			})
			if err != nil {
				return err
			}
			return printJSON(a.out, out)
		},
	}
	open.Flags().String("side", string(trading212.Buy), "buy or sell")
	open.Flags().Float64("limit-price", 0, "limit price")
	open.Flags().Float64("stop-price", 0, "stop price")
	open.Flags().String("validity", string(trading212.ValidDay), "DAY or GOOD_TILL_CANCEL")

	closeCmd := &cobra.Command{
		Use:   "close <order-id>",
		Short: "Cancel a pending equity order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			equity, err := a.equity(cmd)
			if err != nil {
				return err
			}
			out, err := equity.CloseOrder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(a.out, out)
		},
	}

	cmd.AddCommand(orders, open, closeCmd)
	return cmd
}

func (a *app) cfd(cmd *cobra.Command) (*trading212.CFD, error) {
	client, err := a.client()
	if err != nil {
		return nil, err
	}
	return trading212.NewCFD(cmd.Context(), client)
}

func (a *app) equity(cmd *cobra.Command) (*trading212.Equity, error) {
	client, err := a.client()
	if err != nil {
		return nil, err
	}
	return trading212.NewEquity(cmd.Context(), client)
}

func sideAndQuantity(cmd *cobra.Command, raw string) (trading212.Side, float64, error) {
	s, err := cmd.Flags().GetString("side")
	if err != nil {
		return "", 0, err
	}
	side, err := trading212.ParseSide(s)
	if err != nil {
		return "", 0, err
	}
	quantity, err := strconv.ParseFloat(raw, 64)
	if err != nil || quantity <= 0 {
		return "", 0, fmt.Errorf("quantity must be a positive number, got %q", raw)
	}
	return side, quantity, nil
}

func timeFlag(cmd *cobra.Command, name string) (time.Time, error) {
	raw, err := cmd.Flags().GetString(name)
	if err != nil || raw == "" {
		return time.Time{}, err
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: expected RFC3339 or YYYY-MM-DD, got %q", name, raw)
	}
	return t, nil
}
