package main

import (
	"strings"

	"github.com/aristath/trading212/pkg/trading212"
	"github.com/spf13/cobra"
)

func newAccountsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List demo and live accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			accounts, err := client.Accounts(cmd.Context())
			if err != nil {
				return err
			}
			renderAccounts(a.out, accounts)
			return nil
		},
	}
}

func newAccountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Print a snapshot of the active account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			snapshot, err := client.Account(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(a.out, snapshot)
		},
	}
}

func newCandlesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candles <instrument>",
		Short: "Show the latest candles of an instrument",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := cmd.Flags().GetInt("period")
			if err != nil {
				return err
			}
			limit, err := cmd.Flags().GetInt("limit")
			if err != nil {
				return err
			}

			client, err := a.client()
			if err != nil {
				return err
			}
			series, err := client.Candles(cmd.Context(), args[0], trading212.Period(period), trading212.CandleOptions{Limit: limit})
			if err != nil {
				return err
			}
			renderCandles(a.out, series)
			return nil
		},
	}
	cmd.Flags().Int("period", int(trading212.PeriodOneHour), "candle size in minutes (0 for one month)")
	cmd.Flags().Int("limit", 10, "number of candles")
	return cmd
}

func newPriceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "price <instrument>",
		Short: "Show bid and ask of the current five-minute candle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			bid, ask, err := client.MarketPrice(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			renderPrice(a.out, bid, ask)
			return nil
		},
	}
}

func newSwitchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "switch [cfd|equity]",
		Short: "Activate the account of the given trading type (defaults to T212_TRADING_TYPE)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			accountType, err := cmd.Flags().GetString("account")
			if err != nil {
				return err
			}
			if accountType == "" {
				accountType = string(client.AccountType())
			}
			tradingType := a.cfg.TradingType
			if len(args) == 1 {
				tradingType = args[0]
			}
			out, err := client.SwitchAccount(cmd.Context(), accountType, tradingType)
			if err != nil {
				return err
			}
			return printJSON(a.out, out)
		},
	}
	cmd.Flags().String("account", "", "demo or live (defaults to T212_ACCOUNT_TYPE)")
	return cmd
}

func newInstrumentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instruments <code>[,<code>]...",
		Short: "Print account settings or price increments of instruments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			increments, err := cmd.Flags().GetBool("increments")
			if err != nil {
				return err
			}

			codes := splitCodes(args)
			client, err := a.client()
			if err != nil {
				return err
			}
			if increments {
				out, err := client.PriceIncrements(cmd.Context(), codes)
				if err != nil {
					return err
				}
				return printJSON(a.out, out)
			}
			settings, err := client.InstrumentSettings(cmd.Context(), codes)
			if err != nil {
				return err
			}
			return printJSON(a.out, settings)
		},
	}
	cmd.Flags().Bool("increments", false, "show price increments instead of settings")
	return cmd
}

// splitCodes accepts codes as separate arguments, comma-separated, or both.
func splitCodes(args []string) []string {
	var codes []string
	for _, arg := range args {
		for _, v := range strings.Split(arg, ",") {
			if code := strings.TrimSpace(v); code != "" {
				codes = append(codes, code)
			}
		}
	}
	return codes
}
