package main

import (
	"fmt"
	"io"

	"github.com/aristath/trading212/internal/config"
	"github.com/aristath/trading212/pkg/trading212"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app carries what every command needs. opts are appended to the client
// options built from config.
type app struct {
	cfg  *config.Config
	log  zerolog.Logger
	out  io.Writer
	opts []trading212.Option
}

func newApp(cfg *config.Config, log zerolog.Logger, out io.Writer, opts ...trading212.Option) *app {
	return &app{
		cfg:  cfg,
		log:  log.With().Str("component", "cli").Logger(),
		out:  out,
		opts: opts,
	}
}

func (a *app) client() (*trading212.Client, error) {
	if err := a.cfg.RequireCredentials(); err != nil {
		return nil, err
	}

	opts := append([]trading212.Option{
		trading212.WithSessionTTL(a.cfg.SessionTTL),
		trading212.WithHTTPTimeout(a.cfg.HTTPTimeout),
		trading212.WithCallGate(trading212.NewCallGate(a.cfg.RateLimitCalls, a.cfg.RateLimitWindow)),
	}, a.opts...)

	client, err := trading212.NewClient(a.cfg.Username, a.cfg.Password, a.cfg.AccountType, a.log, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "t212",
		Short:         "Inspect and trade a Trading212 account",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.out)

	root.AddCommand(
		newAccountsCmd(a),
		newAccountCmd(a),
		newCandlesCmd(a),
		newPriceCmd(a),
		newSwitchCmd(a),
		newInstrumentsCmd(a),
		newCFDCmd(a),
		newEquityCmd(a),
	)
	return root
}
