// Command t212 is an operator tool for a Trading212 account: it lists
// accounts and market data and opens or closes CFD positions and equity
// orders. Credentials and limits come from the environment or a .env file.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aristath/trading212/internal/config"
	"github.com/aristath/trading212/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	root := newRootCmd(newApp(cfg, log, os.Stdout))
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		log.Fatal().Err(err).Msg("Command failed")
	}
	stop()
}
