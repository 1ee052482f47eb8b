package main

import (
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/eddiefleurent/putspread/internal/config"
	"github.com/eddiefleurent/putspread/schwab"
)

// app holds the dependencies shared by all subcommands, resolved once in
// the root PersistentPreRunE.
type app struct {
	cfg    *config.Config
	api    schwab.API
	logger *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: logrus.New()}
	var configPath string

	root := &cobra.Command{
		Use:           "spreadctl",
		Short:         "Typed brokerage client tools: quotes, chains, put credit spreads",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Optional .env for SCHWAB_ACCESS_TOKEN and friends; a missing
			// file is not an error.
			_ = godotenv.Load()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg

			if level, err := logrus.ParseLevel(cfg.Environment.LogLevel); err == nil {
				a.logger.SetLevel(level)
			}

			client := schwab.NewWithBaseURL(cfg.Broker.AccessToken, cfg.Broker.BaseURL).
				WithTimeout(cfg.GetTimeout())
			a.api = schwab.NewCircuitBreakerClient(client)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")

	root.AddCommand(newQuoteCmd(a))
	root.AddCommand(newChainCmd(a))
	root.AddCommand(newSpreadsCmd(a))
	root.AddCommand(newRiskFreeCmd(a))
	root.AddCommand(newServeCmd(a))

	return root
}
