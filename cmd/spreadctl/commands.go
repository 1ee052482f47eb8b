package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/eddiefleurent/putspread/internal/dashboard"
	"github.com/eddiefleurent/putspread/schwab"
	"github.com/eddiefleurent/putspread/util"
)

func newQuoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "quote <symbol>",
		Short: "Print the current quote for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := a.api.GetQuote(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s  last=%.2f  bid=%.2f  ask=%.2f  mid=%.2f  vol=%d\n",
				q.Symbol, q.Last, q.Bid, q.Ask, util.Mid(q.Bid, q.Ask), q.Volume)
			return nil
		},
	}
}

func newChainCmd(a *app) *cobra.Command {
	var strikes int
	cmd := &cobra.Command{
		Use:   "chain <symbol>",
		Short: "Print the put side of the option chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := a.api.GetOptionChain(cmd.Context(), args[0], schwab.ChainParams{
				ContractType: "PUT",
				StrikeCount:  strikes,
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SYMBOL\tSTRIKE\tBID\tASK\tDELTA\tOI")
			for _, c := range chain.PutExpDateMap.Contracts() {
				fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t%.3f\t%d\n",
					c.Symbol, c.StrikePrice, c.Bid, c.Ask, c.Delta, c.OpenInterest)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&strikes, "strikes", 10, "number of strikes around the money")
	return cmd
}

func newSpreadsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "spreads [underlying]",
		Short: "Reconstruct put credit spreads held on an underlying",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			underlying := a.cfg.Underlying
			if len(args) > 0 {
				underlying = args[0]
			}

			spreads, err := a.api.GetSpreads(cmd.Context(), underlying)
			if err != nil {
				return err
			}
			if len(spreads) == 0 {
				fmt.Printf("no put credit spreads found for %s\n", underlying)
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EXPIRY\tSHORT\tLONG\tWIDTH\tCREDIT\tQTY\tMAX LOSS")
			for _, s := range spreads {
				fmt.Fprintf(w, "%s\t%.0f\t%.0f\t%.0f\t%.2f\t%.0f\t%.2f\n",
					s.Expiry.Format("2006-01-02"), s.ShortStrike, s.LongStrike,
					s.Width(), s.Credit, s.Quantity, s.MaxLoss)
			}
			return w.Flush()
		},
	}
}

func newRiskFreeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "riskfree",
		Short: "Print the risk-free rate derived from the treasury bill index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := a.api.RiskFreeRate(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("%.4f (%.2f%%)\n", rate, rate*100)
			return nil
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := dashboard.NewServer(dashboard.Config{
				Port:       a.cfg.GetDashboardPort(),
				AuthToken:  a.cfg.Dashboard.AuthToken,
				Underlying: a.cfg.Underlying,
			}, a.api, a.logger)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-stop:
				a.logger.Infof("Received %s, shutting down", sig)
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			}
		},
	}
}
