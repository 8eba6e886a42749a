package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yerevan-pricing/backend/internal/config"
)

var (
	cfg     *config.Config
	rootCmd = &cobra.Command{
		Use:   "pricectl",
		Short: "Train and query the menu pricing model",
		Long: `pricectl trains price models from the sales history, inspects the
reference catalog and predicts prices from the terminal.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			var err error
			cfg, err = config.Load()
			return err
		},
	}
)

func init() {
	rootCmd.AddCommand(trainCmd())
	rootCmd.AddCommand(predictCmd())
	rootCmd.AddCommand(catalogCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
