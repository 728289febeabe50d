package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:          "storefront",
		Short:        "Rosilias storefront client: browse packages, keep a cart and check out",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default configs/base.yaml)")

	rootCmd.AddCommand(packagesCmd())
	rootCmd.AddCommand(cartCmd())
	rootCmd.AddCommand(signInCmd())
	rootCmd.AddCommand(signOutCmd())
	rootCmd.AddCommand(checkoutCmd())
	rootCmd.AddCommand(resumeCmd())
	rootCmd.AddCommand(watchCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
