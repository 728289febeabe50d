package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"github.com/wichananm65/rosilias-store/internal/config"
	"github.com/wichananm65/rosilias-store/internal/logging"
	"github.com/wichananm65/rosilias-store/internal/order"
	"github.com/wichananm65/rosilias-store/internal/payment"
)

func main() {
	var (
		configPath string
		dryRun     bool
	)

	rootCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Re-fetch open orders from the payment processor and apply their settlement status",
		Long: `Lists pending and processing orders that carry a payment reference, asks the
processor for each intent's current status and writes the mapped order status.
Use it after webhook writes failed. Orders are never deleted or expired.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath, dryRun)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file (default configs/base.yaml)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report changes without writing")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, dryRun bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.Init("reconcile", cfg.App.LogFile, cfg.App.LogLevel)

	if err := payment.CheckSecretKey(cfg.Stripe.SecretKey); err != nil {
		return fmt.Errorf("stripe.secret_key: %w", err)
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url required (DATABASE_URL)")
	}

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}

	orders := order.NewService(order.NewPostgresRepository(db), log)
	processor := payment.WithBreaker(payment.NewStripeProcessor(cfg.Stripe.SecretKey, cfg.Stripe.Timeout), "stripe-reconcile", log)
	publisher := payment.NewPublisher(cfg.Kafka.Topic, cfg.Kafka.Brokers)
	if c, ok := publisher.(*payment.KafkaPublisher); ok {
		defer c.Close()
	}

	res, err := payment.NewSweeper(orders, orders, processor, publisher, log).Run(ctx, dryRun)
	if err != nil {
		return err
	}

	verb := "updated"
	if dryRun {
		verb = "would update"
	}
	fmt.Printf("checked %d, %s %d, unchanged %d, errors %d\n", res.Checked, verb, res.Updated, res.Unchanged, res.Errors)
	if res.Errors > 0 {
		return fmt.Errorf("%d orders could not be reconciled", res.Errors)
	}
	return nil
}
