package main

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/wichananm65/rosilias-store/internal/broadcast"
	"github.com/wichananm65/rosilias-store/internal/cart"
	"github.com/wichananm65/rosilias-store/internal/config"
	"github.com/wichananm65/rosilias-store/internal/logging"
	"github.com/wichananm65/rosilias-store/internal/payment"
	"github.com/wichananm65/rosilias-store/internal/storefront"
)

const (
	cartNamespace   = "storefront"
	activityChannel = "storefront:activity"
	defaultQuantity = 1
)

// env is what every subcommand opens.
type env struct {
	app      *storefront.App
	rdb      *redis.Client
	channel  *broadcast.RedisChannel
	log      *slog.Logger
	currency string
}

// openEnv builds the storefront over Redis storage when Redis is configured.
// Without Redis the cart lives only for the duration of the command.
func openEnv(withChannel bool) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := logging.Init("storefront", cfg.App.LogFile, cfg.App.LogLevel)
	e := &env{log: log, currency: cfg.Stripe.Currency}

	var store cart.Store = cart.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		e.rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		store = cart.NewRedisStore(e.rdb, cartNamespace)
	} else {
		log.Warn("redis not configured; cart will not persist between commands")
	}

	deps := storefront.Deps{Store: store, Log: log}
	if payment.CheckSecretKey(cfg.Stripe.SecretKey) == nil {
		deps.Processor = payment.WithBreaker(payment.NewStripeProcessor(cfg.Stripe.SecretKey, cfg.Stripe.Timeout), "stripe-storefront", log)
	}
	if withChannel && e.rdb != nil {
		e.channel = broadcast.NewRedisChannel(e.rdb, activityChannel, log)
		deps.Channel = e.channel
	}
	deps.Redirect = func(target string) { fmt.Printf("-> %s\n", target) }

	e.app, err = storefront.New(storefront.Config{
		APIBaseURL:  cfg.Storefront.APIBaseURL,
		ReturnURL:   cfg.Storefront.ReturnURL,
		Currency:    cfg.Stripe.Currency,
		QuietPeriod: cfg.Idle.QuietPeriod,
	}, deps)
	if err != nil {
		e.close()
		return nil, err
	}
	return e, nil
}

func (e *env) close() {
	if e.app != nil {
		e.app.Close()
	}
	if e.channel != nil {
		_ = e.channel.Close()
	}
	if e.rdb != nil {
		_ = e.rdb.Close()
	}
}

func formatCents(cents int64, currency string) string {
	return fmt.Sprintf("%s %d.%02d", currency, cents/100, cents%100)
}
