package main

import (
	"context"
	"fmt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"os"
	"os/signal"
	"stock-alert-bot/config"
	"stock-alert-bot/internal/alert"
	"stock-alert-bot/internal/database"
	"stock-alert-bot/internal/httpx"
	"stock-alert-bot/internal/metrics"
	"stock-alert-bot/internal/price"
	"stock-alert-bot/internal/scheduler"
	"stock-alert-bot/internal/server"
	"stock-alert-bot/internal/telegram"
	"stock-alert-bot/lib/translation"
	"syscall"
	"time"
)

func init() {
	config.InitConfig()
	setupLogging()
}

func main() {
	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	translation.Configure("locales", config.GetString("lang"))

	m := metrics.New(prometheus.DefaultRegisterer)

	var db *database.DB
	if path := config.GetString("metrics_db_path"); path != "" {
		var err error
		db, err = database.Open(path)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		m.Load(db)
	}

	requestTimeout := config.GetDuration("request_timeout")
	httpClient := httpx.New(requestTimeout)
	httpClient.UserAgent = "stock-alert-bot/1.0"

	quotes, err := price.New(price.Config{
		Name:         config.GetString("quote_provider"),
		YahooBaseURL: config.GetString("yahoo_base_url"),
		APIKey:       config.GetString("api_pro_key"),
		HTTP:         httpClient,
	})
	if err != nil {
		log.Fatalf("Failed to create quote provider: %v", err)
	}

	bot, err := telegram.NewBot(telegram.BotConfig{
		Token:       config.GetString("telegram_bot_token"),
		ChatID:      config.GetInt64("telegram_chat_id"),
		APIEndpoint: config.GetString("telegram_api_endpoint"),
		Debug:       config.GetBool("debug"),
		HTTPClient:  httpClient,
	})
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	svc := alert.NewService(alert.NewStore(), quotes, bot, m, alert.Options{
		DeliveryPolicy: config.GetString("delivery_policy"),
		RequestTimeout: requestTimeout,
		CurrencySymbol: config.GetString("currency_symbol"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	triggerMode := config.GetString("trigger_mode")
	srv := server.New(svc, server.Options{
		EnableTrigger:  triggerMode == config.TriggerModeEndpoint,
		MetricsHandler: promhttp.Handler(),
	})
	g.Go(func() error {
		return srv.Run(ctx, fmt.Sprintf(":%d", config.GetInt("port")))
	})

	if triggerMode == config.TriggerModeTimer {
		checker := &scheduler.Interval{
			Every: config.GetDuration("check_interval"),
			Check: svc.CheckAlerts,
		}
		g.Go(func() error { return checker.Start(ctx) })
	}

	if db != nil {
		g.Go(func() error {
			saveMetricsPeriodically(ctx, m, db, config.GetDuration("metrics_save_interval"))
			return nil
		})
	}

	log.Infof("Quote provider: %s, trigger mode: %s, delivery policy: %s",
		quotes.Name(), triggerMode, config.GetString("delivery_policy"))

	if err := g.Wait(); err != nil {
		log.Errorf("Shutting down: %v", err)
	}

	if db != nil {
		if err := m.Save(db); err != nil {
			log.Errorf("Failed to save metrics: %v", err)
		}
		log.Info("Metrics saved, shutting down...")
	}
}

func setupLogging() {
	log.SetLevel(log.InfoLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting stock alert bot...")
}

func saveMetricsPeriodically(ctx context.Context, m *metrics.Metrics, db *database.DB, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Save(db); err != nil {
				log.Errorf("Failed to save metrics: %v", err)
			}
		}
	}
}
