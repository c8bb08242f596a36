package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/finbridge/payout-bridge/pkg/idempotency"
	"github.com/finbridge/payout-bridge/pkg/logging"
	"github.com/finbridge/payout-bridge/pkg/shutdown"
	"github.com/finbridge/payout-bridge/pkg/tracing"

	"github.com/finbridge/payout-bridge/internal/bridge/application"
	bridgehttp "github.com/finbridge/payout-bridge/internal/bridge/infrastructure/http"
	bridgekafka "github.com/finbridge/payout-bridge/internal/bridge/infrastructure/kafka"
	bridgepg "github.com/finbridge/payout-bridge/internal/bridge/infrastructure/postgres"
	shopifyrest "github.com/finbridge/payout-bridge/internal/shopify/infrastructure/rest"
	xerorest "github.com/finbridge/payout-bridge/internal/xero/infrastructure/rest"
)

func main() {
	log := logging.New()

	payoutID := flag.Int64("payout", 0, "payout id to copy")
	payoutDate := flag.String("date", "", "payout date to copy (YYYY-MM-DD)")
	serve := flag.Bool("serve", false, "run the HTTP trigger server instead of a one-shot copy")
	flag.Parse()

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	// Configuration
	shopURL := env("SHOPIFY_SHOP_URL", "")
	shopToken := env("SHOPIFY_ACCESS_TOKEN", "")
	xeroToken := env("XERO_ACCESS_TOKEN", "")
	xeroTenant := env("XERO_TENANT_ID", "")
	shippingCode := env("SHIPPING_ACCOUNT_CODE", application.DefaultShippingAccountCode)
	pgURL := env("PG_URL", "")
	kafkaAddr := env("KAFKA_ADDR", "")
	eventsTopic := env("EVENTS_TOPIC", "payout.events")
	redisAddr := env("REDIS_ADDR", "")
	httpAddr := env("HTTP_ADDR", ":8080")
	otlpURL := env("OTLP_URL", "")

	if shopURL == "" || shopToken == "" || xeroToken == "" || xeroTenant == "" {
		log.Error("SHOPIFY_SHOP_URL, SHOPIFY_ACCESS_TOKEN, XERO_ACCESS_TOKEN and XERO_TENANT_ID are required")
		os.Exit(1)
	}

	if otlpURL != "" {
		tp, err := tracing.Init(ctx, "payout-bridge", otlpURL, log)
		if err != nil {
			log.Error("otel init failed", "err", err)
			os.Exit(1)
		}
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	source := shopifyrest.NewClient(log, shopifyrest.Config{
		ShopURL:     shopURL,
		AccessToken: shopToken,
		APIVersion:  env("SHOPIFY_API_VERSION", shopifyrest.DefaultAPIVersion),
	})
	ledger := xerorest.NewClient(log, xerorest.Config{
		AccessToken: xeroToken,
		TenantID:    xeroTenant,
	})

	cfg := application.Config{
		ShippingAccountCode: shippingCode,
		DeletedProducts:     loadDeletedProducts(log),
	}

	var journal *bridgepg.Journal
	if pgURL != "" {
		pool, err := pgxpool.New(ctx, pgURL)
		if err != nil {
			log.Error("pg connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		journal = bridgepg.NewJournal(log, pool)
		if err := journal.Migrate(ctx); err != nil {
			log.Error("pg migrate failed", "err", err)
			os.Exit(1)
		}
		cfg.Recorder = journal
	}

	if kafkaAddr != "" {
		writer := bridgekafka.NewWriter([]string{kafkaAddr})
		defer writer.Close()
		cfg.Publisher = bridgekafka.NewPublisher(log, writer, eventsTopic)
	}

	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer rdb.Close()
		cfg.Marker = idempotency.NewStore(rdb, shopURL, 90*24*time.Hour)
	}

	svc := application.NewCopyService(log, source, ledger, cfg)

	if *serve {
		runServer(ctx, log, httpAddr, svc, journal)
		return
	}

	summary, err := svc.CopyAllOrdersForPayout(ctx, application.PayoutRef{ID: *payoutID, Date: *payoutDate})
	if err != nil {
		log.Error("payout copy failed", "err", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(summary)
}

func runServer(ctx context.Context, log *slog.Logger, addr string, svc *application.CopyService, journal *bridgepg.Journal) {
	var runs bridgehttp.RunLister
	if journal != nil {
		runs = journal
	}
	handler := bridgehttp.NewHandler(log, svc, runs)

	r := chi.NewRouter()
	r.Mount("/", handler.Routes())
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Minute, // a copy run holds the request open
	}

	go func() {
		log.Info("http listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("payout-bridge shutdown complete")
}

// loadDeletedProducts reads the product-name → item-code map for products
// removed from the shop after they were sold.
func loadDeletedProducts(log *slog.Logger) map[string]string {
	path := os.Getenv("DELETED_PRODUCTS_FILE")
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Error("deleted products file unreadable", "path", path, "err", err)
		os.Exit(1)
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		log.Error("deleted products file invalid", "path", path, "err", err)
		os.Exit(1)
	}
	return m
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
