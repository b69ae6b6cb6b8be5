// README: Entry point; loads config, wires pricing and quote services, serves HTTP until signalled.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"convoyage/internal/config"
	httptransport "convoyage/internal/http"
	"convoyage/internal/http/handlers"
	"convoyage/internal/infra"
	"convoyage/internal/logging"
	"convoyage/internal/maps"
	"convoyage/internal/metrics"
	"convoyage/internal/modules/pricing"
	"convoyage/internal/modules/quote"
	"convoyage/internal/notify"
)

var errNoMapsKey = errors.New("CONVOYAGE_MAPS_API_KEY is not set")

// noRoutes stands in for the Directions client when no API key is configured.
type noRoutes struct{}

func (noRoutes) RoadDistanceKm(context.Context, string, string) (*int, error) {
	return nil, errNoMapsKey
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.New(cfg.Env)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	metrics.Init(dbPool)

	pricingStore := pricing.NewStore(dbPool)
	rateCache := pricing.NewCache(pricingStore,
		pricing.WithTTL(cfg.Pricing.RateTTL),
		pricing.WithLogger(logger),
		pricing.WithObserver(metrics.PricingObserver{}),
	)
	pricingSvc := pricing.NewService(pricingStore, rateCache)

	var routes quote.DistanceResolver = noRoutes{}
	var places handlers.AddressSuggester
	if cfg.Maps.APIKey != "" {
		rs, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps routes: %v", err)
		}
		ps, err := maps.NewPlacesService(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps places: %v", err)
		}
		routes, places = rs, ps
	} else {
		logger.Warn("maps api key missing; distance and address suggestions disabled")
	}

	var notifier quote.Notifier = notify.NewLog(logger)
	if cfg.Telegram.Token != "" {
		bot, err := infra.NewTelegram(cfg.Telegram.Token)
		if err != nil {
			log.Fatalf("telegram: %v", err)
		}
		notifier = notify.NewTelegram(bot, cfg.Telegram.ChatID)
	}

	requestStore := quote.NewStore(dbPool)
	quoteSvc := quote.NewService(
		quote.NewRedisDraftStore(redisClient, cfg.Quote.DraftTTL),
		requestStore,
		pricingSvc,
		routes,
		quote.WithNotifier(notifier),
		quote.WithLogger(logger),
		quote.WithSuccessWindow(cfg.Quote.SuccessWindow),
		quote.WithStepLease(cfg.Quote.StepLease),
	)

	var verifier infra.TokenVerifier
	if cfg.Auth.JWTSecret != "" {
		verifier, err = infra.NewJWTVerifier(cfg.Auth.JWTSecret)
		if err != nil {
			log.Fatalf("jwt: %v", err)
		}
	} else {
		logger.Warn("jwt secret missing; admin routes disabled")
	}

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Quotes:       quoteSvc,
		Pricing:      pricingSvc,
		Places:       places,
		Requests:     requestStore,
		Verifier:     verifier,
		Redis:        redisClient,
		Logger:       logger,
		SubmitLimit:  cfg.Quote.SubmitLimit,
		SubmitWindow: cfg.Quote.SubmitWindow,
		Checks: map[string]httptransport.ReadinessCheck{
			"postgres": dbPool.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	})

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown", "err", err)
		}
	}()

	logger.Info("convoyage api listening", "addr", cfg.HTTP.Addr, "env", cfg.Env)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
