package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"setka/internal/account"
	"setka/internal/adapter/repo"
	"setka/internal/generation"
	"setka/internal/http/handlers"
	httpapi "setka/internal/http/httpapi"
	"setka/internal/infra"
	"setka/internal/infra/credentials"
	"setka/internal/infra/geoip"
	"setka/internal/providers/image"
	"setka/internal/providers/ohmygpt"
	"setka/internal/retry"
	"setka/internal/sqlinline"
	"setka/internal/storage"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	sql := infra.NewSQLRunner(dbpool, &logger)
	if cfg.AutoMigrate {
		if _, err := sql.Exec(ctx, sqlinline.QCreateSchema); err != nil {
			logger.Fatal().Err(err).Msg("failed to apply schema")
		}
		logger.Info().Msg("schema applied")
	}

	users := repo.NewUserRepo(sql)
	creds := credentials.NewStore(sql).
		WithFallback(credentials.ProviderGemini, cfg.GeminiAPIKey).
		WithFallback(credentials.ProviderOhMyGPT, cfg.OhMyGPTAPIKey)

	geo, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer geo.Close()

	blobs, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open image storage")
	}

	upstream := ohmygpt.NewClient(ohmygpt.Options{
		APIKey:  cfg.OhMyGPTAPIKey,
		BaseURL: cfg.OhMyGPTBaseURL,
		Logger:  &logger,
	})
	providers := newProviders(cfg, upstream, &logger)

	gate := account.NewGate(users, creds, &logger)
	orch := generation.New(generation.Options{
		Providers:   providers,
		Charger:     gate,
		Credentials: gate,
		Logger:      &logger,
		PacingDelay: cfg.BatchPacingDelay,
		Retry: []retry.Option{
			retry.WithMaxAttempts(cfg.RetryMaxAttempts),
			retry.WithBaseDelay(cfg.RetryBaseDelay),
		},
	})
	batches := generation.NewRegistry(orch)
	go pruneRuns(ctx, batches, cfg.RunRetention, &logger)

	app := &handlers.App{
		Config:      cfg,
		Logger:      &logger,
		Accounts:    account.NewService(users, repo.NewPromoRepo(sql), &logger),
		Favorites:   repo.NewFavoritesRepo(sql),
		History:     repo.NewHistoryRepo(sql),
		Blobs:       blobs,
		Providers:   providers,
		Batches:     batches,
		Relay:       upstream,
		Credentials: creds,
	}
	router := httpapi.NewRouter(app, geo.Lookup())
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// newProviders registers every model the catalog offers. Proxy models go
// through the relay when RELAY_URL is set, otherwise straight to OhMyGPT
// with the server key.
func newProviders(cfg *infra.Config, upstream *ohmygpt.Client, logger *infra.Logger) *image.Registry {
	models := image.NewGenAIFactory(&http.Client{Timeout: 2 * time.Minute})

	var (
		proxyClient image.ImageClient = upstream
		proxyCred                     = image.CredentialOhMyGPT
	)
	if cfg.RelayURL != "" {
		proxyClient = ohmygpt.NewRelayClient(cfg.RelayURL, nil, logger)
		proxyCred = image.CredentialNone
	}

	return image.NewRegistry(
		image.NewGemini(cfg.GeminiModel, models, logger),
		image.NewImagen(cfg.ImagenModel, models, logger),
		image.NewProxy(image.ProxyDallE, proxyClient, proxyCred, logger),
		image.NewProxy(image.ProxyFluxPro, proxyClient, proxyCred, logger),
	)
}

// pruneRuns drops finished runs from memory once they are older than retention.
func pruneRuns(ctx context.Context, batches *generation.Registry, retention time.Duration, logger *infra.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := batches.Prune(retention); n > 0 {
				logger.Debug().Int("runs", n).Msg("pruned finished runs")
			}
		}
	}
}
