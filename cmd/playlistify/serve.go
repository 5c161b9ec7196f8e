package main

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lborres/playlistify"
	anthropicadapter "github.com/lborres/playlistify/adapters/anthropic"
	fiberadapter "github.com/lborres/playlistify/adapters/fiber"
	"github.com/lborres/playlistify/adapters/spotify"
	"github.com/lborres/playlistify/internal/config"
	"github.com/lborres/playlistify/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, !skipMigrate)
		},
	}

	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply migrations on startup")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config, migrate bool) error {
	store, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	if migrate {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
	}

	spotifyCfg := spotify.Config{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
		RedirectURI:  cfg.SpotifyRedirectURI,
		AuthURL:      cfg.SpotifyAuthURL,
		TokenURL:     cfg.SpotifyTokenURL,
		APIURL:       cfg.SpotifyAPIURL,
		Timeout:      cfg.UpstreamTimeout,
	}

	catalog, err := spotify.NewCatalog(spotifyCfg)
	if err != nil {
		return err
	}

	var identity playlistify.IdentityProvider
	if cfg.SpotifyConfigured() {
		provider, err := spotify.NewProvider(spotifyCfg)
		if err != nil {
			return err
		}
		identity = provider
	}

	var suggester playlistify.Suggester
	if cfg.AnthropicAPIKey != "" {
		s, err := anthropicadapter.New(anthropicadapter.Config{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
		})
		if err != nil {
			return err
		}
		suggester = s
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app := fiber.New(fiber.Config{AppName: "playlistify"})
	app.Use(requestid.New())
	app.Use(fiberadapter.AccessLog(log.Logger))

	app.Get("/healthz", func(c fiber.Ctx) error {
		if err := store.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	logger := log.Logger
	if _, err := playlistify.New(playlistify.Config{
		Storage:           store,
		HTTP:              fiberadapter.New(app),
		Catalog:           catalog,
		Identity:          identity,
		Secret:            cfg.SessionSecret,
		Suggester:         suggester,
		AllowedExternalID: cfg.AllowedSpotifyID,
		SessionConfig:     &playlistify.SessionConfig{MaxAge: cfg.SessionMaxAge},
		Registerer:        registry,
		Logger:            &logger,
	}); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Msg("listening")
		return app.Listen(cfg.Addr, fiber.ListenConfig{DisableStartupMessage: true})
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
			return err
		}
		log.Info().Msg("server stopped")
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
