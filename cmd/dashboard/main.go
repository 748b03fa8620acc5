package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mekka-mouse/Vaultsystem/internal/api"
	"github.com/Mekka-mouse/Vaultsystem/internal/auth"
	"github.com/Mekka-mouse/Vaultsystem/internal/config"
	"github.com/Mekka-mouse/Vaultsystem/internal/db"
	"github.com/Mekka-mouse/Vaultsystem/internal/export"
	"github.com/Mekka-mouse/Vaultsystem/internal/forms"
	"github.com/Mekka-mouse/Vaultsystem/internal/handlers"
	"github.com/Mekka-mouse/Vaultsystem/internal/middleware"
	"github.com/Mekka-mouse/Vaultsystem/internal/models"
	"github.com/Mekka-mouse/Vaultsystem/internal/notify"
	"github.com/Mekka-mouse/Vaultsystem/internal/snapshotcache"
	"github.com/Mekka-mouse/Vaultsystem/internal/store"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	cfg.Log.ConfigureLogging()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Error("Dashboard exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	authService, err := auth.NewService(cfg.Auth)
	if err != nil {
		return err
	}

	clientOpts := []api.Option{api.WithTimeout(cfg.API.Timeout)}
	if ts := authService.ServiceToken(models.Role(cfg.Auth.ServiceTokenRole)); ts != nil {
		clientOpts = append(clientOpts, api.WithTokenSource(ts))
	}
	client := api.NewClient(cfg.API.BaseURL, clientOpts...)

	var cache store.Cache
	if cfg.SnapshotCachePath != "" {
		sc, err := snapshotcache.Open(cfg.SnapshotCachePath)
		if err != nil {
			log.WithError(err).Warn("Snapshot cache unavailable, continuing without it")
		} else {
			defer sc.Close()
			cache = sc
		}
	}

	fleet := store.New(client, cache)
	if _, err := fleet.Warm(ctx); err != nil {
		log.WithError(err).Warn("Failed to load cached snapshot")
	}
	if _, err := fleet.RefreshAll(ctx); err != nil {
		log.WithError(err).Warn("Initial vehicle load failed")
	}

	var publisher notify.Publisher = notify.NopPublisher{}
	if cfg.MQTT.Broker != "" {
		mqttClient, err := notify.ConnectMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		if err != nil {
			log.WithError(err).Warn("MQTT broker unavailable, fleet events disabled")
		} else {
			p := notify.NewMQTTPublisher(mqttClient, cfg.MQTT.TopicPrefix)
			defer p.Close()
			publisher = p
		}
	}

	exporter := export.NewExporter(client, fleet, export.Options{DateLayout: cfg.Export.DateLayout})
	if cfg.Mongo.URI != "" {
		mongoClient, err := db.ConnectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			log.WithError(err).Warn("MongoDB unavailable, export audit disabled")
		} else {
			defer func() {
				disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := mongoClient.Disconnect(disconnectCtx); err != nil {
					log.WithError(err).Warn("Failed to disconnect from MongoDB")
				}
			}()
			exporter = exporter.WithRecorder(db.NewExportCollection(mongoClient, cfg.Mongo.Database))
		}
	}

	controller := forms.NewController(client, fleet, authService, publisher)
	dashboard := handlers.NewDashboardHandler(fleet, client, controller, exporter, cfg.Dashboard.DefaultLocation)

	mux := http.NewServeMux()
	dashboard.Register(mux, handlers.NewAuthGuard(middleware.NewAuthMiddleware(authService, cfg.Dashboard.RequireAuth)))

	limiter := middleware.NewRateLimitMiddleware()
	srv := &http.Server{
		Addr: ":" + cfg.Dashboard.Port,
		Handler: middleware.Chain(mux,
			middleware.RequestID,
			middleware.Logging,
			limiter.RateLimit(cfg.Dashboard.RateLimitPerMinute, 60),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"port":         cfg.Dashboard.Port,
			"api":          cfg.API.BaseURL,
			"require_auth": cfg.Dashboard.RequireAuth,
		}).Info("Dashboard listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
