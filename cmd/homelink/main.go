// HomeLink Core - Device Pairing and Real-Time Hub
//
// This is the main entry point for the HomeLink hub. It pairs wall
// panels, touch screens, and companion apps to the home using
// short-lived PINs, issues long-lived revocable credentials, and pushes
// area and pairing events to connected devices over WebSocket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	_ "github.com/nerrad567/homelink-core/migrations"

	"github.com/nerrad567/homelink-core/internal/api"
	"github.com/nerrad567/homelink-core/internal/area"
	"github.com/nerrad567/homelink-core/internal/identity"
	"github.com/nerrad567/homelink-core/internal/infrastructure/config"
	"github.com/nerrad567/homelink-core/internal/infrastructure/database"
	"github.com/nerrad567/homelink-core/internal/infrastructure/logging"
	"github.com/nerrad567/homelink-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/homelink-core/internal/infrastructure/telemetry"
	"github.com/nerrad567/homelink-core/internal/pairing"
	"github.com/nerrad567/homelink-core/internal/realtime"
	"github.com/nerrad567/homelink-core/internal/token"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Returning an error lets main handle exit codes
// consistently.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting HomeLink Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open database and apply migrations
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories
	sessions := pairing.NewSessionRepository(db.DB)
	clients := pairing.NewClientRepository(db.DB)
	tokens := pairing.NewTokenRepository(db.DB)
	areas := area.NewRepository(db.DB)

	tokenSvc := token.NewService(
		cfg.Security.JWT.Secret,
		cfg.Security.JWT.AdminTokenTTL,
		cfg.Security.JWT.ClientTokenTTL,
	)

	// Optional MQTT event mirror
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT event mirror connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Host, cfg.MQTT.Port),
			"client_id", cfg.MQTT.ClientID,
		)
	} else {
		log.Info("MQTT event mirror disabled")
	}

	// Optional telemetry sink
	var telemetryClient *telemetry.Client
	if cfg.Telemetry.Enabled {
		telemetryClient, err = telemetry.Connect(cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("connecting to telemetry: %w", err)
		}
		defer func() {
			log.Info("closing telemetry connection")
			if closeErr := telemetryClient.Close(); closeErr != nil {
				log.Error("error closing telemetry", "error", closeErr)
			}
		}()
		telemetryClient.SetOnError(func(err error) {
			log.Error("telemetry write error", "error", err)
		})
		log.Info("telemetry connected",
			"url", cfg.Telemetry.URL,
			"bucket", cfg.Telemetry.Bucket,
		)
	} else {
		log.Info("telemetry disabled")
	}

	// Real-time dispatch
	registry := realtime.NewRegistry()
	dispatcherDeps := realtime.DispatcherDeps{
		Registry: registry,
		Areas:    clients,
		Logger:   log,
	}
	if mqttClient != nil {
		dispatcherDeps.Mirror = mqttClient
	}
	if telemetryClient != nil {
		dispatcherDeps.Sink = telemetryClient
	}
	dispatcher := realtime.NewDispatcher(dispatcherDeps)

	// Pairing
	manager := pairing.NewManager(pairing.ManagerDeps{
		Sessions: sessions,
		Clients:  clients,
		Tokens:   tokens,
		TokenSvc: tokenSvc,
		Notifier: dispatcher,
		Config:   cfg.Pairing,
		Logger:   log,
	})

	resolver := identity.NewResolver(tokenSvc, tokens, clients, cfg.Security.Admin.Username, log)

	// API server
	serverDeps := api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Security:   cfg.Security,
		Logger:     log,
		Pairing:    manager,
		Clients:    clients,
		Tokens:     tokens,
		Areas:      areas,
		Resolver:   resolver,
		TokenSvc:   tokenSvc,
		Registry:   registry,
		Dispatcher: dispatcher,
		Version:    version,
	}
	if telemetryClient != nil {
		serverDeps.Telemetry = telemetryClient
	}
	server, err := api.New(serverDeps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, server, mqttClient, telemetryClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	g, gctx := errgroup.WithContext(ctx)

	// Expired pairing sessions are swept in the background so abandoned
	// PINs do not linger in the database.
	g.Go(func() error {
		manager.RunSweeper(gctx)
		return nil
	})

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	if err := g.Wait(); err != nil {
		return fmt.Errorf("background worker: %w", err)
	}

	log.Info("HomeLink Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HOMELINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HOMELINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// Optional components may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, server *api.Server, mqttClient *mqtt.Client, telemetryClient *telemetry.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if telemetryClient != nil {
		if err := telemetryClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}
	return nil
}
