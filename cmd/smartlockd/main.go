// smartlockd bridges a smart door lock's MQTT topics to a small HTTP API.
//
// The lock publishes heartbeats and state changes over MQTT; smartlockd
// stores them in SQLite and serves them to the mobile app, and forwards
// PIN-checked lock/unlock commands back to the lock.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/nerrad567/smartlock-bridge/migrations"

	"github.com/nerrad567/smartlock-bridge/internal/api"
	"github.com/nerrad567/smartlock-bridge/internal/channel"
	"github.com/nerrad567/smartlock-bridge/internal/command"
	"github.com/nerrad567/smartlock-bridge/internal/eventlog"
	"github.com/nerrad567/smartlock-bridge/internal/infrastructure/config"
	"github.com/nerrad567/smartlock-bridge/internal/infrastructure/database"
	"github.com/nerrad567/smartlock-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/smartlock-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/smartlock-bridge/internal/infrastructure/metrics"
	"github.com/nerrad567/smartlock-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/smartlock-bridge/internal/ingest"
	"github.com/nerrad567/smartlock-bridge/internal/query"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	// defaultConfigPath is used when SMARTLOCK_CONFIG is unset.
	defaultConfigPath = "configs/config.yaml"

	// mqttConnectTimeout bounds the wait for the first broker connection.
	// paho keeps retrying in the background afterwards.
	mqttConnectTimeout = 10 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // Linear startup sequence
	log := logging.Default()
	log.Info("starting smartlockd",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Database
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	store := eventlog.NewSQLiteStore(db.DB)
	promMetrics := metrics.New()

	// Optional InfluxDB mirror
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Device channel
	mqttClient := mqtt.New(cfg.MQTT)
	mqttClient.SetLogger(log)
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()

	adapter, err := channel.NewAdapter(channel.Options{
		Transport:      &mqttTransport{Client: mqttClient},
		Topics:         mqttClient.Topics(),
		QoS:            byte(cfg.MQTT.QoS), //nolint:gosec // Validated to 0..2
		BufferSize:     cfg.Ingest.BufferSize,
		PublishTimeout: cfg.GetPublishTimeout(),
		Logger:         log,
		Metrics:        promMetrics,
	})
	if err != nil {
		return fmt.Errorf("creating device channel: %w", err)
	}
	adapter.Start(ctx)
	defer adapter.Stop()

	// Ingest pipeline: channel events -> SQLite -> WebSocket hub / InfluxDB
	hub := api.NewHub(cfg.WebSocket, log)
	hub.SetMetrics(promMetrics)
	go hub.Run(ctx)

	observers := []ingest.RecordObserver{hub}
	if influxClient != nil {
		observers = append(observers, influxMirror(influxClient))
	}

	ingestor, err := ingest.New(ingest.Options{
		Events:    adapter.Events(),
		Store:     store,
		Observers: observers,
		Logger:    log,
		Metrics:   promMetrics,
	})
	if err != nil {
		return fmt.Errorf("creating ingestor: %w", err)
	}

	ingestCtx, stopIngest := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ingestor.Run(ingestCtx)
	}()
	defer func() {
		stopIngest()
		wg.Wait()
		appended, dropped := ingestor.Stats()
		log.Info("ingestor stopped", "appended", appended, "dropped", dropped)
	}()

	// Broker connection. A broker that is down at startup is not fatal:
	// the log endpoints keep working and paho retries in the background.
	connectCtx, cancelConnect := context.WithTimeout(ctx, mqttConnectTimeout)
	err = mqttClient.Connect(connectCtx)
	cancelConnect()
	if err != nil {
		log.Warn("MQTT broker not reachable yet, retrying in background",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"error", err,
		)
	} else {
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	}

	// Command and query paths
	gateway, err := command.NewGateway(cfg.Security.PIN, adapter)
	if err != nil {
		return fmt.Errorf("creating command gateway: %w", err)
	}
	gateway.SetLogger(log)
	gateway.SetMetrics(promMetrics)

	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log,
		Commands: gateway,
		Queries:  query.NewService(store),
		Database: db,
		Channel:  adapter,
		Metrics:  promMetrics,
		Hub:      hub,
		Version:  version,
	})
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

	if err := healthCheck(ctx, db, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal", "address", server.Addr())

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: API server, channel, ingestor,
	// MQTT, InfluxDB (flushes pending points), database.
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SMARTLOCK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SMARTLOCK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the required infrastructure at startup.
// MQTT is left out on purpose: the bridge starts without the broker.
func healthCheck(ctx context.Context, db *database.DB, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// influxMirror copies every stored record into InfluxDB.
func influxMirror(client *influxdb.Client) ingest.RecordObserver {
	return ingest.ObserverFunc(func(rec eventlog.Record) {
		client.WriteEvent(rec.Stream.String(), rec.Message, rec.Timestamp)
	})
}
