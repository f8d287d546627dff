// SensorHub Core - IoT device registry and telemetry ingestion service
//
// This is the main entry point for the SensorHub Core application.
// It subscribes to the MQTT broker, keeps the device registry current,
// records telemetry, and serves the REST/WebSocket API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sensorhub/sensorhub-core/internal/alert"
	"github.com/sensorhub/sensorhub-core/internal/api"
	"github.com/sensorhub/sensorhub-core/internal/command"
	"github.com/sensorhub/sensorhub-core/internal/device"
	"github.com/sensorhub/sensorhub-core/internal/events"
	"github.com/sensorhub/sensorhub-core/internal/infrastructure/config"
	"github.com/sensorhub/sensorhub-core/internal/infrastructure/database"
	"github.com/sensorhub/sensorhub-core/internal/infrastructure/influxdb"
	"github.com/sensorhub/sensorhub-core/internal/infrastructure/logging"
	"github.com/sensorhub/sensorhub-core/internal/infrastructure/mqtt"
	"github.com/sensorhub/sensorhub-core/internal/infrastructure/postgres"
	"github.com/sensorhub/sensorhub-core/internal/infrastructure/tracing"
	"github.com/sensorhub/sensorhub-core/internal/ingest"
	"github.com/sensorhub/sensorhub-core/internal/query"
	"github.com/sensorhub/sensorhub-core/internal/telemetry"
	"github.com/sensorhub/sensorhub-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// shutdownTimeout bounds draining the event fan-out and flushing tracing.
const shutdownTimeout = 10 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// healthChecker is implemented by every infrastructure client checked at startup.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// store bundles the repositories backed by the configured database driver.
type store struct {
	devices  device.Repository
	readings telemetry.Repository
	health   healthChecker
	close    func() error
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting SensorHub Core",
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

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, version)
	if err != nil {
		return fmt.Errorf("initialising tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := shutdownTracing(shutdownCtx); shutdownErr != nil {
			log.Error("error flushing traces", "error", shutdownErr)
		}
	}()

	st, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := st.close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	mqttClient, err := mqtt.Connect(cfg.MQTT, log.Component("mqtt"))
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	brokerAddr := fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port)
	log.Info("MQTT connected",
		"broker", brokerAddr,
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	checks := map[string]healthChecker{"database": st.health, "mqtt": mqttClient}
	var sinks []events.Sink

	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
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
		checks["influxdb"] = influxClient
		sinks = append(sinks, events.NewInfluxSink(influxClient))
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if cfg.Events.Kafka.Enabled {
		kafkaSink := events.NewKafkaSink(cfg.Events.Kafka.Brokers, cfg.Events.Kafka.Topic)
		defer func() {
			if closeErr := kafkaSink.Close(); closeErr != nil {
				log.Error("error closing Kafka writer", "error", closeErr)
			}
		}()
		sinks = append(sinks, kafkaSink)
		log.Info("Kafka event sink enabled", "topic", cfg.Events.Kafka.Topic)
	}

	if cfg.Events.AMQP.Enabled {
		amqpSink, amqpErr := events.DialAMQP(cfg.Events.AMQP.URL, cfg.Events.AMQP.Exchange)
		if amqpErr != nil {
			return fmt.Errorf("connecting to AMQP: %w", amqpErr)
		}
		defer func() {
			if closeErr := amqpSink.Close(); closeErr != nil {
				log.Error("error closing AMQP connection", "error", closeErr)
			}
		}()
		sinks = append(sinks, amqpSink)
		log.Info("AMQP event sink enabled", "exchange", cfg.Events.AMQP.Exchange)
	}

	if cfg.Alerts.Enabled {
		evaluator, alertErr := newAlertEvaluator(cfg)
		if alertErr != nil {
			return alertErr
		}
		sinks = append(sinks, evaluator)
		log.Info("threshold alerts enabled",
			"rules", len(cfg.Alerts.Rules),
			"subscribers", len(cfg.Alerts.Subscribers),
		)
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(hubCtx)
	sinks = append(sinks, hub)

	fanout := events.NewFanout(cfg.Events.BufferSize, log, sinks...)
	log.Info("event fan-out started", "sinks", fanout.SinkCount())
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if closeErr := fanout.Close(drainCtx); closeErr != nil {
			log.Warn("event fan-out did not drain", "error", closeErr)
		}
	}()

	dispatcher := command.NewDispatcher(mqttClient, mqttClient.QoS(), log)
	reconciler := ingest.NewReconciler(st.devices, dispatcher, fanout, time.Now)
	recorder := ingest.NewRecorder(st.readings, fanout, time.Now)

	router, err := ingest.New(reconciler, recorder, log)
	if err != nil {
		return fmt.Errorf("building topic router: %w", err)
	}
	if bindErr := router.Bind(ctx, mqttClient, mqttClient.QoS()); bindErr != nil {
		return fmt.Errorf("subscribing to ingest topics: %w", bindErr)
	}
	defer func() {
		if unbindErr := router.Unbind(mqttClient); unbindErr != nil {
			log.Warn("error unsubscribing ingest topics", "error", unbindErr)
		}
	}()
	log.Info("ingest topics subscribed", "subscriptions", mqttClient.SubscriptionCount())

	apiServer, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log,
		Query:   query.NewService(st.devices, st.readings, dispatcher, time.Now),
		Store:   st.health,
		MQTT:    mqttClient,
		Broker:  brokerAddr,
		Hub:     hub,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred closes run in reverse: API, ingest unsubscribe, fan-out
	// drain, hub, sinks, MQTT, database, tracing.

	log.Info("SensorHub Core stopped")
	return nil
}

// openStore connects the configured database, applies migrations, and
// returns the repositories backed by it.
//
// Parameters:
//   - ctx: Context for connection and migration
//   - cfg: Database configuration
//   - log: Logger instance
//
// Returns:
//   - *store: Repositories and lifecycle hooks
//   - error: If connecting or migrating fails
func openStore(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, postgres.Config{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		if err := pool.Migrate(ctx, migrations.Postgres()); err != nil {
			pool.Close() //nolint:errcheck // migration error takes precedence
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		log.Info("database connected", "driver", cfg.Driver)
		return &store{
			devices:  device.NewPostgresRepository(pool.Pool),
			readings: telemetry.NewPostgresRepository(pool.Pool),
			health:   pool,
			close:    pool.Close,
		}, nil

	default:
		db, err := database.Open(ctx, database.Config{
			Path:        cfg.Path,
			WALMode:     cfg.WALMode,
			BusyTimeout: cfg.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		if err := db.Migrate(ctx, migrations.SQLite()); err != nil {
			db.Close() //nolint:errcheck // migration error takes precedence
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		log.Info("database connected", "driver", config.DriverSQLite, "path", cfg.Path)
		return &store{
			devices:  device.NewSQLiteRepository(db.DB),
			readings: telemetry.NewSQLiteRepository(db.DB),
			health:   db,
			close:    db.Close,
		}, nil
	}
}

// newAlertEvaluator builds the threshold evaluator and its CloudEvents notifier.
func newAlertEvaluator(cfg *config.Config) (*alert.Evaluator, error) {
	rules, err := alert.RulesFromConfig(cfg.Alerts.Rules)
	if err != nil {
		return nil, fmt.Errorf("loading alert rules: %w", err)
	}
	notifier, err := alert.NewNotifier(cfg.Alerts.Source, cfg.Alerts.Subscribers)
	if err != nil {
		return nil, fmt.Errorf("creating alert notifier: %w", err)
	}
	return alert.NewEvaluator(rules, notifier, cfg.AlertCooldown(), time.Now), nil
}

// getConfigPath returns the configuration file path.
// Uses SENSORHUB_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SENSORHUB_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - checks: Named clients to check; nil entries are skipped
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, checks map[string]healthChecker) error {
	for name, c := range checks {
		if c == nil {
			continue
		}
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
