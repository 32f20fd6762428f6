// Gray Logic Controller - sensor status cache and event pipeline
//
// This is the main entry point for the Gray Logic controller. It:
//   - Runs deployed sensors (MQTT topics and polled files)
//   - Pushes every reading through the configured event processors
//   - Serves current statuses, long polls and status streams to wall panels
//
// The deployment file is re-read on SIGHUP without restarting.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nerrad567/gray-logic-controller/internal/api"
	"github.com/nerrad567/gray-logic-controller/internal/deploy"
	"github.com/nerrad567/gray-logic-controller/internal/history"
	"github.com/nerrad567/gray-logic-controller/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-controller/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-controller/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-controller/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-controller/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-controller/internal/processor"
	"github.com/nerrad567/gray-logic-controller/internal/statuscache"
	"github.com/nerrad567/gray-logic-controller/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

const (
	// defaultConfigPath is used when GRAYLOGIC_CONFIG is unset.
	defaultConfigPath = "configs/config.yaml"

	// ruleCommandTimeout bounds each command a rule executes.
	ruleCommandTimeout = 5 * time.Second

	// historyPruneInterval is how often old sensor history is deleted.
	historyPruneInterval = time.Hour
)

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic controller",
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

	// Open database
	db, err := database.Open(cfg.Database)
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

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	historyRepo := history.NewRepository(db.DB)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Metrics registry served on /metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Event pipeline
	mapper := processor.NewMapper()
	rules := processor.NewRules(ruleCommandTimeout, log)
	procDeps := processor.Deps{
		Mapper:    mapper,
		Rules:     rules,
		Recorder:  historyRepo,
		Publisher: mqttClient,
	}
	if influxClient != nil {
		procDeps.Writer = influxClient
	}
	procs, err := processor.Build(cfg.Controller.Processors, procDeps)
	if err != nil {
		return fmt.Errorf("building event processors: %w", err)
	}

	cache := statuscache.New(
		statuscache.NewChain(procs, log),
		statuscache.WithLogger(log),
		statuscache.WithMetrics(statuscache.NewMetrics(reg)),
	)
	// Shutdown is idempotent; this covers early returns.
	defer cache.Shutdown()
	if startErr := cache.Start(ctx); startErr != nil {
		return fmt.Errorf("starting status cache: %w", startErr)
	}
	log.Info("event processors configured", "processors", cfg.Controller.Processors)

	// Apply the deployment
	deployer := deploy.NewDeployer(cache, mqttClient, mapper, rules, log)
	dep, err := deploy.Load(cfg.Controller.DeploymentFile)
	if err != nil {
		return fmt.Errorf("loading deployment: %w", err)
	}
	if applyErr := deployer.Apply(ctx, dep); applyErr != nil {
		if errors.Is(applyErr, deploy.ErrNoBroker) {
			return fmt.Errorf("applying deployment: %w", applyErr)
		}
		log.Warn("some sensors failed to start", "error", applyErr)
	}

	// Sensor history retention
	if days := cfg.Controller.HistoryRetentionDays; days > 0 {
		retention := time.Duration(days) * 24 * time.Hour
		go pruneHistory(ctx, historyRepo, retention, historyPruneInterval, log)
	}

	// Start API server
	checks := map[string]api.HealthChecker{
		"database": db,
		"mqtt":     mqttClient,
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient
	}
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Polling:  cfg.Controller.Polling,
		Logger:   log,
		Cache:    cache,
		History:  historyRepo,
		Gatherer: reg,
		Checks:   checks,
		Version:  version,
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

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	waitForShutdown(ctx, hup, deployer, cfg.Controller.DeploymentFile, log)

	log.Info("shutdown signal received, cleaning up")

	// The cache goes first so sensors stop and long polls return before
	// the listener drains. Deferred Close() calls then run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT
	// 4. Database
	cache.Shutdown()

	log.Info("Gray Logic controller stopped")
	return nil
}

// Reloader re-applies a deployment file. Satisfied by *deploy.Deployer.
type Reloader interface {
	Reload(ctx context.Context, path string) error
}

// waitForShutdown blocks until ctx is cancelled, redeploying path each time
// a signal arrives on hup. A failed redeploy is logged and the previous
// deployment stays in place.
func waitForShutdown(ctx context.Context, hup <-chan os.Signal, r Reloader, path string, log *logging.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			log.Info("reloading deployment", "path", path)
			if err := r.Reload(ctx, path); err != nil {
				log.Error("redeploy failed", "path", path, "error", err)
				continue
			}
			log.Info("deployment reloaded", "path", path)
		}
	}
}

// Pruner deletes history older than a cutoff. Satisfied by *history.Repository.
type Pruner interface {
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// pruneHistory deletes history older than retention once at start and then
// every interval until ctx is cancelled.
func pruneHistory(ctx context.Context, p Pruner, retention, interval time.Duration, log *logging.Logger) {
	prune := func() {
		n, err := p.Prune(ctx, retention)
		if err != nil {
			if ctx.Err() == nil {
				log.Error("pruning sensor history", "error", err)
			}
			return
		}
		if n > 0 {
			log.Info("pruned sensor history", "rows", n, "retention", retention.String())
		}
	}

	prune()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when InfluxDB is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
