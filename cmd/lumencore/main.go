// Lumen Core - LED lamp animation engine
//
// This is the main entry point for the Lumen Core daemon. It owns a
// single 172-cell lamp (a 10x14 front grid plus a 32-cell ambient
// ring) and exposes it over:
//   - HTTP + WebSocket (commands, programs, state, history)
//   - MQTT (optional mirror of the same surface for headless clients)
//   - InfluxDB telemetry (optional frame/pattern/program metrics)
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/lumen-labs/lumen-core/migrations"

	"github.com/lumen-labs/lumen-core/internal/api"
	"github.com/lumen-labs/lumen-core/internal/bridge"
	"github.com/lumen-labs/lumen-core/internal/engine"
	"github.com/lumen-labs/lumen-core/internal/history"
	"github.com/lumen-labs/lumen-core/internal/infrastructure/config"
	"github.com/lumen-labs/lumen-core/internal/infrastructure/database"
	"github.com/lumen-labs/lumen-core/internal/infrastructure/influxdb"
	"github.com/lumen-labs/lumen-core/internal/infrastructure/logging"
	"github.com/lumen-labs/lumen-core/internal/infrastructure/mqtt"
	"github.com/lumen-labs/lumen-core/internal/program"
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
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Lumen Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
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

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Activity history: async recorder over the SQLite repository
	repo := history.NewSQLiteRepository(db.DB)
	recorder := history.NewRecorder(repo, cfg.GetRetention(), log)
	defer recorder.Close()
	log.Info("history recorder started", "retention_days", cfg.Database.RetentionDays)

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

	// Animation engine. Pattern runs land in history and, when
	// telemetry is on, in InfluxDB as well.
	var patternSink engine.Recorder = recorder
	if influxClient != nil {
		patternSink = patternRecorders{recorder, patternTelemetry{client: influxClient}}
	}
	eng := engine.New(cfg.GetTickInterval(), patternSink, log)

	// WebSocket hub is created up front so it can sit in the
	// scheduler's notifier chain alongside the recorder.
	hub := api.NewHub(log)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	var statusBridge *bridge.Bridge
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
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		statusBridge, err = bridge.New(bridge.Options{
			Broker: mqttClient,
			Engine: eng,
			Logger: log,
		})
		if err != nil {
			return fmt.Errorf("creating MQTT bridge: %w", err)
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Program scheduler. Lifecycle events fan out to the history
	// recorder, WebSocket watchers and the optional MQTT and telemetry
	// sinks.
	notifiers := program.Notifiers{recorder, hub}
	if statusBridge != nil {
		notifiers = append(notifiers, statusBridge)
	}
	if influxClient != nil {
		notifiers = append(notifiers, newProgramTelemetry(influxClient))
	}
	sched := program.New(eng, notifiers, log)
	defer sched.Close()

	// Pattern completions advance waiting program steps.
	eng.SetOnPatternDone(sched.HandlePatternDone)

	// Start the engine before anything that reads lamp state.
	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}
	defer eng.Stop()
	log.Info("engine started", "tick", cfg.GetTickInterval())

	// Attach the MQTT bridge now that engine and scheduler exist.
	if statusBridge != nil {
		statusBridge.SetScheduler(sched)
		if err := statusBridge.Start(ctx); err != nil {
			return fmt.Errorf("starting MQTT bridge: %w", err)
		}
		defer func() {
			log.Info("stopping MQTT bridge")
			statusBridge.Stop()
		}()
	}

	// Frame telemetry (optional)
	if influxClient != nil {
		stopFrames := watchFrames(eng, influxClient)
		defer stopFrames()
		log.Info("frame telemetry started")
	}

	// HTTP + WebSocket server
	healthChecks := map[string]api.HealthChecker{
		"database": db,
	}
	if mqttClient != nil {
		healthChecks["mqtt"] = mqttClient
	}
	if influxClient != nil {
		healthChecks["influxdb"] = influxClient
	}

	server, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Logger:    log,
		Engine:    eng,
		Scheduler: sched,
		History:   repo,
		Health:    healthChecks,
		Hub:       hub,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"addr", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order: API server, frame
	// telemetry, MQTT bridge, engine, scheduler, MQTT, InfluxDB,
	// recorder, database.

	log.Info("Lumen Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses LUMEN_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LUMEN_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// watchFrames streams engine change events into frame telemetry. The
// frame rate is an exponential moving average of the inter-event
// interval, so it settles after a few frames and rides out one-off
// gaps. Returns a stop function that detaches and waits for the
// relay to drain.
func watchFrames(eng *engine.Engine, tsdb *influxdb.Client) func() {
	events, unsub := eng.Subscribe(engine.DefaultSubscriberBuffer)
	done := make(chan struct{})

	go func() {
		defer close(done)
		var (
			last time.Time
			fps  float64
		)
		for ev := range events {
			now := time.Now()
			if !last.IsZero() {
				if dt := now.Sub(last); dt > 0 {
					inst := 1.0 / dt.Seconds()
					if fps == 0 {
						fps = inst
					} else {
						fps += (inst - fps) * 0.2
					}
				}
			}
			last = now

			changed := len(ev.Cells)
			if ev.Full {
				changed = len(ev.Snapshot)
			}
			tsdb.WriteFrameMetric(changed, fps)
		}
	}()

	return func() {
		unsub()
		<-done
	}
}

// patternRecorders fans one finished pattern run out to several sinks.
type patternRecorders []engine.Recorder

// RecordPatternRun implements engine.Recorder.
func (rs patternRecorders) RecordPatternRun(run engine.PatternRun) {
	for _, r := range rs {
		r.RecordPatternRun(run)
	}
}

// patternTelemetry mirrors finished pattern runs to InfluxDB.
type patternTelemetry struct {
	client *influxdb.Client
}

// RecordPatternRun implements engine.Recorder.
func (p patternTelemetry) RecordPatternRun(run engine.PatternRun) {
	p.client.WritePatternRun(run.Name, run.StoppedAt.Sub(run.StartedAt))
}

// programTelemetry writes terminal program executions to InfluxDB. It
// remembers start times by execution id so each point carries the
// wall-clock duration of the run.
type programTelemetry struct {
	client *influxdb.Client

	mu     sync.Mutex
	starts map[string]time.Time
}

func newProgramTelemetry(client *influxdb.Client) *programTelemetry {
	return &programTelemetry{
		client: client,
		starts: make(map[string]time.Time),
	}
}

// ProgramEvent implements program.Notifier. Writes are handed to the
// non-blocking InfluxDB write API, so this returns immediately.
func (p *programTelemetry) ProgramEvent(ev program.StatusEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Kind {
	case program.EventStarted:
		p.starts[ev.ExecutionID] = ev.Timestamp
	case program.EventCompleted, program.EventCancelled:
		var duration time.Duration
		if started, ok := p.starts[ev.ExecutionID]; ok {
			duration = ev.Timestamp.Sub(started)
			delete(p.starts, ev.ExecutionID)
		}
		p.client.WriteProgramRun(ev.Program, string(ev.Status), ev.StepsRun, duration)
	}
}
