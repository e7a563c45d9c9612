package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is everything the lamp daemon reads at startup. Values come
// from defaults, then the YAML file, then LUMEN_* environment
// variables, in that order.
type Config struct {
	System    SystemConfig    `yaml:"system"`
	Database  DatabaseConfig  `yaml:"database"`
	Engine    EngineConfig    `yaml:"engine"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SystemConfig names this lamp. The id tags history rows and
// telemetry so multiple lamps can share a database or bucket.
type SystemConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig is the SQLite history store.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// RetentionDays is how long activity history is kept.
	// Zero disables pruning.
	RetentionDays int `yaml:"retention_days"`
}

// EngineConfig tunes the animation engine.
type EngineConfig struct {
	// TickMs is the frame interval in milliseconds. Patterns are
	// advanced and changes published at this rate.
	TickMs int `yaml:"tick_ms"`
}

// MQTTConfig is the broker connection. Disabled lamps run
// HTTP/WebSocket only.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig shapes paho's backoff, in seconds. Paho retries
// forever; these only bound the delay between attempts.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig is the HTTP server the emulator and REST clients talk to.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig holds the server timeouts, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig narrows which origins may call the API; an empty
// allowed_origins list permits everything, which suits development.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig tunes the frame-streaming hub. Intervals and
// timeouts are in seconds.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig is the optional telemetry sink.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig feeds the logging package.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Load reads the YAML file at path over the compiled-in defaults,
// applies LUMEN_* environment overrides, and validates the result.
// Environment names follow LUMEN_SECTION_KEY: LUMEN_DATABASE_PATH,
// LUMEN_MQTT_HOST, LUMEN_INFLUXDB_TOKEN and so on.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig is a runnable local setup: local broker, 20 Hz frame
// clock, history in ./data, telemetry off.
func defaultConfig() *Config {
	return &Config{
		System: SystemConfig{
			ID:   "lamp-001",
			Name: "Lumen",
		},
		Database: DatabaseConfig{
			Path:          "./data/lumen.db",
			WALMode:       true,
			BusyTimeout:   5,
			RetentionDays: 30,
		},
		Engine: EngineConfig{
			TickMs: 50,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "lumen-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 3001,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnv overlays environment variables. Secrets are deliberately
// settable only this way or via the file; there are no flags.
func (c *Config) applyEnv() {
	overlay("LUMEN_DATABASE_PATH", &c.Database.Path)
	overlay("LUMEN_MQTT_HOST", &c.MQTT.Broker.Host)
	overlayInt("LUMEN_MQTT_PORT", &c.MQTT.Broker.Port)
	overlay("LUMEN_MQTT_USERNAME", &c.MQTT.Auth.Username)
	overlay("LUMEN_MQTT_PASSWORD", &c.MQTT.Auth.Password)
	overlay("LUMEN_API_HOST", &c.API.Host)
	overlayInt("LUMEN_API_PORT", &c.API.Port)
	overlay("LUMEN_INFLUXDB_TOKEN", &c.InfluxDB.Token)
	overlay("LUMEN_LOG_LEVEL", &c.Logging.Level)
}

func overlay(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overlayInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Validate collects every problem rather than stopping at the first,
// so a broken deploy shows all its mistakes in one log line.
func (c *Config) Validate() error {
	var problems []string
	require := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	require(c.System.ID != "", "system.id is required")
	require(c.Database.Path != "", "database.path is required")
	require(c.Database.RetentionDays >= 0, "database.retention_days must not be negative")

	// Ticks below 10ms burn CPU redrawing faster than the strip
	// updates.
	require(c.Engine.TickMs >= 10, "engine.tick_ms must be at least 10")

	require(c.MQTT.QoS >= 0 && c.MQTT.QoS <= 2, "mqtt.qos must be 0, 1, or 2")
	require(c.API.Port >= 1 && c.API.Port <= 65535, "api.port must be between 1 and 65535")

	if len(problems) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(problems, "; "))
	}
	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetTickInterval returns the engine frame interval as a Duration.
func (c *Config) GetTickInterval() time.Duration {
	return time.Duration(c.Engine.TickMs) * time.Millisecond
}

// GetRetention returns the history retention window as a Duration.
// Zero means retention is disabled.
func (c *Config) GetRetention() time.Duration {
	return time.Duration(c.Database.RetentionDays) * 24 * time.Hour
}
