package config

import "time"

// Config is the root application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Storage      StorageConfig      `yaml:"storage"`
	Remote       RemoteConfig       `yaml:"remote"`
	Sync         SyncConfig         `yaml:"sync"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Log          LogConfig          `yaml:"log"`
	CORS         CORSConfig         `yaml:"cors"`
}

// CORSConfig holds CORS settings for the local API.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Content-Type,X-Request-Id"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"false"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}

// ServerConfig holds local HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"127.0.0.1"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8787"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	// APIKey, when set, must be presented as a bearer token on /local routes.
	APIKey string `yaml:"api_key" env:"SERVER_API_KEY"`
}

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// StorageConfig selects and configures the durable store for local records,
// pending operations and settings.
type StorageConfig struct {
	Driver      string        `yaml:"driver"       env:"STORAGE_DRIVER"       env-default:"sqlite"`
	Path        string        `yaml:"path"         env:"STORAGE_PATH"         env-default:"./wardsync.db"`
	BusyTimeout time.Duration `yaml:"busy_timeout" env:"STORAGE_BUSY_TIMEOUT" env-default:"5s"`

	DSN             string        `yaml:"dsn"                env:"STORAGE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"STORAGE_MAX_CONNS"          env-default:"4"`
	MinConns        int32         `yaml:"min_conns"          env:"STORAGE_MIN_CONNS"          env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"STORAGE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"STORAGE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// RemoteConfig points at the remote hospital API.
type RemoteConfig struct {
	BaseURL          string        `yaml:"base_url"          env:"REMOTE_BASE_URL"          env-default:"http://localhost:3000"`
	Timeout          time.Duration `yaml:"timeout"           env:"REMOTE_TIMEOUT"           env-default:"15s"`
	PatientsEndpoint string        `yaml:"patients_endpoint" env:"REMOTE_PATIENTS_ENDPOINT" env-default:"/api/patients"`
}

// SyncConfig holds retention settings for synced records.
type SyncConfig struct {
	RetentionDays int  `yaml:"retention_days" env:"SYNC_RETENTION_DAYS" env-default:"30"`
	PurgeOnStart  bool `yaml:"purge_on_start" env:"SYNC_PURGE_ON_START" env-default:"false"`
}

// Retention returns RetentionDays as a duration.
func (c SyncConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Connectivity signal sources.
const (
	SourceClient = "client"
	SourceProbe  = "probe"
)

// ConnectivityConfig configures where online/offline signals come from and
// how the status notice behaves.
//
// With source "client" the front-end reports browser online/offline events to
// the local API. With source "probe" the agent additionally watches the
// remote API's health endpoint.
type ConnectivityConfig struct {
	Source            string        `yaml:"source"              env:"CONNECTIVITY_SOURCE"              env-default:"client"`
	InitialOnline     bool          `yaml:"initial_online"      env:"CONNECTIVITY_INITIAL_ONLINE"      env-default:"true"`
	RestoredNoticeTTL time.Duration `yaml:"restored_notice_ttl" env:"CONNECTIVITY_RESTORED_NOTICE_TTL" env-default:"3s"`
	ProbePath         string        `yaml:"probe_path"          env:"CONNECTIVITY_PROBE_PATH"          env-default:"/health"`
	ProbeInterval     time.Duration `yaml:"probe_interval"      env:"CONNECTIVITY_PROBE_INTERVAL"      env-default:"10s"`
	ProbeTimeout      time.Duration `yaml:"probe_timeout"       env:"CONNECTIVITY_PROBE_TIMEOUT"       env-default:"3s"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}
