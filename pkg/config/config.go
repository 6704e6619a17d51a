package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable this service reads.
	EnvPrefix = "WAREHOUSE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "WAREHOUSE_DB_DSN"
	EnvDBHost = "WAREHOUSE_DB_HOST"
	EnvDBUser = "WAREHOUSE_DB_USER"
	EnvDBName = "WAREHOUSE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Aggregator   AggregatorConfig
	Orchestrator OrchestratorConfig
	Advisor      AdvisorConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"WAREHOUSE_APP_ENV" required:"true"`
	Port         string `envconfig:"WAREHOUSE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"WAREHOUSE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WAREHOUSE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"WAREHOUSE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"WAREHOUSE_DB_DSN"`
	Driver string `envconfig:"WAREHOUSE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"WAREHOUSE_DB_HOST"`
	LegacyPort     int    `envconfig:"WAREHOUSE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WAREHOUSE_DB_USER"`
	LegacyPassword string `envconfig:"WAREHOUSE_DB_PASSWORD"`
	LegacyName     string `envconfig:"WAREHOUSE_DB_NAME"`
	LegacySSLMode  string `envconfig:"WAREHOUSE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WAREHOUSE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WAREHOUSE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WAREHOUSE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WAREHOUSE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"WAREHOUSE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"WAREHOUSE_REDIS_ADDR"`
	Password     string        `envconfig:"WAREHOUSE_REDIS_PASSWORD"`
	DB           int           `envconfig:"WAREHOUSE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WAREHOUSE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WAREHOUSE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WAREHOUSE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WAREHOUSE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WAREHOUSE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// KafkaConfig wires the event-log transport. Every topic is key-partitioned
// by store_id so per-store ordering holds within a partition.
type KafkaConfig struct {
	Brokers []string `envconfig:"WAREHOUSE_KAFKA_BROKERS" default:"localhost:9092"`
	GroupID string   `envconfig:"WAREHOUSE_KAFKA_GROUP_ID" default:"warehouse-pipeline"`

	RestockSignalsTopic      string `envconfig:"WAREHOUSE_KAFKA_RESTOCK_SIGNALS_TOPIC" default:"restock-signals"`
	FulfillmentRequestsTopic string `envconfig:"WAREHOUSE_KAFKA_FULFILLMENT_REQUESTS_TOPIC" default:"fulfillment-requests"`
	FulfillmentEventsTopic   string `envconfig:"WAREHOUSE_KAFKA_FULFILLMENT_EVENTS_TOPIC" default:"fulfillment-events"`
	InventoryUpdatesTopic    string `envconfig:"WAREHOUSE_KAFKA_INVENTORY_UPDATES_TOPIC" default:"inventory-updates"`

	ReadTimeout     time.Duration `envconfig:"WAREHOUSE_KAFKA_READ_TIMEOUT" default:"10s"`
	PublishAttempts int           `envconfig:"WAREHOUSE_KAFKA_PUBLISH_ATTEMPTS" default:"5"`
}

type AggregatorConfig struct {
	WindowDuration time.Duration `envconfig:"WAREHOUSE_AGGREGATOR_WINDOW_DURATION" default:"15s"`
	WindowMaxCount int           `envconfig:"WAREHOUSE_AGGREGATOR_WINDOW_MAX_COUNT" default:"100"`
	IdempotencyTTL time.Duration `envconfig:"WAREHOUSE_AGGREGATOR_IDEMPOTENCY_TTL" default:"720h"`
}

type OrchestratorConfig struct {
	AutoProcessPriorities []string `envconfig:"WAREHOUSE_ORCHESTRATOR_AUTO_PRIORITIES" default:"high,critical"`
}

type AdvisorConfig struct {
	BaseURL string        `envconfig:"WAREHOUSE_ADVISOR_BASE_URL"`
	APIKey  string        `envconfig:"WAREHOUSE_ADVISOR_API_KEY"`
	Timeout time.Duration `envconfig:"WAREHOUSE_ADVISOR_TIMEOUT" default:"8s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"WAREHOUSE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"WAREHOUSE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
