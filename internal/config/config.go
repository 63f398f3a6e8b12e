package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rentfleet/service-rental-booking/internal/common/database"
)

// Store backends.
const (
	StoreBackendPostgres = "postgres"
	StoreBackendDynamoDB = "dynamodb"
	StoreBackendMemory   = "memory"
)

const envPrefix = "RENTAL"

// KafkaConfig holds broker and topic settings.
type KafkaConfig struct {
	Enabled        bool
	Brokers        []string
	GroupPrefix    string
	BookingTopic   string
	DirectoryTopic string
}

// DynamoDBConfig holds settings for the DynamoDB booking store.
type DynamoDBConfig struct {
	Table    string
	Region   string
	Endpoint string
}

// ReconcileConfig controls when expired bookings are reconciled.
type ReconcileConfig struct {
	OnRead   bool
	Interval time.Duration
}

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port                   string
	AppEnv                 string
	LogLevel               string
	StoreBackend           string
	AutoMigrate            bool
	RequireKnownReferences bool
	Location               *time.Location
	CORSAllowedOrigins     []string

	DBConfig        database.PostgresConfig
	DynamoDBConfig  DynamoDBConfig
	KafkaConfig     KafkaConfig
	ReconcileConfig ReconcileConfig
}

// Load reads configuration from environment variables prefixed with RENTAL_, after
// loading an optional .env file.
func Load() (*ServiceConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	loc, err := time.LoadLocation(v.GetString("TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	// Without Kafka nothing fills the directory, so reference checks default to off.
	requireKnown := v.GetBool("KAFKA_ENABLED")
	if v.IsSet("REQUIRE_KNOWN_REFERENCES") {
		requireKnown = v.GetBool("REQUIRE_KNOWN_REFERENCES")
	}

	cfg := &ServiceConfig{
		Port:                   normalizePort(v.GetString("SERVICE_PORT")),
		AppEnv:                 v.GetString("APP_ENV"),
		LogLevel:               v.GetString("LOG_LEVEL"),
		StoreBackend:           strings.ToLower(v.GetString("STORE_BACKEND")),
		AutoMigrate:            v.GetBool("DB_AUTO_MIGRATE"),
		RequireKnownReferences: requireKnown,
		Location:               loc,
		CORSAllowedOrigins:     splitCSV(v.GetString("CORS_ALLOWED_ORIGINS")),
		DBConfig: database.PostgresConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetString("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			DBName:          v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		DynamoDBConfig: DynamoDBConfig{
			Table:    v.GetString("DYNAMODB_TABLE"),
			Region:   v.GetString("AWS_REGION"),
			Endpoint: v.GetString("DYNAMODB_ENDPOINT"),
		},
		KafkaConfig: KafkaConfig{
			Enabled:        v.GetBool("KAFKA_ENABLED"),
			Brokers:        splitCSV(v.GetString("KAFKA_BROKERS")),
			GroupPrefix:    v.GetString("KAFKA_GROUP_PREFIX"),
			BookingTopic:   v.GetString("KAFKA_BOOKING_TOPIC"),
			DirectoryTopic: v.GetString("KAFKA_DIRECTORY_TOPIC"),
		},
		ReconcileConfig: ReconcileConfig{
			OnRead:   v.GetBool("RECONCILE_ON_READ"),
			Interval: v.GetDuration("RECONCILE_INTERVAL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_PORT", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("STORE_BACKEND", StoreBackendPostgres)
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "rental_booking")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")

	v.SetDefault("DYNAMODB_TABLE", "bookings")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("DYNAMODB_ENDPOINT", "")

	v.SetDefault("KAFKA_ENABLED", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_GROUP_PREFIX", "rental-")
	v.SetDefault("KAFKA_BOOKING_TOPIC", "rental.booking.events")
	v.SetDefault("KAFKA_DIRECTORY_TOPIC", "rental.directory.events")

	v.SetDefault("RECONCILE_ON_READ", true)
	v.SetDefault("RECONCILE_INTERVAL", "0s")
}

func (c *ServiceConfig) validate() error {
	var problems []string

	switch c.StoreBackend {
	case StoreBackendPostgres, StoreBackendDynamoDB, StoreBackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("unknown STORE_BACKEND %q", c.StoreBackend))
	}
	if c.KafkaConfig.Enabled && len(c.KafkaConfig.Brokers) == 0 {
		problems = append(problems, "KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if c.RequireKnownReferences && !c.KafkaConfig.Enabled {
		problems = append(problems, "REQUIRE_KNOWN_REFERENCES needs KAFKA_ENABLED to fill the directory")
	}
	if c.ReconcileConfig.Interval < 0 {
		problems = append(problems, "RECONCILE_INTERVAL must not be negative")
	}
	if c.StoreBackend == StoreBackendDynamoDB && c.DynamoDBConfig.Table == "" {
		problems = append(problems, "DYNAMODB_TABLE is required for the dynamodb backend")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// normalizePort accepts both "8080" and ":8080".
func normalizePort(port string) string {
	if port != "" && !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
