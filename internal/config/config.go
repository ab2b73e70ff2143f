package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	LogLevel  string
	LogFormat string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis RedisConfig

	Invoice InvoiceConfig

	Scheduler SchedulerConfig

	Telemetry TelemetryConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// InvoiceConfig controls invoice defaults and where numbering settings live.
type InvoiceConfig struct {
	// SequenceBackend selects the atomic sequence service: postgres, redis or none.
	SequenceBackend string
	NumberingFile   string
	Timezone        string
	DefaultTaxRate  float64
	DefaultDueDays  int
	OrgName         string
	OrgAddress      string
	OrgEmail        string
}

// SchedulerConfig controls the background overdue sweep.
type SchedulerConfig struct {
	Enabled     bool
	RunInterval time.Duration
	BatchSize   int
}

// TelemetryConfig selects the OTLP trace exporter and log sampling.
type TelemetryConfig struct {
	TracingEnabled bool
	Endpoint       string
	// Protocol is grpc or http.
	Protocol      string
	SamplingRatio float64
	LogSampling   bool
}

const (
	SequenceBackendPostgres = "postgres"
	SequenceBackendRedis    = "redis"
	SequenceBackendNone     = "none"
)

var Module = fx.Module("config",
	fx.Provide(Load),
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	dbType := strings.ToLower(getenv("DATABASE_TYPE", "postgres"))

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "invoicer"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		LogLevel:          strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getenv("LOG_FORMAT", "json")),
		DBType:            dbType,
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "invoicer"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "invoicer.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Invoice: InvoiceConfig{
			SequenceBackend: normalizeSequenceBackend(getenv("INVOICE_SEQUENCE_BACKEND", defaultSequenceBackend(dbType))),
			NumberingFile:   getenv("INVOICE_NUMBERING_FILE", "numbering.yml"),
			Timezone:        getenv("INVOICE_TIMEZONE", "Local"),
			DefaultTaxRate:  getenvFloat("INVOICE_DEFAULT_TAX_RATE", 10),
			DefaultDueDays:  getenvInt("INVOICE_DEFAULT_DUE_DAYS", 30),
			OrgName:         getenv("INVOICE_ORG_NAME", "PPFI"),
			OrgAddress:      getenv("INVOICE_ORG_ADDRESS", ""),
			OrgEmail:        getenv("INVOICE_ORG_EMAIL", ""),
		},
		Scheduler: SchedulerConfig{
			Enabled:     getenvBool("SCHEDULER_ENABLED", true),
			RunInterval: getenvDuration("SCHEDULER_RUN_INTERVAL", time.Hour),
			BatchSize:   getenvInt("SCHEDULER_BATCH_SIZE", 100),
		},
		Telemetry: TelemetryConfig{
			TracingEnabled: getenvBool("OTEL_ENABLED", false),
			Endpoint:       strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")),
			Protocol:       strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			SamplingRatio:  getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
			LogSampling:    getenvBool("LOG_SAMPLING", true),
		},
	}

	return cfg
}

// Location resolves the timezone used to date invoice numbers.
func (c InvoiceConfig) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func defaultSequenceBackend(dbType string) string {
	if dbType == "postgres" {
		return SequenceBackendPostgres
	}
	return SequenceBackendNone
}

func normalizeSequenceBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case SequenceBackendPostgres:
		return SequenceBackendPostgres
	case SequenceBackendRedis:
		return SequenceBackendRedis
	default:
		return SequenceBackendNone
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
