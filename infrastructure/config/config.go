package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Storage    StorageConfig
	Cors       CorsConfig
	Logger     LoggerConfig
	Jaeger     JaegerConfig
	Sentry     SentryConfig
	Proctoring ProctoringConfig
}

type ServerConfig struct {
	InternalPort string
	ExternalPort string
	RunMode      string
	Domain       string
}

type LoggerConfig struct {
	FilePath string
	Encoding string
	Level    string
}

type DatabaseConfig struct {
	Driver   string
	Postgres PostgresConfig
	Sqlite   SqliteConfig
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DbName          string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type SqliteConfig struct {
	Path string
}

type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	Db           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	PoolTimeout  time.Duration
}

// StorageConfig selects the engine behind the proctor log store.
// "gorm" keeps logs in the primary database, "redis" in per-submission sorted sets.
type StorageConfig struct {
	LogDriver string
}

// CorsConfig lists are comma separated. An AllowOrigins entry of "*"
// accepts any origin.
type CorsConfig struct {
	AllowOrigins     string
	AllowMethods     string
	AllowHeaders     string
	AllowCredentials bool
	MaxAge           time.Duration
}

type JaegerConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Endpoint       string
}

type SentryConfig struct {
	Dsn            string
	Debug          bool
	SendDefaultPII bool
}

type ProctoringConfig struct {
	PlagiarismThreshold   float64
	PlagiarismPenalty     float64
	FlagLogThreshold      int
	LookupCacheSize       int
	LookupCacheTTL        time.Duration
	FinalizeWorkers       int
	FinalizeQueueSize     int
	OrphanCleanupInterval time.Duration
	IngestRatePerSecond   float64
	IngestBurst           int
	MaxBatchSize          int
}

const (
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite"

	LogDriverGorm  = "gorm"
	LogDriverRedis = "redis"
)

func GetConfig() *Config {
	cfgPath := getConfigPath(os.Getenv("APP_ENV"))
	v, err := LoadConfig(cfgPath, "yml")
	if err != nil {
		log.Fatalf("Error in load config %v", err)
	}

	cfg, err := ParseConfig(v)
	if err != nil {
		log.Fatalf("Error in parse config %v", err)
	}

	if envPort := os.Getenv("PORT"); envPort != "" {
		cfg.Server.ExternalPort = envPort
		log.Printf("Set external port from environment -> %s", cfg.Server.ExternalPort)
	} else {
		log.Printf("Using external port from config -> %s", cfg.Server.ExternalPort)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := ParseConfig(v)
	if err != nil {
		panic(fmt.Sprintf("default config does not parse: %v", err))
	}
	return cfg
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	err := v.Unmarshal(&cfg)
	if err != nil {
		log.Printf("Unable to parse config: %v", err)
		return nil, err
	}
	return &cfg, nil
}

func LoadConfig(filename string, fileType string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType(fileType)
	v.SetConfigName(filename)

	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./infrastructure/config")
	v.AddConfigPath("../infrastructure/config") // from cmd
	v.AddConfigPath("../../infrastructure/config")

	if wd, err := os.Getwd(); err == nil {
		v.AddConfigPath(filepath.Join(wd, "config"))
		v.AddConfigPath(filepath.Join(wd, "infrastructure", "config"))
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		log.Printf("Unable to read config: %v", err)
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}

	log.Printf("Using config file: %s", v.ConfigFileUsed())
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.internalPort", "8080")
	v.SetDefault("server.externalPort", "8080")
	v.SetDefault("server.runMode", "debug")
	v.SetDefault("server.domain", "localhost")

	v.SetDefault("database.driver", DriverSqlite)
	v.SetDefault("database.sqlite.path", "integrity.db")
	// empty defaults register the keys so AutomaticEnv can fill them
	v.SetDefault("database.postgres.host", "")
	v.SetDefault("database.postgres.user", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbName", "")
	v.SetDefault("database.postgres.port", "5432")
	v.SetDefault("database.postgres.sslMode", "disable")
	v.SetDefault("database.postgres.maxIdleConns", 10)
	v.SetDefault("database.postgres.maxOpenConns", 50)
	v.SetDefault("database.postgres.connMaxLifetime", "30m")

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.dialTimeout", "5s")
	v.SetDefault("redis.readTimeout", "3s")
	v.SetDefault("redis.writeTimeout", "3s")
	v.SetDefault("redis.poolSize", 20)
	v.SetDefault("redis.poolTimeout", "4s")

	v.SetDefault("storage.logDriver", LogDriverGorm)

	v.SetDefault("cors.allowOrigins", "*")
	v.SetDefault("cors.allowMethods", "GET, POST, PUT, OPTIONS")
	v.SetDefault("cors.allowHeaders", "Content-Type, Content-Length, Accept-Encoding, Authorization, Accept, Origin, Cache-Control, X-Requested-With")
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", "10m")

	v.SetDefault("logger.encoding", "console")
	v.SetDefault("logger.level", "debug")

	v.SetDefault("sentry.dsn", "")

	v.SetDefault("jaeger.serviceName", "integrity-service")
	v.SetDefault("jaeger.serviceVersion", "dev")

	v.SetDefault("proctoring.plagiarismThreshold", 0.85)
	v.SetDefault("proctoring.plagiarismPenalty", 50)
	v.SetDefault("proctoring.flagLogThreshold", 5)
	v.SetDefault("proctoring.lookupCacheSize", 4096)
	v.SetDefault("proctoring.lookupCacheTTL", "30s")
	v.SetDefault("proctoring.finalizeWorkers", 4)
	v.SetDefault("proctoring.finalizeQueueSize", 256)
	v.SetDefault("proctoring.orphanCleanupInterval", "6h")
	v.SetDefault("proctoring.ingestRatePerSecond", 20)
	v.SetDefault("proctoring.ingestBurst", 60)
	v.SetDefault("proctoring.maxBatchSize", 500)
}

func getConfigPath(env string) string {
	switch env {
	case "docker":
		return "config-docker"
	case "production":
		return "config-production"
	default:
		return "config-development"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.InternalPort == "" {
		return errors.New("server.internalPort is required")
	}
	if c.Server.ExternalPort == "" {
		return errors.New("server.externalPort is required")
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Postgres.Host == "" {
			return errors.New("database.postgres.host is required")
		}
		if c.Database.Postgres.DbName == "" {
			return errors.New("database.postgres.dbName is required")
		}
	case DriverSqlite:
		if c.Database.Sqlite.Path == "" {
			return errors.New("database.sqlite.path is required")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}

	switch c.Storage.LogDriver {
	case LogDriverGorm:
	case LogDriverRedis:
		if c.Redis.Host == "" {
			return errors.New("redis.host is required when storage.logDriver is redis")
		}
	default:
		return fmt.Errorf("storage.logDriver %q is not supported", c.Storage.LogDriver)
	}

	p := c.Proctoring
	if p.PlagiarismThreshold <= 0 || p.PlagiarismThreshold > 1 {
		return errors.New("proctoring.plagiarismThreshold must be in (0, 1]")
	}
	if p.PlagiarismPenalty < 0 || p.PlagiarismPenalty > 100 {
		return errors.New("proctoring.plagiarismPenalty must be in [0, 100]")
	}
	if p.FlagLogThreshold < 0 {
		return errors.New("proctoring.flagLogThreshold cannot be negative")
	}
	if p.FinalizeWorkers < 1 {
		return errors.New("proctoring.finalizeWorkers must be at least 1")
	}
	if p.MaxBatchSize < 1 {
		return errors.New("proctoring.maxBatchSize must be at least 1")
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.RunMode == "debug" || c.Server.RunMode == "development"
}

func (c *Config) IsProduction() bool {
	return c.Server.RunMode == "release" || c.Server.RunMode == "production"
}

func (c *Config) GetRedisAddress() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf(":%s", c.Server.InternalPort)
}
