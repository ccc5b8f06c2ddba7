package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/devscore/integrity/infrastructure/config"
	"github.com/devscore/integrity/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbClient *gorm.DB

func InitDb(cfg *config.Config, zapLogger *zap.Logger) error {
	db, err := Open(cfg.Database, zapLogger)
	if err != nil {
		return err
	}
	dbClient = db
	return nil
}

func GetDb() *gorm.DB {
	return dbClient
}

func CloseDb() {
	if dbClient == nil {
		return
	}
	if sqlDB, err := dbClient.DB(); err == nil {
		sqlDB.Close()
	}
	dbClient = nil
}

// Open connects to the configured primary database.
func Open(cfg config.DatabaseConfig, zapLogger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(postgresDSN(cfg.Postgres))
	case config.DriverSqlite:
		dialector = sqlite.Open(SqliteDSN(cfg.Sqlite.Path))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.NewGormLogger(zapLogger),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case config.DriverPostgres:
		sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
	case config.DriverSqlite:
		// a single writer avoids SQLITE_BUSY under concurrent ingestion
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping %s database: %w", cfg.Driver, err)
	}

	zapLogger.Info("Database connection established", zap.String("driver", cfg.Driver))
	return db, nil
}

// SqliteDSN enables foreign keys so submission deletes cascade to logs.
func SqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
}

func postgresDSN(cfg config.PostgresConfig) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DbName, cfg.SSLMode,
	)
}

// IsPostgres reports whether row locks are available on db.
func IsPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}
