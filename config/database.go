package config

import (
	"fmt"
	"strconv"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	embeddedDataPath = "./db_data"
	embeddedPort     = 5433
)

// DB wraps gorm.DB and the embedded postgres process when one was started.
type DB struct {
	*gorm.DB
	embedded *embeddedpostgres.EmbeddedPostgres
	log      *zap.Logger
}

// ConnectDB opens the database. With no DB_URL, a localhost host and no password it starts
// an embedded postgres for local development.
func ConnectDB(cfg DatabaseConfig, log *zap.Logger) (*DB, error) {
	var embedded *embeddedpostgres.EmbeddedPostgres

	dsn := cfg.URL
	if dsn == "" {
		password := cfg.Password
		port := cfg.Port
		if cfg.Host == "localhost" && cfg.Password == "" {
			log.Info("starting embedded postgres", zap.Int("port", embeddedPort))
			embedded = embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
				DataPath(embeddedDataPath).
				Port(uint32(embeddedPort)).
				Database(cfg.Database).
				Username(cfg.Username).
				Password("postgres"))
			if err := embedded.Start(); err != nil {
				return nil, fmt.Errorf("failed to start embedded database: %w", err)
			}
			password = "postgres"
			port = strconv.Itoa(embeddedPort)
		}
		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, port, cfg.Username, password, cfg.Database)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		if embedded != nil {
			_ = embedded.Stop()
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Info("database connection established")
	return &DB{DB: db, embedded: embedded, log: log}, nil
}

// Close shuts down the pool and the embedded process.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err == nil {
		err = sqlDB.Close()
	}
	if db.embedded != nil {
		db.log.Info("stopping embedded postgres")
		if stopErr := db.embedded.Stop(); stopErr != nil && err == nil {
			err = stopErr
		}
	}
	return err
}
