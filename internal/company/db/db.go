// Package db implements the entity store on top of GORM. Uniqueness of
// role and invite rows per (company, user) pair is enforced by composite
// unique indexes; storage errors are translated into the errors package
// taxonomy at this boundary and never leak upward raw.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	dbmodels "github.com/gartstein/companyhub/internal/company/db/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Path is the sqlite database file, ":memory:" for an in-process store.
	Path         string
	MaxOpenConns int
}

// DSN renders the driver specific connection string.
func (c *Config) DSN() string {
	if c.Driver == DriverSQLite {
		path := c.Path
		if path == "" {
			path = ":memory:"
		}
		// immediate transactions take the write lock up front, so a
		// load-validate-write sequence cannot be interleaved by another writer.
		return path + "?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func (c *Config) dialector() (gorm.Dialector, error) {
	switch strings.ToLower(c.Driver) {
	case "", DriverPostgres:
		return postgres.Open(c.DSN()), nil
	case DriverSQLite:
		return sqlite.Open(c.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

// NewRepository opens the database and migrates the schema.
func NewRepository(cfg *Config) (*Repository, error) {
	dialector, err := cfg.dialector()
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		// sqlite has a single writer; one pooled connection serializes
		// transactions instead of failing them with SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := db.AutoMigrate(dbmodels.All()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Connect retries NewRepository with exponential backoff until it succeeds,
// ctx is done or maxElapsed passes.
func Connect(ctx context.Context, cfg *Config, maxElapsed time.Duration, logger *zap.Logger) (*Repository, error) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxElapsed

	var repo *Repository
	err := backoff.RetryNotify(func() error {
		var err error
		repo, err = NewRepository(cfg)
		return err
	}, backoff.WithContext(policy, ctx), func(err error, next time.Duration) {
		logger.Warn("database not ready, retrying",
			zap.Error(err),
			zap.Duration("next_attempt", next),
		)
	})
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	result := r.db.WithContext(ctx).Exec(query, params...)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// Ping checks the underlying connection.
func (r *Repository) Ping(ctx context.Context) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// SQLDB exposes the connection pool for instrumentation.
func (r *Repository) SQLDB() (*sql.DB, error) {
	return r.db.DB()
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func forUpdate() clause.Expression {
	return clause.Locking{Strength: clause.LockingStrengthUpdate}
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func isForeignKey(err error) bool {
	return errors.Is(err, gorm.ErrForeignKeyViolated)
}

func paginate(db *gorm.DB, page, pageSize int) *gorm.DB {
	if pageSize <= 0 {
		return db
	}
	if page < 1 {
		page = 1
	}
	return db.Offset((page - 1) * pageSize).Limit(pageSize)
}
