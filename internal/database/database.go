package database

import (
	"context"
	"database/sql"
	"net/url"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"case-engine/internal/config"
)

// Database wraps the connection pool and migration plumbing.
type Database struct {
	db     *sqlx.DB
	logger *zap.Logger
	config *config.DatabaseConfig
}

// New opens a connection pool against PostgreSQL.
func New(cfg *config.DatabaseConfig, logger *zap.Logger) (*Database, error) {
	if cfg == nil {
		return nil, errors.New("database config is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	d := &Database{
		logger: logger.Named("database"),
		config: cfg,
	}

	if err := d.connect(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	return d, nil
}

func (d *Database) connect() error {
	d.logger.Info("Connecting to database",
		zap.String("connection_string", maskConnectionString(d.config.ConnectionString)))

	db, err := sqlx.Connect("postgres", d.config.ConnectionString)
	if err != nil {
		return errors.Wrap(err, "failed to connect to postgres")
	}

	db.SetMaxOpenConns(d.config.MaxOpenConnections)
	db.SetMaxIdleConns(d.config.MaxIdleConnections)
	db.SetConnMaxLifetime(d.config.ConnectionLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), d.config.ConnectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return errors.Wrap(err, "failed to ping database")
	}

	d.db = db
	d.logger.Info("Successfully connected to database")
	return nil
}

// Close closes the connection pool.
func (d *Database) Close() error {
	if d.db != nil {
		d.logger.Info("Closing database connection")
		return d.db.Close()
	}
	return nil
}

// DB returns the underlying sqlx pool.
func (d *Database) DB() *sqlx.DB {
	return d.db
}

// Health pings the database with a short deadline.
func (d *Database) Health(ctx context.Context) error {
	if d.db == nil {
		return errors.New("database connection not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return d.db.PingContext(ctx)
}

// RunMigrations applies pending schema migrations.
func (d *Database) RunMigrations() error {
	d.logger.Info("Running database migrations", zap.String("path", d.config.MigrationPath))

	driver, err := postgres.WithInstance(d.db.DB, &postgres.Config{})
	if err != nil {
		return errors.Wrap(err, "failed to create migration driver")
	}

	m, err := migrate.NewWithDatabaseInstance(d.config.MigrationPath, "postgres", driver)
	if err != nil {
		return errors.Wrap(err, "failed to create migration instance")
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "failed to run migrations")
	}

	if err == migrate.ErrNoChange {
		d.logger.Info("No new migrations to apply")
	} else {
		d.logger.Info("Successfully applied database migrations")
	}

	return nil
}

// WithTransaction runs fn inside a transaction, rolling back on error or
// panic. Transitions that read before writing use this so the decision and
// the write share one scope.
func (d *Database) WithTransaction(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			d.logger.Error("Failed to roll back transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func maskConnectionString(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil || u.User == nil {
		return connStr
	}
	if _, has := u.User.Password(); has {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}
