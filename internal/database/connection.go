package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Config holds database configuration
type Config struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxConnLife  time.Duration
}

// DefaultConfig returns pool settings suited to a single engine process.
func DefaultConfig(url string) Config {
	return Config{
		URL:          url,
		MaxOpenConns: 25,
		MaxIdleConns: 5,
		MaxConnLife:  5 * time.Minute,
	}
}

// Open creates a PostgreSQL connection pool and verifies it with a ping.
func Open(ctx context.Context, config Config, logger *logrus.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", config.URL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.MaxConnLife)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"max_open_conns": config.MaxOpenConns,
		"max_idle_conns": config.MaxIdleConns,
	}).Info("Database connection established")

	return db, nil
}
