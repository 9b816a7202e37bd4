// Package database provides the SQL store for travel times, route segments,
// and raw weather measurements. It supports SQLite (the default, matching a
// single-host deployment) and PostgreSQL, selected by connection string.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	// Database drivers registered with database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Sentinel errors surfaced to the HTTP layer for 404 mapping.
var (
	ErrStationNotFound = errors.New("station not found")
	ErrRouteNotFound   = errors.New("route not found")
)

// Client holds the connection to the backing database.
type Client struct {
	DB     *sql.DB // Exported so jobs can share the handle
	driver string
	dsn    string
	logger *zap.SugaredLogger
}

// NewClient creates a database client for the given connection string.
// postgres:// and postgresql:// URLs select PostgreSQL via pgx; anything
// else is treated as a SQLite database path.
func NewClient(connectionString string, logger *zap.SugaredLogger) *Client {
	driver := "sqlite"
	if strings.HasPrefix(connectionString, "postgres://") || strings.HasPrefix(connectionString, "postgresql://") {
		driver = "pgx"
	}
	return &Client{driver: driver, logger: logger, dsn: connectionString}
}

// Connect opens the database connection and verifies it with a ping.
func (c *Client) Connect() error {
	c.logger.Infof("connecting to %s database...", c.driver)

	db, err := sql.Open(c.driver, c.dsn)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("error connecting to database: %w", err)
	}

	if c.driver == "sqlite" {
		// Single writer; pollers and the API share this handle.
		db.SetMaxOpenConns(1)
	}

	c.DB = db
	c.logger.Info("database connection successful")
	return nil
}

// Close closes the underlying database handle.
func (c *Client) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

// bind rewrites ? placeholders to $N for the PostgreSQL driver. SQLite
// queries pass through untouched.
func (c *Client) bind(query string) string {
	if c.driver != "pgx" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
