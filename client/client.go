// Package client provides a programmatic API for declarative schema migrations.
// It exposes the dump and plan workflows of the command line tool.
package client

import (
	"context"
	"fmt"

	"github.com/pgschema/sqlschema/cmd/dump"
	planCmd "github.com/pgschema/sqlschema/cmd/plan"
	"github.com/pgschema/sqlschema/cmd/util"
	"github.com/pgschema/sqlschema/internal/diff"
	"github.com/pgschema/sqlschema/internal/plan"
	"github.com/pgschema/sqlschema/internal/source"
	"github.com/pgschema/sqlschema/ir"
)

// DatabaseConfig holds connection details for a database.
type DatabaseConfig struct {
	Dialect  ir.Dialect // Database engine (default: Postgres)
	Host     string     // Database server host
	Port     int        // Database server port (default: the dialect's standard port)
	Database string     // Database name, or the database file for SQLite
	User     string     // Database user
	Password string     // Database password (optional)
	DSN      string     // Full connection string, overriding the fields above
	Schema   string     // Namespace (default: public, or the database for MySQL)
}

// DumpOptions configures how schema dumping is performed.
type DumpOptions struct {
	DatabaseConfig
	Format string // sql, yaml or json (default: sql)
}

// PlanOptions configures how migration planning is performed.
type PlanOptions struct {
	DatabaseConfig
	File             string // Path to the desired state schema file
	AllowDestructive bool   // Permit dropping tables and columns
	Online           bool   // Rewrite PostgreSQL index and constraint creation for online execution
}

// Client provides the main interface for sqlschema operations.
type Client struct {
	// Default configuration that can be overridden by individual operations
	defaultDB  DatabaseConfig
	defaultApp string
}

// New creates a client with a default database configuration.
func New(dbConfig DatabaseConfig) *Client {
	return &Client{
		defaultDB:  dbConfig,
		defaultApp: "sqlschema",
	}
}

func (c *Client) connection(db DatabaseConfig) *util.ConnectionConfig {
	if db.Host == "" && db.DSN == "" && db.Database == "" {
		db = c.defaultDB
	}
	config := &util.ConnectionConfig{
		Dialect:         db.Dialect,
		Host:            db.Host,
		Port:            db.Port,
		Database:        db.Database,
		User:            db.User,
		Password:        db.Password,
		DSN:             db.DSN,
		ApplicationName: c.defaultApp,
	}
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Port == 0 {
		config.Port = util.DefaultPort(db.Dialect)
	}
	return config
}

func (c *Client) schema(db DatabaseConfig) string {
	if db.Schema != "" {
		return db.Schema
	}
	return c.defaultDB.Schema
}

// Dump inspects the database and returns its schema in the requested format.
func (c *Client) Dump(ctx context.Context, opts DumpOptions) (string, error) {
	return dump.ExecuteDump(ctx, &dump.DumpConfig{
		Connection: c.connection(opts.DatabaseConfig),
		Schema:     c.schema(opts.DatabaseConfig),
		Format:     opts.Format,
	})
}

// Plan compares the database with the desired state in opts.File.
func (c *Client) Plan(ctx context.Context, opts PlanOptions) (*plan.Plan, error) {
	if opts.File == "" {
		return nil, fmt.Errorf("a desired state file is required")
	}
	connection := c.connection(opts.DatabaseConfig)
	return planCmd.GeneratePlan(ctx, &planCmd.PlanConfig{
		Dialect:          connection.Dialect,
		File:             opts.File,
		Connection:       connection,
		Schema:           c.schema(opts.DatabaseConfig),
		AllowDestructive: opts.AllowDestructive,
		Online:           opts.Online,
	})
}

// Migrate computes the migration between two in-memory schemas.
func Migrate(current, desired Schema, opts Options) (*Migration, error) {
	return diff.Migrate(current, desired, opts)
}

// LoadSchemaFile reads a schema file: PostgreSQL DDL (.sql) or a YAML or
// JSON schema document whose types are read in dialect d.
func LoadSchemaFile(path string, d ir.Dialect) (Schema, error) {
	return source.LoadFile(path, d)
}
