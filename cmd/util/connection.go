package util

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"

	"github.com/pgschema/sqlschema/internal/inspect"
	"github.com/pgschema/sqlschema/internal/logger"
	"github.com/pgschema/sqlschema/ir"
)

// ConnectionConfig holds database connection parameters
type ConnectionConfig struct {
	Dialect         ir.Dialect
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	ApplicationName string
	// DSN overrides the individual fields. For SQLite it is the database file.
	DSN string
}

// Connection is an open database of one dialect.
type Connection struct {
	Dialect ir.Dialect
	pool    *pgxpool.Pool
	db      *sql.DB
}

// Connect opens and pings the database described by config.
func Connect(ctx context.Context, config *ConnectionConfig) (*Connection, error) {
	log := logger.Get()

	log.Debug("Attempting database connection",
		"dialect", config.Dialect,
		"host", config.Host,
		"port", config.Port,
		"database", config.Database,
		"user", config.User,
		"sslmode", config.SSLMode,
		"application_name", config.ApplicationName,
	)

	conn := &Connection{Dialect: config.Dialect}
	switch config.Dialect {
	case ir.Postgres:
		poolConfig, err := pgxpool.ParseConfig(buildDSN(config))
		if err != nil {
			return nil, fmt.Errorf("invalid connection parameters: %w", err)
		}
		if logger.IsDebug() {
			poolConfig.ConnConfig.Tracer = &queryTracer{}
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			log.Debug("Database ping failed", "error", err)
			pool.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		conn.pool = pool
	case ir.MySQL, ir.SQLite:
		driver := "mysql"
		if config.Dialect == ir.SQLite {
			driver = "sqlite"
		}
		db, err := sql.Open(driver, buildDSN(config))
		if err != nil {
			log.Debug("Database connection failed", "error", err)
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			log.Debug("Database ping failed", "error", err)
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		conn.db = db
	default:
		return nil, fmt.Errorf("unsupported dialect %s", config.Dialect)
	}

	log.Debug("Database connection established successfully")
	return conn, nil
}

// Close releases the connection.
func (c *Connection) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
	if c.db != nil {
		c.db.Close()
	}
}

// Inspector returns the schema inspector for the connection's dialect.
func (c *Connection) Inspector() inspect.Inspector {
	switch c.Dialect {
	case ir.MySQL:
		return inspect.NewMySQLInspector(c.db)
	case ir.SQLite:
		return inspect.NewSQLiteInspector(c.db)
	default:
		return inspect.NewPostgresInspector(c.pool)
	}
}

// PostgresInspector returns the PostgreSQL inspector, or nil for other dialects.
func (c *Connection) PostgresInspector() *inspect.PostgresInspector {
	if c.pool == nil {
		return nil
	}
	return inspect.NewPostgresInspector(c.pool)
}

// ServerVersion reports the database server version string.
func (c *Connection) ServerVersion(ctx context.Context) (string, error) {
	var version string
	var err error
	switch c.Dialect {
	case ir.Postgres:
		err = c.pool.QueryRow(ctx, "SHOW server_version").Scan(&version)
	case ir.MySQL:
		err = c.db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version)
	case ir.SQLite:
		err = c.db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query server version: %w", err)
	}
	return version, nil
}

// DefaultNamespace returns the namespace inspected when none is given:
// "public" for PostgreSQL, the connected database for MySQL and the main
// database for SQLite.
func DefaultNamespace(config *ConnectionConfig) string {
	switch config.Dialect {
	case ir.MySQL:
		return config.Database
	case ir.SQLite:
		return ""
	default:
		return "public"
	}
}

// DefaultPort returns the standard port of the dialect's server.
func DefaultPort(d ir.Dialect) int {
	switch d {
	case ir.MySQL:
		return 3306
	case ir.Postgres:
		return 5432
	default:
		return 0
	}
}

// buildDSN constructs the driver connection string from connection parameters
func buildDSN(config *ConnectionConfig) string {
	if config.DSN != "" {
		return config.DSN
	}

	switch config.Dialect {
	case ir.MySQL:
		c := mysql.NewConfig()
		c.User = config.User
		c.Passwd = config.Password
		c.DBName = config.Database
		c.Net = "tcp"
		c.Addr = config.Host + ":" + strconv.Itoa(config.Port)
		return c.FormatDSN()
	case ir.SQLite:
		return config.Database
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("host=%s", config.Host))
	parts = append(parts, fmt.Sprintf("port=%d", config.Port))
	parts = append(parts, fmt.Sprintf("dbname=%s", config.Database))
	parts = append(parts, fmt.Sprintf("user=%s", config.User))

	if config.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", config.Password))
	}

	if config.SSLMode != "" {
		parts = append(parts, fmt.Sprintf("sslmode=%s", config.SSLMode))
	}

	if config.ApplicationName != "" {
		parts = append(parts, fmt.Sprintf("application_name=%s", config.ApplicationName))
	}

	return strings.Join(parts, " ")
}
