package util

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pgschema/sqlschema/ir"
)

// GetEnvWithDefault returns the value of an environment variable or a default value if not set
func GetEnvWithDefault(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvIntWithDefault returns the value of an environment variable as int or a default value if not set
func GetEnvIntWithDefault(envVar string, defaultValue int) int {
	if value := os.Getenv(envVar); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// envNames are the client environment variables of one dialect.
type envNames struct {
	host, port, database, user, password string
}

var dialectEnv = map[ir.Dialect]envNames{
	ir.Postgres: {"PGHOST", "PGPORT", "PGDATABASE", "PGUSER", "PGPASSWORD"},
	ir.MySQL:    {"MYSQL_HOST", "MYSQL_TCP_PORT", "MYSQL_DATABASE", "MYSQL_USER", "MYSQL_PWD"},
}

// ConnectionFlags are the flags shared by every command that reads a live database.
type ConnectionFlags struct {
	Dialect  string
	Host     string
	Port     int
	DB       string
	User     string
	Password string
	DSN      string
}

// Register adds the connection flags to cmd.
func (f *ConnectionFlags) Register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Dialect, "dialect", "postgres", "Database dialect: postgres, mysql or sqlite")
	cmd.Flags().StringVar(&f.Host, "host", "localhost", "Database server host (env: PGHOST, MYSQL_HOST)")
	cmd.Flags().IntVar(&f.Port, "port", 0, "Database server port (default 5432 or 3306) (env: PGPORT, MYSQL_TCP_PORT)")
	cmd.Flags().StringVar(&f.DB, "db", "", "Database name, or the database file for sqlite (env: PGDATABASE, MYSQL_DATABASE)")
	cmd.Flags().StringVar(&f.User, "user", "", "Database user name (env: PGUSER, MYSQL_USER)")
	cmd.Flags().StringVar(&f.Password, "password", "", "Database password (env: PGPASSWORD, MYSQL_PWD)")
	cmd.Flags().StringVar(&f.DSN, "dsn", "", "Full connection string; overrides the individual connection flags")
}

// Reset restores the flag defaults. Used by tests that execute commands repeatedly.
func (f *ConnectionFlags) Reset() {
	*f = ConnectionFlags{Dialect: "postgres", Host: "localhost"}
}

// ParseDialect returns the dialect selected by --dialect.
func (f *ConnectionFlags) ParseDialect() (ir.Dialect, error) {
	return ir.ParseDialect(f.Dialect)
}

// Config resolves the flags into a connection configuration. Flags that were
// not set explicitly fall back to the dialect's client environment variables.
func (f *ConnectionFlags) Config(cmd *cobra.Command) (*ConnectionConfig, error) {
	d, err := f.ParseDialect()
	if err != nil {
		return nil, err
	}
	config := &ConnectionConfig{
		Dialect:         d,
		Host:            f.Host,
		Port:            f.Port,
		Database:        f.DB,
		User:            f.User,
		Password:        f.Password,
		DSN:             f.DSN,
		ApplicationName: "sqlschema",
	}

	if env, ok := dialectEnv[d]; ok {
		if value := GetEnvWithDefault(env.host, ""); value != "" && !cmd.Flags().Changed("host") {
			config.Host = value
		}
		if value := GetEnvIntWithDefault(env.port, 0); value != 0 && !cmd.Flags().Changed("port") {
			config.Port = value
		}
		if value := GetEnvWithDefault(env.database, ""); value != "" && !cmd.Flags().Changed("db") {
			config.Database = value
		}
		if value := GetEnvWithDefault(env.user, ""); value != "" && !cmd.Flags().Changed("user") {
			config.User = value
		}
		if config.Password == "" {
			config.Password = GetEnvWithDefault(env.password, "")
		}
	}
	if config.Port == 0 {
		config.Port = DefaultPort(d)
	}
	if d == ir.Postgres {
		config.SSLMode = "prefer"
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func validateConfig(config *ConnectionConfig) error {
	if config.DSN != "" {
		return nil
	}
	if config.Dialect == ir.SQLite {
		if config.Database == "" {
			return fmt.Errorf("database file is required for sqlite (use --db or --dsn flag)")
		}
		return nil
	}
	if config.Database == "" {
		return fmt.Errorf("database name is required (use --db flag or %s environment variable)", dialectEnv[config.Dialect].database)
	}
	if config.User == "" {
		return fmt.Errorf("database user is required (use --user flag or %s environment variable)", dialectEnv[config.Dialect].user)
	}
	return nil
}
