package util

import (
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/pgschema/sqlschema/ir"
)

func TestGetEnvWithDefault(t *testing.T) {
	// Test with existing env var
	os.Setenv("TEST_STRING", "test-value")
	if GetEnvWithDefault("TEST_STRING", "default") != "test-value" {
		t.Errorf("Expected GetEnvWithDefault to return 'test-value', got '%s'", GetEnvWithDefault("TEST_STRING", "default"))
	}

	// Test with missing env var
	os.Unsetenv("MISSING_VAR")
	if GetEnvWithDefault("MISSING_VAR", "default") != "default" {
		t.Errorf("Expected GetEnvWithDefault to return 'default', got '%s'", GetEnvWithDefault("MISSING_VAR", "default"))
	}

	// Test with empty env var (should return default)
	os.Setenv("EMPTY_VAR", "")
	if GetEnvWithDefault("EMPTY_VAR", "default") != "default" {
		t.Errorf("Expected GetEnvWithDefault to return 'default' for empty var, got '%s'", GetEnvWithDefault("EMPTY_VAR", "default"))
	}

	// Cleanup
	os.Unsetenv("TEST_STRING")
	os.Unsetenv("EMPTY_VAR")
}

func TestGetEnvIntWithDefault(t *testing.T) {
	// Test with valid int env var
	os.Setenv("TEST_INT", "12345")
	if GetEnvIntWithDefault("TEST_INT", 0) != 12345 {
		t.Errorf("Expected GetEnvIntWithDefault to return 12345, got %d", GetEnvIntWithDefault("TEST_INT", 0))
	}

	// Test with invalid int value (should return default)
	os.Setenv("TEST_INVALID_INT", "not-a-number")
	if GetEnvIntWithDefault("TEST_INVALID_INT", 999) != 999 {
		t.Errorf("Expected GetEnvIntWithDefault to return default 999, got %d", GetEnvIntWithDefault("TEST_INVALID_INT", 999))
	}

	// Test with missing env var
	os.Unsetenv("MISSING_INT_VAR")
	if GetEnvIntWithDefault("MISSING_INT_VAR", 777) != 777 {
		t.Errorf("Expected GetEnvIntWithDefault to return default 777, got %d", GetEnvIntWithDefault("MISSING_INT_VAR", 777))
	}

	// Test with empty env var (should return default)
	os.Setenv("EMPTY_INT_VAR", "")
	if GetEnvIntWithDefault("EMPTY_INT_VAR", 888) != 888 {
		t.Errorf("Expected GetEnvIntWithDefault to return default 888 for empty var, got %d", GetEnvIntWithDefault("EMPTY_INT_VAR", 888))
	}

	// Cleanup
	os.Unsetenv("TEST_INT")
	os.Unsetenv("TEST_INVALID_INT")
	os.Unsetenv("EMPTY_INT_VAR")
}

func newFlagCommand(t *testing.T, args ...string) (*cobra.Command, *ConnectionFlags) {
	t.Helper()
	var flags ConnectionFlags
	cmd := &cobra.Command{Use: "test"}
	flags.Register(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags() failed: %v", err)
	}
	return cmd, &flags
}

func TestConnectionFlagsConfig(t *testing.T) {
	t.Setenv("PGDATABASE", "env-db")
	t.Setenv("PGUSER", "env-user")
	t.Setenv("PGHOST", "env-host")
	t.Setenv("PGPORT", "1234")
	t.Setenv("PGPASSWORD", "env-secret")

	cmd, flags := newFlagCommand(t, "--user", "flag-user")
	config, err := flags.Config(cmd)
	if err != nil {
		t.Fatalf("Config() failed: %v", err)
	}

	expected := &ConnectionConfig{
		Dialect:         ir.Postgres,
		Host:            "env-host",
		Port:            1234,
		Database:        "env-db",
		User:            "flag-user",
		Password:        "env-secret",
		SSLMode:         "prefer",
		ApplicationName: "sqlschema",
	}
	if diff := cmp.Diff(expected, config); diff != "" {
		t.Errorf("Config() mismatch (-want +got):\n%s", diff)
	}
	if dsn := buildDSN(config); dsn != "host=env-host port=1234 dbname=env-db user=flag-user password=env-secret sslmode=prefer application_name=sqlschema" {
		t.Errorf("buildDSN() = %q", dsn)
	}
}

func TestConnectionFlagsConfigMySQL(t *testing.T) {
	cmd, flags := newFlagCommand(t, "--dialect", "mysql", "--db", "shop", "--user", "root", "--password", "pw")
	config, err := flags.Config(cmd)
	if err != nil {
		t.Fatalf("Config() failed: %v", err)
	}
	if config.Port != 3306 {
		t.Errorf("Port = %d; want 3306", config.Port)
	}
	if got := DefaultNamespace(config); got != "shop" {
		t.Errorf("DefaultNamespace() = %q; want shop", got)
	}
	if dsn := buildDSN(config); dsn != "root:pw@tcp(localhost:3306)/shop" {
		t.Errorf("buildDSN() = %q", dsn)
	}
}

func TestConnectionFlagsConfigErrors(t *testing.T) {
	for _, name := range []string{"PGDATABASE", "PGUSER", "PGHOST", "PGPORT"} {
		t.Setenv(name, "")
	}

	tests := []struct {
		name    string
		args    []string
		message string
	}{
		{"missing database", []string{"--user", "u"}, "database name is required"},
		{"missing user", []string{"--db", "d"}, "database user is required"},
		{"missing sqlite file", []string{"--dialect", "sqlite"}, "database file is required"},
		{"unknown dialect", []string{"--dialect", "oracle"}, "oracle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, flags := newFlagCommand(t, tt.args...)
			_, err := flags.Config(cmd)
			if err == nil || !strings.Contains(err.Error(), tt.message) {
				t.Errorf("Config() error = %v; want it to mention %q", err, tt.message)
			}
		})
	}

	cmd, flags := newFlagCommand(t, "--dialect", "sqlite", "--dsn", "file:test.db")
	if _, err := flags.Config(cmd); err != nil {
		t.Errorf("Config() with --dsn failed: %v", err)
	}
}
