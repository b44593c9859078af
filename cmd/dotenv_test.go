package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pgschema/sqlschema/cmd/util"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create .env file: %v", err)
	}
	return path
}

func TestDotenvLoading(t *testing.T) {
	t.Run("LoadEnvFile", func(t *testing.T) {
		t.Setenv("PGPASSWORD", "")
		os.Unsetenv("PGPASSWORD")

		if err := godotenv.Load(writeEnvFile(t, "PGPASSWORD=test_password_123\n")); err != nil {
			t.Fatalf("Failed to load .env file: %v", err)
		}
		if password := os.Getenv("PGPASSWORD"); password != "test_password_123" {
			t.Errorf("Expected PGPASSWORD='test_password_123', got '%s'", password)
		}
	})

	t.Run("MissingEnvFile", func(t *testing.T) {
		if err := godotenv.Load(filepath.Join(t.TempDir(), ".env")); err == nil {
			t.Error("Expected error when loading non-existent .env file, but got nil")
		}
	})

	t.Run("EnvVarPriority", func(t *testing.T) {
		t.Setenv("PGPASSWORD", "env_password")

		if err := godotenv.Load(writeEnvFile(t, "PGPASSWORD=dotenv_password\n")); err != nil {
			t.Fatalf("Failed to load .env file: %v", err)
		}
		if password := os.Getenv("PGPASSWORD"); password != "env_password" {
			t.Errorf("Expected PGPASSWORD='env_password' (existing env var should take precedence), got '%s'", password)
		}
	})
}

func TestDotenvFeedsConnectionFlags(t *testing.T) {
	for _, name := range []string{"MYSQL_HOST", "MYSQL_TCP_PORT", "MYSQL_DATABASE", "MYSQL_USER", "MYSQL_PWD"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	env := `MYSQL_HOST=db.example.com
MYSQL_TCP_PORT=3307
MYSQL_DATABASE=shop
MYSQL_USER=app
MYSQL_PWD=secret
`
	if err := godotenv.Load(writeEnvFile(t, env)); err != nil {
		t.Fatalf("Failed to load .env file: %v", err)
	}

	var flags util.ConnectionFlags
	cmd := &cobra.Command{Use: "test"}
	flags.Register(cmd)
	if err := cmd.ParseFlags([]string{"--dialect", "mysql"}); err != nil {
		t.Fatalf("ParseFlags() failed: %v", err)
	}

	config, err := flags.Config(cmd)
	if err != nil {
		t.Fatalf("Config() failed: %v", err)
	}
	if config.Host != "db.example.com" || config.Port != 3307 || config.Database != "shop" ||
		config.User != "app" || config.Password != "secret" {
		t.Errorf("unexpected config: %+v", config)
	}
	if ns := util.DefaultNamespace(config); ns != "shop" {
		t.Errorf("DefaultNamespace() = %q; want shop", ns)
	}
}
