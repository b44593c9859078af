package client

import (
	"context"
	"fmt"
	"os"
)

// DumpSchema is a convenience function to dump a database schema as DDL.
func DumpSchema(ctx context.Context, dbConfig DatabaseConfig) (string, error) {
	return New(dbConfig).Dump(ctx, DumpOptions{})
}

// DumpSchemaToFile is a convenience function to dump a database schema to a file.
func DumpSchemaToFile(ctx context.Context, dbConfig DatabaseConfig, filePath string) error {
	out, err := DumpSchema(ctx, dbConfig)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filePath, []byte(out), 0644); err != nil {
		return fmt.Errorf("failed to write dump to %s: %w", filePath, err)
	}
	return nil
}

// GeneratePlan is a convenience function to generate a migration plan from a desired state file.
func GeneratePlan(ctx context.Context, dbConfig DatabaseConfig, desiredStateFile string) (*Plan, error) {
	return New(dbConfig).Plan(ctx, PlanOptions{File: desiredStateFile})
}

// MigrateFiles computes the migration from the schema in currentFile to the
// schema in desiredFile, rendered in dialect d.
func MigrateFiles(currentFile, desiredFile string, d Dialect, allowDestructive bool) (*Migration, error) {
	current, err := LoadSchemaFile(currentFile, d)
	if err != nil {
		return nil, fmt.Errorf("failed to load current state: %w", err)
	}
	desired, err := LoadSchemaFile(desiredFile, d)
	if err != nil {
		return nil, fmt.Errorf("failed to load desired state: %w", err)
	}
	return Migrate(current, desired, Options{AllowDestructive: allowDestructive, Dialect: d})
}
