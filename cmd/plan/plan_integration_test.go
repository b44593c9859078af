package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pgschema/sqlschema/cmd/util"
	"github.com/pgschema/sqlschema/ir"
	"github.com/pgschema/sqlschema/testutil"
)

const integrationDesired = `CREATE TABLE users (
    id bigint GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    email text NOT NULL,
    created_at timestamp DEFAULT now()
);
CREATE UNIQUE INDEX users_email_idx ON users (email);
CREATE TABLE orders (
    id bigint PRIMARY KEY,
    user_id bigint NOT NULL REFERENCES users (id),
    total numeric(10,2) CHECK (total >= 0)
);
CREATE INDEX orders_user_idx ON orders (user_id);
`

// applyPlan executes every step of p against the container and re-plans,
// expecting the database to have converged on the desired state.
func applyPlan(t *testing.T, ci *testutil.ContainerInfo, config *PlanConfig) {
	t.Helper()
	p, err := GeneratePlan(t.Context(), config)
	if err != nil {
		t.Fatalf("GeneratePlan() failed: %v", err)
	}
	if len(p.Steps()) == 0 {
		t.Fatal("expected a non-empty plan")
	}
	for _, step := range p.Steps() {
		ci.Exec(t.Context(), t, step.SQL)
	}

	again, err := GeneratePlan(t.Context(), config)
	if err != nil {
		t.Fatalf("GeneratePlan() after apply failed: %v", err)
	}
	if sql := again.ToSQL(); sql != "" {
		t.Errorf("expected no changes after applying the plan, got:\n%s", sql)
	}
}

func TestPlanAgainstPostgres(t *testing.T) {
	ci := testutil.SetupPostgresContainer(t.Context(), t)
	ci.Exec(t.Context(), t,
		`CREATE TABLE users (id bigint PRIMARY KEY, name text)`,
		`CREATE TABLE orders (id bigint PRIMARY KEY, user_id bigint, total numeric(10,2))`,
		`INSERT INTO users (id, name) VALUES (1, 'ada')`,
		`INSERT INTO orders (id, user_id, total) VALUES (1, 1, 12.50)`,
	)

	dir := t.TempDir()
	desired := filepath.Join(dir, "schema.sql")
	if err := os.WriteFile(desired, []byte(integrationDesired), 0644); err != nil {
		t.Fatalf("Failed to write schema: %v", err)
	}

	connection := &util.ConnectionConfig{Dialect: ir.Postgres, DSN: ci.DSN}
	config := &PlanConfig{Dialect: ir.Postgres, File: desired, Connection: connection}

	// Dropping users.name and adding a NOT NULL email to a populated table.
	if _, err := GeneratePlan(t.Context(), config); err == nil {
		t.Fatal("expected the plan to be rejected without --allow-destructive")
	}

	ci.Exec(t.Context(), t, `DELETE FROM orders`, `DELETE FROM users`)
	config.AllowDestructive = true
	config.Online = true
	applyPlan(t, ci, config)
}

func TestPlanAgainstPostgresSchema(t *testing.T) {
	ci := testutil.SetupPostgresContainer(t.Context(), t)
	ci.Exec(t.Context(), t, `CREATE SCHEMA tenant`)

	dir := t.TempDir()
	desired := filepath.Join(dir, "schema.sql")
	if err := os.WriteFile(desired, []byte(integrationDesired), 0644); err != nil {
		t.Fatalf("Failed to write schema: %v", err)
	}

	applyPlan(t, ci, &PlanConfig{
		Dialect:    ir.Postgres,
		File:       desired,
		Schema:     "tenant",
		Connection: &util.ConnectionConfig{Dialect: ir.Postgres, DSN: ci.DSN},
	})
}
