package client_test

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/pgschema/sqlschema/client"
	"github.com/pgschema/sqlschema/ir"
)

func accounts() ir.Table {
	return ir.NewTable("accounts").AddColumn(ir.NewColumn("id", ir.Int64).AsPrimaryKey())
}

// ExampleMigrate computes the statements that add a column and a unique index.
func ExampleMigrate() {
	current := ir.NewSchema(accounts())
	desired := ir.NewSchema(
		accounts().
			AddColumn(ir.NewColumn("email", ir.Text).NotNull()).
			AddIndex(ir.NewIndex("accounts_email_idx", "email").AsUnique()),
	)

	m, err := client.Migrate(current, desired, client.Options{Dialect: client.Postgres})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Print(m.SQL())
	// Output:
	// ALTER TABLE "accounts" ADD COLUMN "email" TEXT NOT NULL;
	// CREATE UNIQUE INDEX "accounts_email_idx" ON "accounts" ("email");
}

// ExampleMigrate_destructive shows that dropping a table must be allowed explicitly.
func ExampleMigrate_destructive() {
	current := ir.NewSchema(accounts())

	_, err := client.Migrate(current, ir.Schema{}, client.Options{Dialect: client.MySQL})
	fmt.Println(errors.Is(err, client.ErrDestructiveChange))

	m, err := client.Migrate(current, ir.Schema{}, client.Options{Dialect: client.MySQL, AllowDestructive: true})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Print(m.SQL())
	fmt.Println(m.Hazards[0])
	// Output:
	// true
	// DROP TABLE `accounts`;
	// drop table accounts
}

// ExampleGeneratePlan compares a live database with a desired state file.
func ExampleGeneratePlan() {
	ctx := context.Background()

	dbConfig := client.DatabaseConfig{
		Dialect:  client.Postgres,
		Host:     "localhost",
		Port:     5432,
		Database: "myapp",
		User:     "postgres",
		Password: "password",
	}

	plan, err := client.GeneratePlan(ctx, dbConfig, "desired_schema.sql")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(plan.HumanColored(false))
}
