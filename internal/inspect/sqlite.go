package inspect

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/pgschema/sqlschema/internal/logger"
	"github.com/pgschema/sqlschema/ir"
)

// SQLiteInspector reads schemas from a SQLite database through database/sql.
// The namespace selects an attached database; "" and "main" read the main one.
type SQLiteInspector struct {
	db *sql.DB
}

func NewSQLiteInspector(db *sql.DB) *SQLiteInspector {
	return &SQLiteInspector{db: db}
}

var autoincrement = regexp.MustCompile(`(?i)\bAUTOINCREMENT\b`)

func (i *SQLiteInspector) Schema(ctx context.Context, namespace string) (ir.Schema, error) {
	catalog, err := i.Catalog(ctx, namespace)
	if err != nil {
		return ir.Schema{}, err
	}
	return catalog.Assemble(ir.SQLite)
}

// Catalog reads sqlite_master and the table pragmas one table at a time.
func (i *SQLiteInspector) Catalog(ctx context.Context, namespace string) (Catalog, error) {
	database := namespace
	if database == "" {
		database = "main"
	}
	if database != "main" {
		namespace = database
	} else {
		namespace = ""
	}

	type master struct {
		name string
		sql  string
	}
	var tables []master
	err := queryEach(ctx, i.db, func(rows *sql.Rows) error {
		var m master
		var stmt sql.NullString
		if err := rows.Scan(&m.name, &stmt); err != nil {
			return err
		}
		m.sql = stmt.String
		tables = append(tables, m)
		return nil
	}, fmt.Sprintf(`SELECT name, sql FROM %s.sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%%'
		ORDER BY name`, ir.QuoteIdentifier(ir.SQLite, database)))
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to list tables: %w", err)
	}

	catalog := Catalog{Namespace: namespace}
	for _, t := range tables {
		catalog.Tables = append(catalog.Tables, TableRow{Schema: namespace, Name: t.name})

		columns, err := i.columns(ctx, database, namespace, t.name, autoincrement.MatchString(t.sql))
		if err != nil {
			return Catalog{}, fmt.Errorf("failed to read columns of %s: %w", t.name, err)
		}
		catalog.Columns = append(catalog.Columns, columns...)

		fks, err := i.foreignKeys(ctx, database, namespace, t.name)
		if err != nil {
			return Catalog{}, fmt.Errorf("failed to read foreign keys of %s: %w", t.name, err)
		}
		catalog.ForeignKeys = append(catalog.ForeignKeys, fks...)

		indexes, err := i.indexes(ctx, database, namespace, t.name)
		if err != nil {
			return Catalog{}, fmt.Errorf("failed to read indexes of %s: %w", t.name, err)
		}
		catalog.Indexes = append(catalog.Indexes, indexes...)
	}

	logger.Get().Debug("Read SQLite catalog", "database", database, "tables", len(tables))
	return catalog, nil
}

func (i *SQLiteInspector) columns(ctx context.Context, database, namespace, table string, autoinc bool) ([]ColumnRow, error) {
	var columns []ColumnRow
	pkCount := 0
	err := queryEach(ctx, i.db, func(rows *sql.Rows) error {
		var (
			cid, notNull, pk, hidden int32
			name, typ                string
			dflt                     sql.NullString
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk, &hidden); err != nil {
			return err
		}
		// hidden 1 marks virtual table columns
		if hidden == 1 {
			return nil
		}
		if strings.TrimSpace(typ) == "" {
			typ = "BLOB"
		}
		row := ColumnRow{
			Schema:     namespace,
			Table:      table,
			Name:       name,
			Ordinal:    cid + 1,
			IsNullable: "YES",
			DataType:   typ,
			PrimaryKey: pk > 0,
		}
		if notNull == 1 {
			row.IsNullable = "NO"
		}
		if dflt.Valid {
			row.Default = &dflt.String
		}
		if pk > 0 {
			pkCount++
		}
		columns = append(columns, row)
		return nil
	}, `SELECT cid, name, type, "notnull", dflt_value, pk, hidden FROM pragma_table_xinfo(?, ?) ORDER BY cid`, table, database)
	if err != nil {
		return nil, err
	}

	if autoinc && pkCount == 1 {
		always := "ALWAYS"
		for idx := range columns {
			if columns[idx].PrimaryKey && strings.EqualFold(columns[idx].DataType, "INTEGER") {
				columns[idx].IsIdentity = true
				columns[idx].GenerationTime = &always
			}
		}
	}
	return columns, nil
}

func (i *SQLiteInspector) foreignKeys(ctx context.Context, database, namespace, table string) ([]ForeignKeyRow, error) {
	var fks []ForeignKeyRow
	names := make(map[int32]string)
	err := queryEach(ctx, i.db, func(rows *sql.Rows) error {
		var (
			id, seq            int32
			target, from       string
			to                 sql.NullString
			onUpdate, onDelete string
		)
		if err := rows.Scan(&id, &seq, &target, &from, &to, &onUpdate, &onDelete); err != nil {
			return err
		}
		// SQLite does not keep constraint names; the default name groups the columns of one key.
		if _, ok := names[id]; !ok {
			names[id] = ir.DefaultConstraintName(table, []string{from}, ir.ForeignKey{})
		}
		fks = append(fks, ForeignKeyRow{
			Schema:        namespace,
			Table:         table,
			Name:          names[id],
			Column:        from,
			ForeignSchema: namespace,
			ForeignTable:  target,
			ForeignColumn: to.String,
			OnDelete:      onDelete,
			OnUpdate:      onUpdate,
		})
		return nil
	}, `SELECT id, seq, "table", "from", "to", on_update, on_delete FROM pragma_foreign_key_list(?, ?) ORDER BY id, seq`, table, database)
	if err != nil {
		return nil, err
	}

	// A reference without a column list targets the primary key.
	for idx, fk := range fks {
		if fk.ForeignColumn != "" {
			continue
		}
		var pk string
		err := i.db.QueryRowContext(ctx,
			`SELECT name FROM pragma_table_info(?, ?) WHERE pk = 1`, fk.ForeignTable, database).Scan(&pk)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve primary key of %s: %w", fk.ForeignTable, err)
		}
		fks[idx].ForeignColumn = pk
	}
	return fks, nil
}

func (i *SQLiteInspector) indexes(ctx context.Context, database, namespace, table string) ([]IndexRow, error) {
	var indexes []IndexRow
	err := queryEach(ctx, i.db, func(rows *sql.Rows) error {
		var (
			name, origin    string
			unique, partial int32
		)
		if err := rows.Scan(&name, &unique, &origin, &partial); err != nil {
			return err
		}
		if origin == "pk" || partial == 1 {
			return nil
		}
		indexes = append(indexes, IndexRow{
			Schema:     namespace,
			Table:      table,
			Name:       name,
			Unique:     unique == 1,
			Kind:       string(ir.IndexBTree),
			Constraint: origin == "u",
		})
		return nil
	}, `SELECT name, "unique", origin, partial FROM pragma_index_list(?, ?) ORDER BY name`, table, database)
	if err != nil {
		return nil, err
	}

	result := indexes[:0]
	for _, idx := range indexes {
		expression := false
		err := queryEach(ctx, i.db, func(rows *sql.Rows) error {
			var col sql.NullString
			if err := rows.Scan(&col); err != nil {
				return err
			}
			if !col.Valid {
				expression = true
				return nil
			}
			idx.Columns = append(idx.Columns, col.String)
			return nil
		}, `SELECT name FROM pragma_index_info(?, ?) ORDER BY seqno`, idx.Name, database)
		if err != nil {
			return nil, err
		}
		if expression {
			logger.Get().Debug("Skipping expression index", "table", table, "index", idx.Name)
			continue
		}
		result = append(result, idx)
	}
	return result, nil
}
