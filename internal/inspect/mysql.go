package inspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pgschema/sqlschema/internal/logger"
	"github.com/pgschema/sqlschema/ir"
)

// MySQLInspector reads schemas from a MySQL database. The namespace is the
// database name.
type MySQLInspector struct {
	db *sql.DB
}

func NewMySQLInspector(db *sql.DB) *MySQLInspector {
	return &MySQLInspector{db: db}
}

func (i *MySQLInspector) Schema(ctx context.Context, namespace string) (ir.Schema, error) {
	catalog, err := i.Catalog(ctx, namespace)
	if err != nil {
		return ir.Schema{}, err
	}
	return catalog.Assemble(ir.MySQL)
}

const mysqlTablesQuery = `
SELECT TABLE_SCHEMA, TABLE_NAME
FROM information_schema.TABLES
WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
ORDER BY TABLE_NAME`

const mysqlColumnsQuery = `
SELECT TABLE_SCHEMA, TABLE_NAME, COLUMN_NAME, ORDINAL_POSITION, IS_NULLABLE,
       COLUMN_TYPE, DATA_TYPE, NUMERIC_PRECISION, NUMERIC_SCALE, COLUMN_KEY,
       COLUMN_DEFAULT, EXTRA, GENERATION_EXPRESSION
FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = ?
ORDER BY TABLE_NAME, ORDINAL_POSITION`

const mysqlForeignKeysQuery = `
SELECT k.TABLE_SCHEMA, k.TABLE_NAME, k.CONSTRAINT_NAME, k.COLUMN_NAME,
       k.REFERENCED_TABLE_SCHEMA, k.REFERENCED_TABLE_NAME, k.REFERENCED_COLUMN_NAME,
       r.DELETE_RULE, r.UPDATE_RULE
FROM information_schema.KEY_COLUMN_USAGE k
JOIN information_schema.REFERENTIAL_CONSTRAINTS r
  ON r.CONSTRAINT_SCHEMA = k.CONSTRAINT_SCHEMA AND r.CONSTRAINT_NAME = k.CONSTRAINT_NAME
WHERE k.TABLE_SCHEMA = ? AND k.REFERENCED_TABLE_NAME IS NOT NULL
ORDER BY k.TABLE_NAME, k.CONSTRAINT_NAME, k.ORDINAL_POSITION`

const mysqlIndexesQuery = `
SELECT TABLE_SCHEMA, TABLE_NAME, INDEX_NAME, NON_UNIQUE, INDEX_TYPE, COLUMN_NAME
FROM information_schema.STATISTICS
WHERE TABLE_SCHEMA = ? AND INDEX_NAME <> 'PRIMARY'
ORDER BY TABLE_NAME, INDEX_NAME, SEQ_IN_INDEX`

// Catalog reads information_schema for one database.
func (i *MySQLInspector) Catalog(ctx context.Context, namespace string) (Catalog, error) {
	catalog := Catalog{Namespace: namespace}

	err := queryEach(ctx, i.db, func(rows *sql.Rows) error {
		var row TableRow
		if err := rows.Scan(&row.Schema, &row.Name); err != nil {
			return err
		}
		catalog.Tables = append(catalog.Tables, row)
		return nil
	}, mysqlTablesQuery, namespace)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to list tables: %w", err)
	}

	err = queryEach(ctx, i.db, func(rows *sql.Rows) error {
		row, err := scanMySQLColumn(rows)
		if err != nil {
			return err
		}
		catalog.Columns = append(catalog.Columns, row)
		return nil
	}, mysqlColumnsQuery, namespace)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to read columns: %w", err)
	}

	foreignKeyNames := make(map[string]bool)
	err = queryEach(ctx, i.db, func(rows *sql.Rows) error {
		var row ForeignKeyRow
		if err := rows.Scan(&row.Schema, &row.Table, &row.Name, &row.Column,
			&row.ForeignSchema, &row.ForeignTable, &row.ForeignColumn, &row.OnDelete, &row.OnUpdate); err != nil {
			return err
		}
		foreignKeyNames[row.Table+"."+row.Name] = true
		catalog.ForeignKeys = append(catalog.ForeignKeys, row)
		return nil
	}, mysqlForeignKeysQuery, namespace)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to read foreign keys: %w", err)
	}

	var current *IndexRow
	err = queryEach(ctx, i.db, func(rows *sql.Rows) error {
		var (
			schema, table, name, kind, column string
			nonUnique                         int
		)
		if err := rows.Scan(&schema, &table, &name, &nonUnique, &kind, &column); err != nil {
			return err
		}
		if current == nil || current.Table != table || current.Name != name {
			catalog.Indexes = append(catalog.Indexes, IndexRow{
				Schema: schema,
				Table:  table,
				Name:   name,
				Unique: nonUnique == 0,
				Kind:   strings.ToLower(kind),
			})
			current = &catalog.Indexes[len(catalog.Indexes)-1]
		}
		current.Columns = append(current.Columns, column)
		return nil
	}, mysqlIndexesQuery, namespace)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to read indexes: %w", err)
	}

	// MySQL creates an index named after each foreign key, and names the index of
	// a single column UNIQUE constraint after the column.
	indexes := catalog.Indexes[:0]
	for _, idx := range catalog.Indexes {
		if foreignKeyNames[idx.Table+"."+idx.Name] {
			continue
		}
		idx.Constraint = idx.Unique && len(idx.Columns) == 1 && idx.Name == idx.Columns[0]
		indexes = append(indexes, idx)
	}
	catalog.Indexes = indexes

	logger.Get().Debug("Read MySQL catalog", "database", namespace, "tables", len(catalog.Tables))
	return catalog, nil
}

func scanMySQLColumn(rows *sql.Rows) (ColumnRow, error) {
	var (
		row                       ColumnRow
		columnType, dataType      string
		precision, scale          sql.NullInt32
		key, extra                string
		columnDefault, generation sql.NullString
	)
	if err := rows.Scan(&row.Schema, &row.Table, &row.Name, &row.Ordinal, &row.IsNullable,
		&columnType, &dataType, &precision, &scale, &key, &columnDefault, &extra, &generation); err != nil {
		return ColumnRow{}, err
	}

	row.DataType = columnType
	row.PrimaryKey = key == "PRI"
	if precision.Valid && scale.Valid && (dataType == "decimal" || dataType == "numeric") {
		row.DataType = dataType
		row.NumericPrecision = &precision.Int32
		row.NumericScale = &scale.Int32
	}

	extra = strings.ToUpper(extra)
	switch {
	case strings.Contains(extra, "AUTO_INCREMENT"):
		byDefault := "BY DEFAULT"
		row.IsIdentity = true
		row.GenerationTime = &byDefault
	case strings.Contains(extra, "STORED GENERATED"):
		always := "ALWAYS"
		row.GenerationTime = &always
		row.GenerationExpression = &generation.String
	}

	if columnDefault.Valid {
		value := mysqlDefault(columnDefault.String, dataType, extra)
		row.Default = &value
	}
	return row, nil
}

// mysqlDefault turns COLUMN_DEFAULT into SQL text. MySQL reports literal
// defaults unquoted and expression defaults with DEFAULT_GENERATED.
func mysqlDefault(value, dataType, extra string) string {
	if strings.Contains(extra, "DEFAULT_GENERATED") {
		return value
	}
	switch strings.ToLower(dataType) {
	case "tinyint", "smallint", "mediumint", "int", "bigint", "decimal", "numeric", "float", "double", "bit":
		return value
	}
	if strings.EqualFold(value, "CURRENT_TIMESTAMP") {
		return value
	}
	return ir.QuoteLiteral(ir.MySQL, value)
}
