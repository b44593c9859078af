package source

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/pgschema/sqlschema/internal/diff"
	"github.com/pgschema/sqlschema/internal/logger"
	"github.com/pgschema/sqlschema/internal/normalize"
	"github.com/pgschema/sqlschema/ir"
)

var numberLiteral = regexp.MustCompile(`^-?\d+(?:\.\d+)?$`)

// serialTypes maps the serial pseudo-types to their integer type. Serial
// columns are modelled as identity columns.
var serialTypes = map[string]ir.Type{
	"smallserial": ir.Int16,
	"serial2":     ir.Int16,
	"serial":      ir.Int32,
	"serial4":     ir.Int32,
	"bigserial":   ir.Int64,
	"serial8":     ir.Int64,
}

// ParseSQL parses PostgreSQL DDL into a schema. CREATE TABLE, CREATE INDEX and
// ALTER TABLE ... ADD statements contribute to the schema; other statements
// are skipped. Unqualified tables have an empty namespace; use
// ir.Schema.NameSchema to place them.
func ParseSQL(sql string) (ir.Schema, error) {
	statements, err := pg_query.SplitWithParser(sql, true)
	if err != nil {
		return ir.Schema{}, fmt.Errorf("failed to split SQL: %w", err)
	}

	p := &sqlParser{tables: make(map[string]*ir.Table)}
	for _, stmt := range statements {
		if stmt == "" {
			continue
		}
		result, err := pg_query.Parse(stmt)
		if err != nil {
			return ir.Schema{}, fmt.Errorf("pg_query parse error: %w. Statement: %q", err, stmt)
		}
		for _, raw := range result.Stmts {
			if err := p.statement(raw.Stmt); err != nil {
				return ir.Schema{}, err
			}
		}
	}
	return p.finish()
}

type sqlParser struct {
	tables map[string]*ir.Table
	order  []string
}

func (p *sqlParser) statement(node *pg_query.Node) error {
	switch n := node.Node.(type) {
	case *pg_query.Node_CreateStmt:
		return p.createTable(n.CreateStmt)
	case *pg_query.Node_IndexStmt:
		return p.createIndex(n.IndexStmt)
	case *pg_query.Node_AlterTableStmt:
		return p.alterTable(n.AlterTableStmt)
	default:
		logger.Get().Debug("Skipping statement", "type", fmt.Sprintf("%T", n))
		return nil
	}
}

func (p *sqlParser) table(rv *pg_query.RangeVar) (*ir.Table, error) {
	ref := ir.TableRef{Schema: rv.Schemaname, Name: rv.Relname}
	t, ok := p.tables[ref.String()]
	if !ok {
		return nil, fmt.Errorf("table %s is not defined; CREATE TABLE must come first", ref)
	}
	return t, nil
}

func (p *sqlParser) createTable(stmt *pg_query.CreateStmt) error {
	if stmt.Relation == nil {
		return fmt.Errorf("CREATE TABLE without a table name")
	}
	if len(stmt.InhRelations) > 0 || stmt.Partbound != nil || stmt.OfTypename != nil {
		return &diff.UnsupportedError{Dialect: ir.Postgres, Object: "table " + stmt.Relation.Relname, Feature: "inherited, partition and typed tables"}
	}
	t := ir.NewTable(stmt.Relation.Relname).InSchema(stmt.Relation.Schemaname)
	if _, ok := p.tables[t.Key()]; ok {
		return fmt.Errorf("table %s is defined twice", t.Key())
	}
	p.tables[t.Key()] = &t
	p.order = append(p.order, t.Key())

	var constraints []*pg_query.Constraint
	for _, elt := range stmt.TableElts {
		switch e := elt.Node.(type) {
		case *pg_query.Node_ColumnDef:
			if err := p.addColumn(&t, e.ColumnDef); err != nil {
				return err
			}
		case *pg_query.Node_Constraint:
			constraints = append(constraints, e.Constraint)
		default:
			return &diff.UnsupportedError{Dialect: ir.Postgres, Object: "table " + t.Key(), Feature: fmt.Sprintf("table element %T", e)}
		}
	}
	// Table constraints may name columns declared after them.
	for _, cons := range constraints {
		if err := p.tableConstraint(&t, cons); err != nil {
			return err
		}
	}
	return nil
}

func (p *sqlParser) addColumn(t *ir.Table, def *pg_query.ColumnDef) error {
	if _, ok := t.FindColumn(def.Colname); ok {
		return fmt.Errorf("table %s: column %s is defined twice", t.Key(), def.Colname)
	}
	typ, serial, err := parseTypeName(def.TypeName)
	if err != nil {
		return fmt.Errorf("table %s column %s: %w", t.Key(), def.Colname, err)
	}
	col := ir.NewColumn(def.Colname, typ)
	if serial {
		col = col.NotNull().GeneratedAs(ir.Identity(ir.ByDefault))
	}
	*t = t.AddColumn(col)
	i := len(t.Columns) - 1

	for _, node := range def.Constraints {
		cons := node.GetConstraint()
		if cons == nil {
			continue
		}
		if err := p.columnConstraint(t, i, cons); err != nil {
			return fmt.Errorf("table %s column %s: %w", t.Key(), def.Colname, err)
		}
	}
	return nil
}

func (p *sqlParser) columnConstraint(t *ir.Table, i int, cons *pg_query.Constraint) error {
	col := &t.Columns[i]
	switch cons.Contype {
	case pg_query.ConstrType_CONSTR_NOTNULL:
		col.Nullable = false
	case pg_query.ConstrType_CONSTR_NULL:
		col.Nullable = true
	case pg_query.ConstrType_CONSTR_DEFAULT:
		e, err := defaultExpr(cons.RawExpr)
		if err != nil {
			return err
		}
		col.Default = e
	case pg_query.ConstrType_CONSTR_IDENTITY:
		col.Generated = ir.Identity(generatedTime(cons.GeneratedWhen))
		col.Nullable = false
	case pg_query.ConstrType_CONSTR_GENERATED:
		text, err := normalize.Node(cons.RawExpr)
		if err != nil {
			return fmt.Errorf("failed to deparse generated expression: %w", err)
		}
		col.Generated = ir.Stored(ir.Raw(text))
	case pg_query.ConstrType_CONSTR_PRIMARY:
		col.PrimaryKey = true
		col.Nullable = false
	case pg_query.ConstrType_CONSTR_UNIQUE:
		p.setConstraint(t, i, ir.Unique{Name: cons.Conname})
	case pg_query.ConstrType_CONSTR_CHECK:
		check, err := checkConstraint(cons)
		if err != nil {
			return err
		}
		p.setConstraint(t, i, check)
	case pg_query.ConstrType_CONSTR_FOREIGN:
		p.setConstraint(t, i, foreignKey(t, cons))
	case pg_query.ConstrType_CONSTR_ATTR_DEFERRABLE, pg_query.ConstrType_CONSTR_ATTR_NOT_DEFERRABLE,
		pg_query.ConstrType_CONSTR_ATTR_DEFERRED, pg_query.ConstrType_CONSTR_ATTR_IMMEDIATE:
		logger.Get().Debug("Ignoring constraint timing", "table", t.Key(), "column", col.Name)
	default:
		return &diff.UnsupportedError{Dialect: ir.Postgres, Object: "column " + col.Name, Feature: cons.Contype.String()}
	}
	return nil
}

func (p *sqlParser) tableConstraint(t *ir.Table, cons *pg_query.Constraint) error {
	object := "table " + t.Key()
	if cons.Conname != "" {
		object += " constraint " + cons.Conname
	}

	switch cons.Contype {
	case pg_query.ConstrType_CONSTR_PRIMARY:
		for _, name := range stringList(cons.Keys) {
			i, err := columnIndex(t, name, "primary key")
			if err != nil {
				return err
			}
			t.Columns[i].PrimaryKey = true
			t.Columns[i].Nullable = false
		}
	case pg_query.ConstrType_CONSTR_UNIQUE:
		keys := stringList(cons.Keys)
		if len(keys) == 1 {
			i, err := columnIndex(t, keys[0], "unique constraint")
			if err != nil {
				return err
			}
			p.setConstraint(t, i, ir.Unique{Name: cons.Conname})
			return nil
		}
		for _, name := range keys {
			if _, err := columnIndex(t, name, "unique constraint"); err != nil {
				return err
			}
		}
		name := cons.Conname
		if name == "" {
			name = ir.DefaultConstraintName(t.Name, keys, ir.Unique{})
		}
		*t = t.AddIndex(ir.NewIndex(name, keys...).AsUnique())
	case pg_query.ConstrType_CONSTR_FOREIGN:
		keys := stringList(cons.FkAttrs)
		if len(keys) != 1 || len(cons.PkAttrs) > 1 {
			return &diff.UnsupportedError{Dialect: ir.Postgres, Object: object, Feature: "multi-column foreign keys"}
		}
		i, err := columnIndex(t, keys[0], "foreign key")
		if err != nil {
			return err
		}
		p.setConstraint(t, i, foreignKey(t, cons))
	case pg_query.ConstrType_CONSTR_CHECK:
		cols := referencedColumns(cons.RawExpr)
		if len(cols) != 1 {
			return &diff.UnsupportedError{Dialect: ir.Postgres, Object: object, Feature: "check constraints over zero or several columns"}
		}
		i, err := columnIndex(t, cols[0], "check constraint")
		if err != nil {
			return err
		}
		check, err := checkConstraint(cons)
		if err != nil {
			return err
		}
		p.setConstraint(t, i, check)
	default:
		return &diff.UnsupportedError{Dialect: ir.Postgres, Object: object, Feature: cons.Contype.String()}
	}
	return nil
}

// setConstraint places con on column i, clearing a name that equals the one
// PostgreSQL would pick. A column holds one constraint: a unique constraint
// that collides with another constraint becomes a unique index instead.
func (p *sqlParser) setConstraint(t *ir.Table, i int, con ir.Constraint) {
	col := &t.Columns[i]
	con = withoutDefaultName(t.Name, col.Name, con)

	existing := col.Constraint
	switch {
	case existing == nil:
		col.Constraint = con
		return
	case isUnique(con):
		*t = t.AddIndex(uniqueIndex(t.Name, col.Name, con.(ir.Unique)))
		return
	case isUnique(existing):
		col.Constraint = con
		*t = t.AddIndex(uniqueIndex(t.Name, col.Name, existing.(ir.Unique)))
		return
	}
	logger.Get().Warn("Column already has a constraint, skipping",
		"table", t.Key(),
		"column", col.Name,
		"kept", existing.Key(t.Schema),
		"skipped", con.Key(t.Schema))
}

func (p *sqlParser) createIndex(stmt *pg_query.IndexStmt) error {
	t, err := p.table(stmt.Relation)
	if err != nil {
		return err
	}
	object := "index " + stmt.Idxname + " on " + t.Key()
	if stmt.Idxname == "" {
		return fmt.Errorf("index on %s has no name", t.Key())
	}
	if stmt.WhereClause != nil {
		return &diff.UnsupportedError{Dialect: ir.Postgres, Object: object, Feature: "partial indexes"}
	}

	var columns []string
	for _, param := range stmt.IndexParams {
		elem := param.GetIndexElem()
		if elem == nil || elem.Name == "" {
			return &diff.UnsupportedError{Dialect: ir.Postgres, Object: object, Feature: "expression indexes"}
		}
		if _, err := columnIndex(t, elem.Name, "index "+stmt.Idxname); err != nil {
			return err
		}
		columns = append(columns, elem.Name)
	}

	idx := ir.NewIndex(stmt.Idxname, columns...).Using(ir.ParseIndexKind(stmt.AccessMethod))
	idx.Unique = stmt.Unique
	*t = t.AddIndex(idx)
	return nil
}

func (p *sqlParser) alterTable(stmt *pg_query.AlterTableStmt) error {
	if stmt.Objtype != pg_query.ObjectType_OBJECT_TABLE {
		return nil
	}
	t, err := p.table(stmt.Relation)
	if err != nil {
		return err
	}

	for _, node := range stmt.Cmds {
		cmd := node.GetAlterTableCmd()
		if cmd == nil {
			continue
		}
		switch cmd.Subtype {
		case pg_query.AlterTableType_AT_AddColumn:
			def := cmd.GetDef().GetColumnDef()
			if def == nil {
				return fmt.Errorf("ALTER TABLE %s ADD COLUMN without a definition", t.Key())
			}
			if err := p.addColumn(t, def); err != nil {
				return err
			}
		case pg_query.AlterTableType_AT_AddConstraint:
			cons := cmd.GetDef().GetConstraint()
			if cons == nil {
				return fmt.Errorf("ALTER TABLE %s ADD CONSTRAINT without a definition", t.Key())
			}
			if err := p.tableConstraint(t, cons); err != nil {
				return err
			}
		case pg_query.AlterTableType_AT_SetNotNull, pg_query.AlterTableType_AT_DropNotNull:
			i, err := columnIndex(t, cmd.Name, "ALTER COLUMN")
			if err != nil {
				return err
			}
			t.Columns[i].Nullable = cmd.Subtype == pg_query.AlterTableType_AT_DropNotNull
		case pg_query.AlterTableType_AT_ColumnDefault:
			i, err := columnIndex(t, cmd.Name, "ALTER COLUMN")
			if err != nil {
				return err
			}
			e, err := defaultExpr(cmd.Def)
			if err != nil {
				return err
			}
			t.Columns[i].Default = e
		default:
			logger.Get().Debug("Skipping ALTER TABLE command", "table", t.Key(), "subtype", cmd.Subtype.String())
		}
	}
	return nil
}

// finish resolves foreign keys that reference the primary key implicitly and
// returns the tables in definition order.
func (p *sqlParser) finish() (ir.Schema, error) {
	schema := ir.Schema{Tables: make([]ir.Table, 0, len(p.order))}
	for _, key := range p.order {
		t := p.tables[key]
		for i, col := range t.Columns {
			fk, ok := col.Constraint.(ir.ForeignKey)
			if !ok || len(fk.Columns) > 0 {
				continue
			}
			target, ok := p.tables[ir.TableRef{Schema: fk.ResolvedSchema(t.Schema), Name: fk.Table}.String()]
			if !ok {
				return ir.Schema{}, &diff.UnknownReferenceError{Table: t.Ref(), Source: "foreign key on " + col.Name, Missing: "table " + fk.Table}
			}
			pk := target.PrimaryKeyColumns()
			if len(pk) != 1 {
				return ir.Schema{}, &diff.UnknownReferenceError{Table: t.Ref(), Source: "foreign key on " + col.Name, Missing: "single-column primary key of " + target.Key()}
			}
			fk.Columns = pk
			t.Columns[i].Constraint = fk
		}
		schema.Tables = append(schema.Tables, *t)
	}
	logger.Get().Debug("Parsed SQL schema", "tables", len(schema.Tables))
	return schema, nil
}

func foreignKey(t *ir.Table, cons *pg_query.Constraint) ir.ForeignKey {
	fk := ir.ForeignKey{
		Name:     cons.Conname,
		Table:    cons.Pktable.GetRelname(),
		Columns:  stringList(cons.PkAttrs),
		OnDelete: ir.ParseReferentialAction(cons.FkDelAction),
		OnUpdate: ir.ParseReferentialAction(cons.FkUpdAction),
	}
	if s := cons.Pktable.GetSchemaname(); s != "" && s != t.Schema {
		fk.Schema = s
	}
	return fk
}

func checkConstraint(cons *pg_query.Constraint) (ir.Check, error) {
	text, err := normalize.Node(cons.RawExpr)
	if err != nil {
		return ir.Check{}, fmt.Errorf("failed to deparse check expression: %w", err)
	}
	return ir.Check{Name: cons.Conname, Expr: ir.Raw(text)}, nil
}

func withoutDefaultName(table, column string, con ir.Constraint) ir.Constraint {
	if con.ConstraintName() != ir.DefaultConstraintName(table, []string{column}, con) {
		return con
	}
	switch c := con.(type) {
	case ir.ForeignKey:
		c.Name = ""
		return c
	case ir.Unique:
		c.Name = ""
		return c
	case ir.Check:
		c.Name = ""
		return c
	}
	return con
}

func isUnique(con ir.Constraint) bool {
	_, ok := con.(ir.Unique)
	return ok
}

func uniqueIndex(table, column string, u ir.Unique) ir.Index {
	name := u.Name
	if name == "" {
		name = ir.DefaultConstraintName(table, []string{column}, u)
	}
	return ir.NewIndex(name, column).AsUnique()
}

func columnIndex(t *ir.Table, name, source string) (int, error) {
	for i, col := range t.Columns {
		if col.Name == name {
			return i, nil
		}
	}
	return 0, &diff.UnknownReferenceError{Table: t.Ref(), Source: source, Missing: "column " + name}
}

func generatedTime(when string) ir.GeneratedTime {
	if when == "d" {
		return ir.ByDefault
	}
	return ir.Always
}

func stringList(nodes []*pg_query.Node) []string {
	var out []string
	for _, n := range nodes {
		if s := n.GetString_(); s != nil {
			out = append(out, s.Sval)
		}
	}
	return out
}

// parseTypeName converts a parsed type name. It reports whether the name was
// one of the serial pseudo-types.
func parseTypeName(tn *pg_query.TypeName) (ir.Type, bool, error) {
	if tn == nil {
		return ir.Type{}, false, fmt.Errorf("column has no type")
	}
	names := stringList(tn.Names)
	if len(names) > 1 && names[0] == "pg_catalog" {
		names = names[1:]
	}
	name := strings.Join(names, ".")

	if t, ok := serialTypes[strings.ToLower(name)]; ok && len(tn.ArrayBounds) == 0 {
		return t, true, nil
	}

	var mods []string
	for _, m := range tn.Typmods {
		if v := m.GetAConst().GetIval(); v != nil {
			mods = append(mods, strconv.Itoa(int(v.Ival)))
		}
	}
	if len(mods) > 0 && name != "interval" {
		name += "(" + strings.Join(mods, ",") + ")"
	}
	name += strings.Repeat("[]", len(tn.ArrayBounds))

	t, err := ir.ParseType(ir.Postgres, name)
	if err != nil && len(names) > 1 {
		// schema-qualified user-defined type
		return ir.Other(name), false, nil
	}
	return t, false, err
}

// defaultExpr converts a DEFAULT expression. Literals map to literal
// expressions; anything else is kept as deparsed SQL.
func defaultExpr(node *pg_query.Node) (ir.Expr, error) {
	if node == nil {
		return nil, nil
	}
	if c := node.GetAConst(); c != nil {
		if e, ok := constant(c, 0); ok {
			return e, nil
		}
	}
	if tc := node.GetTypeCast(); tc != nil {
		if c := tc.Arg.GetAConst(); c != nil {
			typ, _, err := parseTypeName(tc.TypeName)
			if err == nil {
				if e, ok := constant(c, typ.Kind); ok {
					return e, nil
				}
			}
		}
	}
	text, err := normalize.Node(node)
	if err != nil {
		return nil, fmt.Errorf("failed to deparse default expression: %w", err)
	}
	return ir.Raw(text), nil
}

// constant converts a literal, optionally cast to a type of the given kind.
// A zero kind means the literal is not cast.
func constant(c *pg_query.A_Const, kind ir.TypeKind) (ir.Expr, bool) {
	if c.Isnull {
		return ir.NullLit{}, true
	}
	switch v := c.Val.(type) {
	case *pg_query.A_Const_Ival:
		return ir.IntLit(v.Ival.Ival), true
	case *pg_query.A_Const_Fval:
		return ir.Raw(v.Fval.Fval), true
	case *pg_query.A_Const_Boolval:
		return ir.BoolLit(v.Boolval.Boolval), true
	case *pg_query.A_Const_Sval:
		switch kind {
		case 0, ir.KindText, ir.KindOther:
			return ir.StringLit(v.Sval.Sval), true
		case ir.KindBool:
			if b, err := strconv.ParseBool(v.Sval.Sval); err == nil {
				return ir.BoolLit(b), true
			}
		case ir.KindInt16, ir.KindInt32, ir.KindInt64, ir.KindNumeric, ir.KindFloat32, ir.KindFloat64:
			if numberLiteral.MatchString(v.Sval.Sval) {
				return ir.Raw(v.Sval.Sval), true
			}
		}
	}
	return nil, false
}

// referencedColumns returns the distinct unqualified column names in an expression.
func referencedColumns(node *pg_query.Node) []string {
	seen := make(map[string]bool)
	var out []string
	var walk func(*pg_query.Node)
	walk = func(n *pg_query.Node) {
		if n == nil {
			return
		}
		switch e := n.Node.(type) {
		case *pg_query.Node_ColumnRef:
			fields := e.ColumnRef.Fields
			if len(fields) == 1 {
				if s := fields[0].GetString_(); s != nil && !seen[s.Sval] {
					seen[s.Sval] = true
					out = append(out, s.Sval)
				}
			}
		case *pg_query.Node_AExpr:
			walk(e.AExpr.Lexpr)
			walk(e.AExpr.Rexpr)
		case *pg_query.Node_BoolExpr:
			for _, arg := range e.BoolExpr.Args {
				walk(arg)
			}
		case *pg_query.Node_FuncCall:
			for _, arg := range e.FuncCall.Args {
				walk(arg)
			}
		case *pg_query.Node_TypeCast:
			walk(e.TypeCast.Arg)
		case *pg_query.Node_NullTest:
			walk(e.NullTest.Arg)
		case *pg_query.Node_List:
			for _, item := range e.List.Items {
				walk(item)
			}
		case *pg_query.Node_AArrayExpr:
			for _, item := range e.AArrayExpr.Elements {
				walk(item)
			}
		case *pg_query.Node_CoalesceExpr:
			for _, arg := range e.CoalesceExpr.Args {
				walk(arg)
			}
		}
	}
	walk(node)
	return out
}
