package plan

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pgschema/sqlschema/internal/color"
	"github.com/pgschema/sqlschema/internal/diff"
	"github.com/pgschema/sqlschema/internal/fingerprint"
	"github.com/pgschema/sqlschema/internal/version"
	"github.com/pgschema/sqlschema/ir"
)

// Plan is a computed migration together with the metadata used to present it.
type Plan struct {
	Migration *diff.Migration

	// TargetSchema is the namespace the plan was computed for.
	TargetSchema string

	CreatedAt time.Time

	AllowDestructive bool

	// Online rewrites PostgreSQL index and constraint creation into
	// non-blocking statements.
	Online bool

	// SourceFingerprint identifies the current schema the plan was computed from.
	SourceFingerprint *fingerprint.SchemaFingerprint

	// EnableTransaction is false when a step cannot run in a transaction
	// (CREATE INDEX CONCURRENTLY).
	EnableTransaction bool

	// steps holds the rendered statements of each operation, in order.
	steps [][]Step
}

// Options controls plan rendering.
type Options struct {
	AllowDestructive bool
	Online           bool
}

// PlanJSON is the structured JSON output format.
type PlanJSON struct {
	Version           string                         `json:"version"`
	SqlschemaVersion  string                         `json:"sqlschema_version"`
	CreatedAt         time.Time                      `json:"created_at"`
	Dialect           string                         `json:"dialect"`
	TargetSchema      string                         `json:"target_schema,omitempty"`
	SourceFingerprint *fingerprint.SchemaFingerprint `json:"source_fingerprint,omitempty"`
	Transaction       bool                           `json:"transaction"`
	Summary           PlanSummary                    `json:"summary"`
	Operations        []OperationJSON                `json:"operations"`
	Hazards           []string                       `json:"hazards,omitempty"`
}

// OperationJSON is one operation of the migration with its rendered steps.
type OperationJSON struct {
	Type    string   `json:"type"`
	Table   string   `json:"table"`
	Changes []string `json:"changes,omitempty"`
	Steps   []Step   `json:"steps"`
}

// PlanSummary provides counts of changes by type
type PlanSummary struct {
	Add     int                    `json:"add"`
	Change  int                    `json:"change"`
	Destroy int                    `json:"destroy"`
	Total   int                    `json:"total"`
	ByType  map[string]TypeSummary `json:"by_type"`
}

// TypeSummary provides counts for a specific object type
type TypeSummary struct {
	Add     int `json:"add"`
	Change  int `json:"change"`
	Destroy int `json:"destroy"`
}

// ObjectType is the kind of object a change applies to.
type ObjectType string

const (
	ObjectTypeTable      ObjectType = "tables"
	ObjectTypeColumn     ObjectType = "columns"
	ObjectTypeConstraint ObjectType = "constraints"
	ObjectTypeIndex      ObjectType = "indexes"
)

// getObjectOrder returns the display order for object types
func getObjectOrder() []ObjectType {
	return []ObjectType{
		ObjectTypeTable,
		ObjectTypeColumn,
		ObjectTypeConstraint,
		ObjectTypeIndex,
	}
}

// objectChange is a single change to one database object.
type objectChange struct {
	Type    ObjectType
	Action  string
	Address string
}

// New creates a plan for m. targetSchema is informational.
func New(m *diff.Migration, opts Options, targetSchema string) *Plan {
	p := &Plan{
		Migration:         m,
		TargetSchema:      targetSchema,
		CreatedAt:         time.Now(),
		AllowDestructive:  opts.AllowDestructive,
		Online:            opts.Online,
		EnableTransaction: true,
		steps:             make([][]Step, len(m.Operations)),
	}
	for i, op := range m.Operations {
		p.steps[i] = operationSteps(op, m.Dialect, opts.Online)
		for _, s := range p.steps[i] {
			if !s.CanRunInTransaction {
				p.EnableTransaction = false
			}
		}
	}
	return p
}

// Dialect returns the dialect the plan renders for.
func (p *Plan) Dialect() ir.Dialect {
	return p.Migration.Dialect
}

// Steps returns every statement of the plan in execution order.
func (p *Plan) Steps() []Step {
	var out []Step
	for _, steps := range p.steps {
		out = append(out, steps...)
	}
	return out
}

// ToSQL returns only the SQL statements without any additional formatting
func (p *Plan) ToSQL() string {
	steps := p.Steps()
	if len(steps) == 0 {
		return ""
	}
	var b strings.Builder
	for _, s := range steps {
		b.WriteString(s.SQL)
		b.WriteString("\n")
	}
	return b.String()
}

// ToJSON returns the plan as indented JSON.
func (p *Plan) ToJSON() (string, error) {
	data, err := json.MarshalIndent(p.toStructuredJSON(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal plan to JSON: %w", err)
	}
	return string(data), nil
}

// HumanColored returns a Terraform-style summary of the plan followed by the
// DDL to be executed.
func (p *Plan) HumanColored(enableColor bool) string {
	c := color.New(enableColor)
	var out strings.Builder

	changes := p.objectChanges()
	if len(changes) == 0 {
		out.WriteString("No changes detected.\n")
		return out.String()
	}
	summary := summarize(changes)

	out.WriteString(c.FormatPlanHeader(summary.Add, summary.Change, summary.Destroy) + "\n\n")

	out.WriteString(c.Bold("Summary by type:") + "\n")
	for _, objType := range getObjectOrder() {
		if ts, ok := summary.ByType[string(objType)]; ok {
			out.WriteString(c.FormatSummaryLine(string(objType), ts.Add, ts.Change, ts.Destroy) + "\n")
		}
	}
	out.WriteString("\n")

	for _, objType := range getObjectOrder() {
		if _, ok := summary.ByType[string(objType)]; ok {
			writeDetailedChanges(&out, objType, changes, c)
		}
	}

	if len(p.Migration.Hazards) > 0 {
		out.WriteString(c.Warning("Destructive changes:") + "\n")
		for _, h := range p.Migration.Hazards {
			fmt.Fprintf(&out, "  %s %s\n", c.Destroy("!"), h)
		}
		out.WriteString("\n")
	}

	fmt.Fprintf(&out, "Transaction: %t\n\n", p.EnableTransaction)

	out.WriteString(c.Bold("DDL to be executed:") + "\n")
	out.WriteString(strings.Repeat("-", 50) + "\n\n")
	out.WriteString(p.ToSQL())
	return out.String()
}

func writeDetailedChanges(out *strings.Builder, objType ObjectType, changes []objectChange, c *color.Color) {
	name := string(objType)
	fmt.Fprintf(out, "%s:\n", c.Bold(strings.ToUpper(name[:1])+name[1:]))

	var matching []objectChange
	for _, ch := range changes {
		if ch.Type == objType {
			matching = append(matching, ch)
		}
	}
	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].Address < matching[j].Address
	})
	for _, ch := range matching {
		fmt.Fprintf(out, "  %s %s\n", c.PlanSymbol(ch.Action), ch.Address)
	}
	out.WriteString("\n")
}

func (p *Plan) toStructuredJSON() *PlanJSON {
	planJSON := &PlanJSON{
		Version:           version.PlanFormat(),
		SqlschemaVersion:  version.Version(),
		CreatedAt:         p.CreatedAt.Truncate(time.Second),
		Dialect:           p.Migration.Dialect.String(),
		TargetSchema:      p.TargetSchema,
		SourceFingerprint: p.SourceFingerprint,
		Transaction:       p.EnableTransaction,
		Summary:           summarize(p.objectChanges()),
		Operations:        []OperationJSON{},
	}
	for i, op := range p.Migration.Operations {
		opJSON := OperationJSON{
			Type:  string(op.Kind()),
			Table: op.Target().String(),
			Steps: p.steps[i],
		}
		if alter, ok := op.(diff.AlterTable); ok {
			for _, change := range alter.Changes {
				opJSON.Changes = append(opJSON.Changes, change.Describe())
			}
		}
		planJSON.Operations = append(planJSON.Operations, opJSON)
	}
	for _, h := range p.Migration.Hazards {
		planJSON.Hazards = append(planJSON.Hazards, h.String())
	}
	return planJSON
}

// objectChanges flattens the operations into per-object changes.
func (p *Plan) objectChanges() []objectChange {
	var changes []objectChange
	add := func(t ObjectType, action, address string) {
		changes = append(changes, objectChange{Type: t, Action: action, Address: address})
	}

	for _, op := range p.Migration.Operations {
		table := op.Target().String()
		switch o := op.(type) {
		case diff.CreateTable:
			add(ObjectTypeTable, "create", table)
			for _, idx := range o.Table.Indexes {
				add(ObjectTypeIndex, "create", table+"."+idx.Name)
			}
		case diff.DropTable:
			add(ObjectTypeTable, "delete", table)
		case diff.CreateIndex:
			add(ObjectTypeIndex, "create", table+"."+o.Index.Name)
		case diff.DropIndex:
			add(ObjectTypeIndex, "delete", table+"."+o.Index.Name)
		case diff.AlterTable:
			add(ObjectTypeTable, "update", table)
			altered := make(map[string]bool)
			for _, change := range o.Changes {
				switch c := change.(type) {
				case diff.AddColumn:
					add(ObjectTypeColumn, "create", table+"."+c.Column.Name)
				case diff.DropColumn:
					add(ObjectTypeColumn, "delete", table+"."+c.Name)
				case diff.AlterColumnType, diff.AlterColumnNullability, diff.AlterColumnDefault:
					name := alteredColumn(c)
					if !altered[name] {
						altered[name] = true
						add(ObjectTypeColumn, "update", table+"."+name)
					}
				case diff.AddConstraint:
					add(ObjectTypeConstraint, "create", table+"."+constraintName(o.Table, c.Def))
				case diff.DropConstraint:
					add(ObjectTypeConstraint, "delete", table+"."+constraintName(o.Table, c.Def))
				}
			}
		}
	}
	return changes
}

func alteredColumn(change diff.AlterAction) string {
	switch c := change.(type) {
	case diff.AlterColumnType:
		return c.Column.Name
	case diff.AlterColumnNullability:
		return c.Column.Name
	case diff.AlterColumnDefault:
		return c.Column.Name
	}
	return ""
}

func constraintName(table ir.TableRef, def ir.ConstraintDef) string {
	if name := def.EffectiveName(); name != "" {
		return name
	}
	return ir.DefaultConstraintName(table.Name, def.Columns, def.Constraint)
}

func summarize(changes []objectChange) PlanSummary {
	summary := PlanSummary{ByType: make(map[string]TypeSummary)}
	for _, ch := range changes {
		ts := summary.ByType[string(ch.Type)]
		switch ch.Action {
		case "create":
			ts.Add++
			summary.Add++
		case "update":
			ts.Change++
			summary.Change++
		case "delete":
			ts.Destroy++
			summary.Destroy++
		}
		summary.ByType[string(ch.Type)] = ts
	}
	summary.Total = summary.Add + summary.Change + summary.Destroy
	return summary
}
