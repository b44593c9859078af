package diff

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pgschema/sqlschema/ir"
)

var (
	ErrUnknownReference  = errors.New("unknown reference")
	ErrDependencyCycle   = errors.New("dependency cycle")
	ErrDestructiveChange = errors.New("destructive change rejected")
	ErrUnsupported       = errors.New("unsupported by dialect")
)

// UnknownReferenceError reports a foreign key or index in the desired schema
// that names a table or column the desired schema does not contain.
type UnknownReferenceError struct {
	Table   ir.TableRef
	Source  string
	Missing string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("table %s: %s references unknown %s", e.Table, e.Source, e.Missing)
}

func (e *UnknownReferenceError) Is(target error) bool {
	return target == ErrUnknownReference
}

// DependencyCycleError reports tables whose foreign keys form a cycle among the
// tables being created, altered or dropped.
type DependencyCycleError struct {
	Phase  string
	Tables []string
}

func (e *DependencyCycleError) Error() string {
	return fmt.Sprintf("foreign key cycle among tables to %s: %s", e.Phase, strings.Join(e.Tables, ", "))
}

func (e *DependencyCycleError) Is(target error) bool {
	return target == ErrDependencyCycle
}

// DestructiveChangeError lists every hazard that was not permitted by Options.AllowDestructive.
type DestructiveChangeError struct {
	Hazards []Hazard
}

func (e *DestructiveChangeError) Error() string {
	msgs := make([]string, len(e.Hazards))
	for i, h := range e.Hazards {
		msgs[i] = h.String()
	}
	return fmt.Sprintf("destructive changes require --allow-destructive: %s", strings.Join(msgs, "; "))
}

func (e *DestructiveChangeError) Is(target error) bool {
	return target == ErrDestructiveChange
}

// UnsupportedError reports a change the target dialect cannot express.
type UnsupportedError struct {
	Dialect ir.Dialect
	Object  string
	Feature string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %s is not supported by %s", e.Object, e.Feature, e.Dialect)
}

func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

// HazardKind classifies a destructive change.
type HazardKind string

const (
	HazardDropTable      HazardKind = "drop_table"
	HazardDropColumn     HazardKind = "drop_column"
	HazardRecreateColumn HazardKind = "recreate_column"
)

// Hazard is a change that loses data.
type Hazard struct {
	Kind   HazardKind  `json:"kind"`
	Table  ir.TableRef `json:"table"`
	Column string      `json:"column,omitempty"`
}

func (h Hazard) String() string {
	switch h.Kind {
	case HazardDropTable:
		return "drop table " + h.Table.String()
	case HazardDropColumn:
		return "drop column " + h.Table.String() + "." + h.Column
	case HazardRecreateColumn:
		return "recreate column " + h.Table.String() + "." + h.Column
	default:
		return string(h.Kind) + " " + h.Table.String()
	}
}
