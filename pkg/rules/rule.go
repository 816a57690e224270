package rules

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/t968rs/FEMA-Prod-updates/internal/starlark"
	"github.com/t968rs/FEMA-Prod-updates/pkg/catalog"
	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

// Lookup gives table rules read access to the rest of the workspace.
type Lookup interface {
	// Dataset returns the named table, or nil when it does not exist.
	Dataset(ctx context.Context, table string) (*core.Dataset, error)
	// Tables lists the workspace tables.
	Tables(ctx context.Context) ([]string, error)
}

// Env is everything a rule sees while checking one table.
type Env struct {
	Table      *core.Dataset
	Descriptor *catalog.Descriptor
	Catalog    *catalog.Catalog
	Lookup     Lookup
	// Production is true for tasks whose cross-table reference values are
	// authoritative.
	Production bool
	Logger     *slog.Logger

	threads *starlark.ThreadPool
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

func (e *Env) pool() *starlark.ThreadPool {
	if e.threads == nil {
		e.threads = starlark.NewThreadPool(1)
	}
	return e.threads
}

// Row is one record of the table under validation.
type Row struct {
	ds *core.Dataset
	i  int
}

// Get returns the value of field, or nil when the table lacks it.
func (r Row) Get(field string) any {
	return r.ds.Value(r.i, field)
}

// Field returns the live metadata of field.
func (r Row) Field(name string) (core.Field, bool) {
	return r.ds.Field(name)
}

// ID returns the record id as report text.
func (r Row) ID(idField string) string {
	if idField == "" {
		return ""
	}
	return strings.TrimSpace(core.Text(r.Get(idField)))
}

// Rule is a compiled catalog rule.
type Rule interface {
	Kind() string
	// Index is the rule's position in the table's rule list.
	Index() int
	// Fields lists the fields of the validated table the rule reads.
	Fields() []string
	// Spec returns the authored rule.
	Spec() catalog.RuleSpec
	// Check evaluates the rule and returns its findings in report order.
	Check(ctx context.Context, env *Env) ([]core.Finding, error)
}

// base carries what every kind shares.
type base struct {
	spec   catalog.RuleSpec
	index  int
	when   predicate
	fields []string
}

func (b *base) Kind() string           { return b.spec.Kind }
func (b *base) Index() int             { return b.index }
func (b *base) Fields() []string       { return b.fields }
func (b *base) Spec() catalog.RuleSpec { return b.spec }

func (b *base) finding(id, message string, row *Row) core.Finding {
	if row != nil {
		message = expand(message, *row)
	}
	return core.Finding{ID: id, Message: message, Severity: SeverityOf(message), Rule: b.spec.Kind}
}

// eachRow evaluates violated on every row passing the when guard and
// returns one finding per violation.
func (b *base) eachRow(env *Env, message string, violated func(Row) bool) []core.Finding {
	var out []core.Finding
	for i := range env.Table.Rows {
		row := Row{ds: env.Table, i: i}
		if b.when != nil && !b.when(row) {
			continue
		}
		if violated(row) {
			out = append(out, b.finding(row.ID(env.Descriptor.ID), message, &row))
		}
	}
	return out
}

// SeverityOf classifies a catalog message: a "WARNING:" prefix marks a
// warning, anything else is an error.
func SeverityOf(message string) core.Severity {
	if strings.HasPrefix(strings.TrimSpace(message), "WARNING:") {
		return core.SeverityWarning
	}
	return core.SeverityError
}

var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expand replaces {FIELD} placeholders with the row's values. Unknown
// names are left as written.
func expand(message string, row Row) string {
	if !strings.Contains(message, "{") {
		return message
	}
	return placeholder.ReplaceAllStringFunc(message, func(m string) string {
		name := m[1 : len(m)-1]
		if _, ok := row.Field(name); !ok {
			return m
		}
		return core.Display(row.Get(name))
	})
}
