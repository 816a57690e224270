// Package rules compiles the declarative per-table rules of the schema
// catalog into executable checks.
//
// A rule is authored as a catalog.RuleSpec. Its kind selects a compiler
// from the kind registry; conditions are compiled into row predicates once
// per table and schema year. Row kinds (populated_if, assert, forbid, ...)
// evaluate every record; table kinds (unique, reference, ...) look at whole
// columns and may read other tables through a Lookup.
package rules
