// Package qc is the attribute QC engine. It classifies the live fields of
// each workspace table, applies the standard checks (missing fields,
// DFIRM_ID and SOURCE_CIT consistency, unique ids, domains, NULL
// conventions and text hygiene) and then the table's catalog rules.
//
// A Runner validates the tables selected for a task, optionally in
// parallel, and returns findings per table in sorted table order:
//
//	runner := qc.NewRunner(ws, cat, qc.RunConfig{Task: task, Schema: "2021"})
//	result, err := runner.Run(ctx)
package qc
