package qc

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/t968rs/FEMA-Prod-updates/pkg/adapter"
	"github.com/t968rs/FEMA-Prod-updates/pkg/catalog"
	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

// TableStatus says how far a table got through validation.
type TableStatus string

// Table statuses.
const (
	// StatusValidated means every check ran.
	StatusValidated TableStatus = "validated"
	// StatusEmpty means the table has no rows to consider.
	StatusEmpty TableStatus = "empty"
	// StatusUncataloged means the catalog does not describe the table.
	StatusUncataloged TableStatus = "uncataloged"
)

// TableResult is the outcome of validating one table.
type TableResult struct {
	Table  string
	Rows   int
	Status TableStatus
	// Findings are the report entries in check order.
	Findings []core.Finding
	// Advisories are run notes about the table that are not validation
	// findings, such as a table outside the task.
	Advisories []core.Finding
	Duration   time.Duration
}

// Result is the outcome of a run.
type Result struct {
	Config     RunConfig
	Production bool
	// Tables holds one entry per selected workspace table, sorted by name.
	Tables        []TableResult
	TotalFindings int
	Duration      time.Duration
}

// Counts tallies every finding of the run by severity.
func (r *Result) Counts() map[core.Severity]int {
	counts := make(map[core.Severity]int)
	for _, t := range r.Tables {
		for s, n := range core.CountBySeverity(t.Findings) {
			counts[s] += n
		}
	}
	return counts
}

// Observer is notified as tables are validated. Calls may come from
// several goroutines.
type Observer interface {
	TableStarted(table string)
	TableFinished(result TableResult)
}

// Observers fans notifications out to several observers in order.
type Observers []Observer

// TableStarted notifies every observer.
func (o Observers) TableStarted(table string) {
	for _, obs := range o {
		obs.TableStarted(table)
	}
}

// TableFinished notifies every observer.
func (o Observers) TableFinished(result TableResult) {
	for _, obs := range o {
		obs.TableFinished(result)
	}
}

// Runner validates the workspace tables selected by a RunConfig.
type Runner struct {
	ws       adapter.Adapter
	cat      *catalog.Catalog
	cfg      RunConfig
	logger   *slog.Logger
	observer Observer
	registry *Registry
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithObserver registers a progress observer.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// WithRegistry replaces the catalog-built validator registry.
func WithRegistry(reg *Registry) Option {
	return func(r *Runner) { r.registry = reg }
}

// NewRunner creates a runner over an open workspace.
func NewRunner(ws adapter.Adapter, cat *catalog.Catalog, cfg RunConfig, opts ...Option) *Runner {
	r := &Runner{ws: ws, cat: cat, cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// Run validates every selected table. Findings never fail a run; invalid
// parameters, an unusable S_Submittal_Info and storage faults do.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	cfg := r.cfg.WithDefaults()
	if err := cfg.Validate(r.cat); err != nil {
		return nil, err
	}
	task, err := r.cat.Task(cfg.Task)
	if err != nil {
		return nil, err
	}
	taskTables, err := r.cat.TablesForTask(cfg.Task)
	if err != nil {
		return nil, err
	}

	registry := r.registry
	if registry == nil {
		if registry, err = NewRegistry(r.cat, cfg.Schema); err != nil {
			return nil, fmt.Errorf("failed to compile catalog rules: %w", err)
		}
	}

	cache := newTableCache(r.ws, r.logger)
	cache.adjust = func(table string, fields []core.Field) {
		if v, ok := registry.Get(table); ok {
			AdjustFields(fields, v.Descriptor())
		}
	}

	requested := cfg.Tables
	if len(requested) == 0 {
		requested = taskTables
	}
	selected, err := selectTables(ctx, cache, requested, r.logger)
	if err != nil {
		return nil, err
	}

	base := TableContext{
		Mode:       cfg.Mode,
		Production: task.Production,
		Catalog:    r.cat,
		Lookup:     cache,
		Logger:     r.logger,
	}
	if err := loadReferences(ctx, cache, &base, r.logger); err != nil {
		return nil, err
	}

	inTask := make(map[string]bool, len(taskTables))
	for _, t := range taskTables {
		inTask[strings.ToLower(t)] = true
	}

	r.logger.Info("starting QC run", "task", cfg.Task, "schema", cfg.Schema, "tables", len(selected), "workers", cfg.Workers)

	results := make([]TableResult, len(selected))
	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, name := range selected {
		g.Go(func() error {
			if r.observer != nil {
				r.observer.TableStarted(name)
			}
			res, err := r.validateTable(gctx, cache, registry, base, name, inTask[strings.ToLower(name)])
			if err != nil {
				return err
			}
			results[i] = res
			total.Add(int64(len(res.Findings)))
			if r.observer != nil {
				r.observer.TableFinished(res)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Config:        cfg,
		Production:    task.Production,
		Tables:        results,
		TotalFindings: int(total.Load()),
		Duration:      time.Since(start),
	}
	r.logger.Info("QC run finished", "tables", len(results), "findings", res.TotalFindings, "duration", res.Duration)
	return res, nil
}

// selectTables resolves the requested names against the workspace and
// returns the ones present, sorted and without duplicates.
func selectTables(ctx context.Context, cache *tableCache, requested []string, logger *slog.Logger) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, t := range requested {
		name, ok, err := cache.Resolve(ctx, strings.TrimSpace(t))
		if err != nil {
			return nil, err
		}
		if !ok {
			logger.Debug("table not in workspace", "table", t)
			continue
		}
		if key := strings.ToLower(name); !seen[key] {
			seen[key] = true
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out, nil
}

// loadReferences reads the submittal DFIRM_IDs and the citation list.
func loadReferences(ctx context.Context, cache *tableCache, tc *TableContext, logger *slog.Logger) error {
	sub, err := cache.Dataset(ctx, SubmittalTable)
	if err != nil {
		return err
	}
	switch {
	case sub == nil:
		logger.Warn("S_Submittal_Info not found, DFIRM_ID check skipped")
	case !sub.Has(dfirmIDField):
		return ErrNoCanonicalID
	default:
		if ids := sub.Distinct(dfirmIDField); len(ids) > 0 {
			tc.DFIRMIDs = make(map[string]bool, len(ids))
			for _, id := range ids {
				tc.DFIRMIDs[id] = true
			}
		} else {
			logger.Warn("S_Submittal_Info has no DFIRM_ID value, DFIRM_ID check skipped")
		}
	}

	cit, err := cache.Dataset(ctx, CitationTable)
	if err != nil {
		return err
	}
	tc.Citations = make(map[string]bool)
	for _, v := range cit.Column(sourceCitField) {
		if v != nil {
			tc.Citations[core.Text(v)] = true
		}
	}
	return nil
}

func (r *Runner) validateTable(ctx context.Context, cache *tableCache, registry *Registry, base TableContext, name string, inTask bool) (TableResult, error) {
	start := time.Now()
	res := TableResult{Table: name, Status: StatusValidated}

	n, err := r.ws.RowCount(ctx, name)
	if err != nil {
		return res, err
	}
	res.Rows = int(n)
	if n == 0 {
		res.Status = StatusEmpty
		r.logger.Info("no rows considered", "table", name)
		res.Duration = time.Since(start)
		return res, nil
	}

	if !inTask {
		res.Advisories = append(res.Advisories, advisory(name+" contains data but is not applicable for the chosen MIP task."))
	}
	v, ok := registry.Get(name)
	if !ok {
		res.Status = StatusUncataloged
		res.Advisories = append(res.Advisories, advisory(name+" contains data but is not described by the schema catalog, so it was not validated."))
		res.Duration = time.Since(start)
		return res, nil
	}
	for _, a := range res.Advisories {
		r.logger.Warn(a.Message, "table", name)
	}

	r.logger.Debug("checking table", "table", name, "rows", n)
	ds, err := cache.Dataset(ctx, name)
	if err != nil {
		return res, err
	}
	tc := base
	tc.Dataset = ds
	findings, err := Validate(ctx, v, &tc)
	if err != nil {
		return res, err
	}
	res.Findings = findings
	res.Duration = time.Since(start)
	r.logger.Debug("table checked", "table", name, "findings", len(findings), "duration", res.Duration)
	return res, nil
}

func advisory(msg string) core.Finding {
	return core.Finding{Message: msg, Severity: core.SeverityWarning, Rule: "advisory"}
}
