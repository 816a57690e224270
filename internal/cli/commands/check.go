package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/t968rs/FEMA-Prod-updates/internal/cli/config"
	"github.com/t968rs/FEMA-Prod-updates/internal/cli/output"
	"github.com/t968rs/FEMA-Prod-updates/internal/cli/progress"
	"github.com/t968rs/FEMA-Prod-updates/internal/metrics"
	"github.com/t968rs/FEMA-Prod-updates/internal/publish"
	"github.com/t968rs/FEMA-Prod-updates/internal/state"
	"github.com/t968rs/FEMA-Prod-updates/pkg/catalog"
	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
	"github.com/t968rs/FEMA-Prod-updates/pkg/qc"
	"github.com/t968rs/FEMA-Prod-updates/pkg/report"
)

// maxListed caps the findings printed per table; reports carry all of them.
const maxListed = 20

// CheckOptions holds options for the check command. Task, schema, tables,
// mode, formats, output directory and workers are config keys and are
// read from the loaded configuration.
type CheckOptions struct {
	Severity string // Minimum severity to report: error, warning, info, hint
	Strict   bool   // Fail on warnings too
	NoFail   bool   // Never fail because of findings
	Watch    bool   // Re-run when the workspace changes
	Publish  bool   // Upload reports after the run
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run quality control on a workspace",
		Long: `Validate the workspace tables of a FIRM database delivery.

Each table is checked against the data dictionary for the selected schema
year: missing fields, domain values, NULL conventions, identifiers,
whitespace and the table's business rules. Findings are written to the
selected report formats and summarized on screen.

The command exits with status 1 when errors are found (or any finding
with --strict), unless --no-fail is set.`,
		Example: `  # Check the tables of a task
  dfirmqc check --task "Hydraulics Data Capture" --workspace study.gpkg

  # Check two tables against the 2020 schema, textual domains
  dfirmqc check --tables S_Levee,S_XS --schema 2020 --mode textual

  # Write a spreadsheet and a parquet file, upload them afterwards
  dfirmqc check --format sheet,parquet --out reports --publish

  # Re-run whenever the workspace is saved
  dfirmqc check --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, opts)
		},
	}

	cmd.Flags().String("workspace", "", "Workspace path or DSN")
	cmd.Flags().String("task", "", "Workflow task that selects the tables")
	cmd.Flags().String("schema", "", "Schema year (default: catalog default)")
	cmd.Flags().StringSlice("tables", nil, "Validate only these tables")
	cmd.Flags().String("mode", "", "Domain check mode: coded, textual")
	cmd.Flags().StringSlice("format", nil, "Report formats: "+strings.Join(report.Formats(), ", "))
	cmd.Flags().String("out", "", "Report output directory")
	cmd.Flags().String("sink-table", "", "Suffix of the per-table error tables")
	cmd.Flags().Int("workers", 0, "Tables validated in parallel")
	cmd.Flags().String("metrics-file", "", "Write prometheus metrics to this file")
	cmd.Flags().StringVar(&opts.Severity, "severity", "warning", "Minimum severity: error, warning, info, hint")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Fail on warnings as well as errors")
	cmd.Flags().BoolVar(&opts.NoFail, "no-fail", false, "Exit 0 even when findings exist")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Re-run when the workspace file changes")
	cmd.Flags().BoolVar(&opts.Publish, "publish", false, "Upload reports to the configured object storage")

	_ = cmd.RegisterFlagCompletionFunc("mode", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{string(catalog.ModeCoded), string(catalog.ModeTextual)}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return report.Formats(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("task", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		cat, err := catalog.Default()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		var names []string
		for _, t := range cat.Tasks() {
			names = append(names, t.Name)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// checkOutput is the JSON form of a check.
type checkOutput struct {
	RunID         string         `json:"run_id,omitempty"`
	Task          string         `json:"task"`
	Schema        string         `json:"schema"`
	Mode          string         `json:"mode"`
	Workspace     string         `json:"workspace"`
	Tables        []tableOutput  `json:"tables"`
	TotalFindings int            `json:"total_findings"`
	Counts        map[string]int `json:"counts"`
	Reports       []string       `json:"reports,omitempty"`
	Published     []string       `json:"published,omitempty"`
	DurationMS    int64          `json:"duration_ms"`
}

type tableOutput struct {
	Table      string         `json:"table"`
	Rows       int            `json:"rows"`
	Status     string         `json:"status"`
	Findings   []core.Finding `json:"findings"`
	Advisories []core.Finding `json:"advisories,omitempty"`
}

func runCheck(cmd *cobra.Command, opts *CheckOptions) error {
	cc, err := NewCommandContextWithoutWorkspace(cmd)
	if err != nil {
		return err
	}
	threshold, ok := core.ParseSeverity(opts.Severity)
	if !ok {
		return fmt.Errorf("invalid severity %q (valid: error, warning, info, hint)", opts.Severity)
	}
	if opts.Publish && !cc.Cfg.Publish.Enabled() {
		return fmt.Errorf("--publish needs publish.endpoint and publish.bucket in %s", config.ConfigFileName)
	}

	if !opts.Watch {
		out, err := checkOnce(cmd.Context(), cc, opts, threshold)
		if err != nil {
			return err
		}
		return checkVerdict(out, opts)
	}

	path := cc.Cfg.Target.Path
	if path == "" || path == ":memory:" {
		return errors.New("--watch needs a file workspace")
	}
	cc.Renderer.Muted(fmt.Sprintf("Watching %s (Ctrl+C to stop)", path))
	return watchWorkspace(cmd.Context(), path, watchDebounce, cc.Logger, func(ctx context.Context) {
		if _, err := checkOnce(ctx, cc, opts, threshold); err != nil {
			cc.Renderer.Error(err.Error())
		}
		cc.Renderer.Muted(fmt.Sprintf("Waiting for changes to %s", path))
	})
}

// checkVerdict turns findings into the command's exit status.
func checkVerdict(out *checkOutput, opts *CheckOptions) error {
	if opts.NoFail {
		return nil
	}
	if out.Counts[core.SeverityError.String()] > 0 {
		return fmt.Errorf("QC found %d errors", out.Counts[core.SeverityError.String()])
	}
	if opts.Strict && out.TotalFindings > 0 {
		return fmt.Errorf("QC found %d findings", out.TotalFindings)
	}
	return nil
}

// checkOnce opens the workspace, runs QC, writes reports and history and
// renders the summary.
func checkOnce(ctx context.Context, cc *CommandContext, opts *CheckOptions, threshold core.Severity) (*checkOutput, error) {
	cfg, r, logger := cc.Cfg, cc.Renderer, cc.Logger

	mode, err := catalog.ParseMode(cfg.DomainMode)
	if err != nil {
		return nil, err
	}
	runCfg := qc.RunConfig{
		Task:    cfg.Task,
		Schema:  cc.Schema(),
		Tables:  cfg.Tables,
		Mode:    mode,
		Workers: cfg.Workers,
	}
	if err := runCfg.Validate(cc.Catalog); err != nil {
		return nil, err
	}

	ws, err := openWorkspace(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = ws.Close() }()

	runID := ""
	store, err := openState(ctx, cfg, logger)
	if err != nil {
		r.Warning(fmt.Sprintf("run history disabled: %v", err))
	} else {
		defer func() { _ = store.Close() }()
		run, err := store.CreateRun(ctx, state.RunParams{
			Task:       runCfg.Task,
			SchemaYear: runCfg.Schema,
			DomainMode: string(runCfg.Mode),
			Workspace:  workspaceName(cfg),
		})
		if err != nil {
			return nil, err
		}
		runID = run.ID
		logger = logger.With(slog.String("run_id", runID))
	}

	m := metrics.New()
	observers := qc.Observers{m}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var tracker *progress.Tracker
	if r.IsTTY() && r.EffectiveMode() == output.ModeText {
		tracker = progress.Start(runCtx, r.ErrWriter(), cancel)
		observers = append(observers, tracker)
	}

	start := time.Now()
	res, runErr := qc.NewRunner(ws, cc.Catalog, runCfg, qc.WithLogger(logger), qc.WithObserver(observers)).Run(runCtx)
	if tracker != nil {
		if err := tracker.Stop(); err != nil {
			logger.Debug("progress display failed", "error", err)
		}
	}
	m.ObserveRun(time.Since(start), runErr)
	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			r.Warning(err.Error())
		}
	}
	if runErr != nil {
		if runID != "" {
			_ = store.CompleteRun(ctx, runID, state.RunStatusFailed, 0, runErr.Error())
		}
		return nil, runErr
	}

	out := &checkOutput{
		RunID:      runID,
		Task:       res.Config.Task,
		Schema:     res.Config.Schema,
		Mode:       string(res.Config.Mode),
		Workspace:  workspaceName(cfg),
		Counts:     make(map[string]int),
		DurationMS: res.Duration.Milliseconds(),
	}
	for _, t := range res.Tables {
		findings := core.FilterBySeverity(t.Findings, threshold)
		out.Tables = append(out.Tables, tableOutput{
			Table:      t.Table,
			Rows:       t.Rows,
			Status:     string(t.Status),
			Findings:   findings,
			Advisories: t.Advisories,
		})
		out.TotalFindings += len(findings)
		for s, n := range core.CountBySeverity(findings) {
			out.Counts[s.String()] += n
		}
		if runID != "" {
			if err := store.RecordTable(ctx, state.RunTable{
				RunID:    runID,
				Table:    t.Table,
				Rows:     t.Rows,
				Findings: len(t.Findings),
				Status:   string(t.Status),
				Advisory: advisoryText(t.Advisories),
			}); err != nil {
				return nil, err
			}
		}
	}

	if out.Reports, err = writeReports(ctx, cc, out); err != nil {
		return nil, err
	}
	if opts.Publish && runID != "" && len(out.Reports) > 0 {
		pub, err := publish.New(cfg.Publish, logger)
		if err != nil {
			return nil, err
		}
		if out.Published, err = pub.Publish(ctx, runID, out.Reports); err != nil {
			return nil, err
		}
	}

	if runID != "" {
		if err := store.CompleteRun(ctx, runID, state.RunStatusCompleted, res.TotalFindings, ""); err != nil {
			return nil, err
		}
	}

	return out, renderCheck(r, out)
}

func advisoryText(advisories []core.Finding) string {
	msgs := make([]string, len(advisories))
	for i, a := range advisories {
		msgs[i] = a.Message
	}
	return strings.Join(msgs, "\n")
}

// writeReports sends every table with findings to the configured sinks.
// Tables without findings produce no report entry.
func writeReports(ctx context.Context, cc *CommandContext, out *checkOutput) ([]string, error) {
	if out.TotalFindings == 0 || len(cc.Cfg.Output.Formats) == 0 {
		return nil, nil
	}
	sink, err := report.Open(ctx, cc.Cfg.Output.Formats, report.Options{
		Dir:         cc.Cfg.Output.Dir,
		TableSuffix: cc.Cfg.Output.SinkTable,
		Logger:      cc.Logger,
	})
	if err != nil {
		return nil, err
	}
	for _, t := range out.Tables {
		if len(t.Findings) == 0 {
			continue
		}
		if err := sink.WriteTable(ctx, t.Table, t.Findings); err != nil {
			_ = sink.Close()
			return nil, fmt.Errorf("failed to write report for %s: %w", t.Table, err)
		}
	}
	if err := sink.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish reports: %w", err)
	}
	if f, ok := sink.(interface{ Files() []string }); ok {
		return f.Files(), nil
	}
	return nil, nil
}

func renderCheck(r *output.Renderer, out *checkOutput) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, "QC: "+out.Task)
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatKeyValue("Schema", out.Schema))
		r.Println(output.FormatKeyValue("Domain mode", out.Mode))
		r.Println(output.FormatKeyValue("Workspace", out.Workspace))
		if out.RunID != "" {
			r.Println(output.FormatKeyValue("Run", out.RunID))
		}
	} else {
		r.Muted(fmt.Sprintf("schema %s, %s domains, %s", out.Schema, out.Mode, out.Workspace))
	}
	r.Println("")

	if len(out.Tables) == 0 {
		r.Warning("no workspace tables matched the selection")
		return nil
	}

	rows := make([][]any, 0, len(out.Tables))
	for _, t := range out.Tables {
		rows = append(rows, []any{t.Table, t.Rows, output.Title(t.Status), len(t.Findings)})
	}
	r.Table([]string{"Table", "Rows", "Status", "Findings"}, rows)

	for _, t := range out.Tables {
		for _, a := range t.Advisories {
			r.Warning(a.Message)
		}
	}

	for _, t := range out.Tables {
		if len(t.Findings) == 0 {
			continue
		}
		r.Println("")
		r.Header(2, t.Table)
		for i, f := range t.Findings {
			if i == maxListed {
				r.Muted(fmt.Sprintf("... and %d more (see reports)", len(t.Findings)-maxListed))
				break
			}
			id := f.ID
			if id == "" {
				id = "-"
			}
			r.Printf("- %s: %s\n", r.Styles().ID.Render(id), f.Message)
		}
	}

	r.Println("")
	if len(out.Reports) > 0 {
		r.Header(2, "Reports")
		for _, f := range out.Reports {
			r.StatusLine(f, "success", "")
		}
		for _, u := range out.Published {
			r.StatusLine(u, "success", "(published)")
		}
		r.Println("")
	}

	if out.TotalFindings == 0 {
		r.Success("No errors found")
		return nil
	}
	summary := fmt.Sprintf("%d findings (%d errors, %d warnings)", out.TotalFindings,
		out.Counts[core.SeverityError.String()], out.Counts[core.SeverityWarning.String()])
	r.Println(r.Styles().Bold.Render(summary))
	return nil
}
