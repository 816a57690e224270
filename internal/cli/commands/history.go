package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/t968rs/FEMA-Prod-updates/internal/cli/output"
	"github.com/t968rs/FEMA-Prod-updates/internal/state"
)

// NewHistoryCommand creates the history command and its show subcommand.
func NewHistoryCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent QC runs",
		Long: `List the QC runs recorded in the state database, newest first.
Use 'dfirmqc history show <run-id>' for the per-table outcome of one run.`,
		Example: `  # Last ten runs
  dfirmqc history

  # Details of one run
  dfirmqc history show 3f2a9c`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listHistory(cmd, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the tables of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistory(cmd, args[0])
		},
	})

	return cmd
}

// runOutput is the JSON form of a recorded run.
type runOutput struct {
	ID          string           `json:"id"`
	Task        string           `json:"task"`
	Schema      string           `json:"schema"`
	Mode        string           `json:"mode"`
	Workspace   string           `json:"workspace"`
	Status      string           `json:"status"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Findings    int              `json:"findings"`
	Error       string           `json:"error,omitempty"`
	Tables      []runTableOutput `json:"tables,omitempty"`
}

type runTableOutput struct {
	Table    string `json:"table"`
	Rows     int    `json:"rows"`
	Findings int    `json:"findings"`
	Status   string `json:"status"`
	Advisory string `json:"advisory,omitempty"`
}

func toRunOutput(run *state.Run) runOutput {
	return runOutput{
		ID:          run.ID,
		Task:        run.Task,
		Schema:      run.SchemaYear,
		Mode:        run.DomainMode,
		Workspace:   run.Workspace,
		Status:      string(run.Status),
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		Findings:    run.TotalFindings,
		Error:       run.Error,
	}
}

func listHistory(cmd *cobra.Command, limit int) error {
	cc, err := NewCommandContextWithoutWorkspace(cmd)
	if err != nil {
		return err
	}
	store, err := openState(cmd.Context(), cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		out := make([]runOutput, 0, len(runs))
		for _, run := range runs {
			out = append(out, toRunOutput(run))
		}
		return r.JSON(out)
	}

	r.Header(1, "QC runs")
	if len(runs) == 0 {
		r.Muted("No runs recorded yet. Run 'dfirmqc check' first.")
		return nil
	}
	rows := make([][]any, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []any{
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			run.Task,
			run.SchemaYear,
			string(run.Status),
			run.TotalFindings,
			run.Duration().Round(time.Millisecond).String(),
		})
	}
	r.Table([]string{"Run", "Started", "Task", "Schema", "Status", "Findings", "Duration"}, rows)
	return nil
}

func showHistory(cmd *cobra.Command, id string) error {
	cc, err := NewCommandContextWithoutWorkspace(cmd)
	if err != nil {
		return err
	}
	store, err := openState(cmd.Context(), cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}
	tables, err := store.GetRunTables(cmd.Context(), id)
	if err != nil {
		return err
	}

	out := toRunOutput(run)
	for _, t := range tables {
		out.Tables = append(out.Tables, runTableOutput{
			Table: t.Table, Rows: t.Rows, Findings: t.Findings, Status: t.Status, Advisory: t.Advisory,
		})
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, "Run "+run.ID)
	r.Println(output.FormatKeyValue("Task", run.Task))
	r.Println(output.FormatKeyValue("Schema", run.SchemaYear))
	r.Println(output.FormatKeyValue("Mode", run.DomainMode))
	r.Println(output.FormatKeyValue("Workspace", run.Workspace))
	r.Println(output.FormatKeyValue("Status", string(run.Status)))
	r.Println(output.FormatKeyValue("Findings", fmt.Sprint(run.TotalFindings)))
	if run.Error != "" {
		r.Error(run.Error)
	}
	if len(out.Tables) == 0 {
		return nil
	}
	r.Println("")
	rows := make([][]any, 0, len(out.Tables))
	for _, t := range out.Tables {
		rows = append(rows, []any{t.Table, t.Rows, t.Status, t.Findings, t.Advisory})
	}
	r.Table([]string{"Table", "Rows", "Status", "Findings", "Advisory"}, rows)
	return nil
}
