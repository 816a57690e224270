package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/t968rs/FEMA-Prod-updates/internal/cli/config"
	"github.com/t968rs/FEMA-Prod-updates/internal/cli/output"
	"github.com/t968rs/FEMA-Prod-updates/pkg/adapter"
	"github.com/t968rs/FEMA-Prod-updates/pkg/rules"
)

// Health check statuses.
const (
	checkPass = "pass"
	checkWarn = "warn"
	checkFail = "fail"
)

// HealthCheck represents a single health check result.
type HealthCheck struct {
	Name    string   `json:"name"`
	Status  string   `json:"status"` // "pass", "warn", "fail"
	Detail  string   `json:"detail,omitempty"`
	Details []string `json:"details,omitempty"`
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Checks   []HealthCheck `json:"checks"`
	Failures int           `json:"failures"`
	Warnings int           `json:"warnings"`
}

func (d *DoctorOutput) add(c HealthCheck) {
	switch c.Status {
	case checkFail:
		d.Failures++
	case checkWarn:
		d.Warnings++
	}
	d.Checks = append(d.Checks, c)
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the project is ready for QC",
		Long: `Check the setup before a QC run:
- the configuration file and its settings
- the embedded catalog and the registered rule kinds
- the workspace connection and the tables the task expects
- the run history database
- object storage publishing

Exits with status 1 when a check fails.`,
		Example: `  # Run the checks
  dfirmqc doctor

  # Output as JSON
  dfirmqc doctor -o json`,
		Args: cobra.NoArgs,
		RunE: runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContextWithoutWorkspace(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := &DoctorOutput{}

	if used := config.GetConfigFileUsed(); used != "" {
		out.add(HealthCheck{Name: "Configuration", Status: checkPass, Detail: used})
	} else {
		out.add(HealthCheck{Name: "Configuration", Status: checkWarn, Detail: "no " + config.ConfigFileName + " found, using defaults"})
	}

	catCheck := HealthCheck{
		Name:   "Catalog",
		Status: checkPass,
		Detail: fmt.Sprintf("v%s, %d tables, schemas %s (using %s)", cc.Catalog.Version, len(cc.Catalog.TableNames()), strings.Join(cc.Catalog.Schemas, ", "), cc.Schema()),
	}
	if err := cc.Catalog.Validate(); err != nil {
		catCheck.Status = checkFail
		catCheck.Details = strings.Split(err.Error(), "\n")
	}
	out.add(catCheck)
	out.add(HealthCheck{Name: "Rule kinds", Status: checkPass, Detail: fmt.Sprintf("%d registered", rules.Count())})
	out.add(HealthCheck{Name: "Adapters", Status: checkPass, Detail: strings.Join(adapter.ListAdapters(), ", ")})

	tables, taskErr := cc.Catalog.TablesForTask(cc.Cfg.Task)
	if taskErr != nil {
		out.add(HealthCheck{Name: "Task", Status: checkFail, Detail: taskErr.Error()})
	} else {
		out.add(HealthCheck{Name: "Task", Status: checkPass, Detail: fmt.Sprintf("%s (%d tables)", cc.Cfg.Task, len(tables))})
	}

	out.add(checkWorkspace(ctx, cc, tables))
	out.add(checkState(ctx, cc))

	if cc.Cfg.Publish.Enabled() {
		out.add(HealthCheck{Name: "Publish", Status: checkPass, Detail: fmt.Sprintf("%s/%s", cc.Cfg.Publish.Endpoint, cc.Cfg.Publish.Bucket)})
	} else {
		out.add(HealthCheck{Name: "Publish", Status: checkPass, Detail: "not configured"})
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(out); err != nil {
			return err
		}
	} else {
		renderDoctor(r, out)
	}

	if out.Failures > 0 {
		return fmt.Errorf("doctor found %d problems", out.Failures)
	}
	return nil
}

func checkWorkspace(ctx context.Context, cc *CommandContext, tables []string) HealthCheck {
	hc := HealthCheck{Name: "Workspace"}
	ws, err := openWorkspace(ctx, cc.Cfg, cc.Logger)
	if err != nil {
		hc.Status = checkFail
		hc.Detail = err.Error()
		return hc
	}
	defer func() { _ = ws.Close() }()

	live, err := ws.ListTables(ctx)
	if err != nil {
		hc.Status = checkFail
		hc.Detail = err.Error()
		return hc
	}
	present := make(map[string]string, len(live))
	for _, t := range live {
		present[strings.ToLower(t)] = t
	}

	hc.Status = checkPass
	found := 0
	for _, t := range tables {
		name, ok := present[strings.ToLower(t)]
		if !ok {
			continue
		}
		found++
		if n, err := ws.RowCount(ctx, name); err == nil && n == 0 {
			hc.Details = append(hc.Details, name+" is empty")
		}
	}
	hc.Detail = fmt.Sprintf("%s (%s), %d of %d task tables present", workspaceName(cc.Cfg), ws.DialectName(), found, len(tables))
	if len(tables) > 0 && found == 0 {
		hc.Status = checkWarn
	}
	return hc
}

func checkState(ctx context.Context, cc *CommandContext) HealthCheck {
	hc := HealthCheck{Name: "Run history"}
	store, err := openState(ctx, cc.Cfg, cc.Logger)
	if err != nil {
		hc.Status = checkWarn
		hc.Detail = err.Error()
		return hc
	}
	defer func() { _ = store.Close() }()

	v, err := store.MigrationVersion(ctx)
	if err != nil {
		hc.Status = checkWarn
		hc.Detail = err.Error()
		return hc
	}
	hc.Status = checkPass
	hc.Detail = fmt.Sprintf("%s (schema v%d)", store.Path(), v)
	return hc
}

func renderDoctor(r *output.Renderer, out *DoctorOutput) {
	r.Header(1, "dfirmqc doctor")
	for _, c := range out.Checks {
		status := "success"
		switch c.Status {
		case checkWarn:
			status = "warning"
		case checkFail:
			status = "error"
		}
		name := c.Name
		if r.EffectiveMode() != output.ModeText {
			name = fmt.Sprintf("%s [%s]", c.Name, c.Status)
		}
		r.StatusLine(name, status, c.Detail)
		for _, d := range c.Details {
			r.Muted("    " + d)
		}
	}
	r.Println("")
	switch {
	case out.Failures > 0:
		r.Error(fmt.Sprintf("%d checks failed, %d warnings", out.Failures, out.Warnings))
	case out.Warnings > 0:
		r.Warning(fmt.Sprintf("All checks passed with %d warnings", out.Warnings))
	default:
		r.Success("All checks passed")
	}
}
