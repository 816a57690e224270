package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/t968rs/FEMA-Prod-updates/pkg/adapters/duckdb"
	_ "github.com/t968rs/FEMA-Prod-updates/pkg/adapters/postgres"
	_ "github.com/t968rs/FEMA-Prod-updates/pkg/adapters/sqlite"
)

func TestTargetConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		target    TargetConfig
		wantErr   bool
		errSubstr string
	}{
		{name: "empty type", target: TargetConfig{Type: ""}, wantErr: true, errSubstr: "target type is required"},
		{name: "valid duckdb", target: TargetConfig{Type: "duckdb"}},
		{name: "valid duckdb uppercase", target: TargetConfig{Type: "DuckDB"}},
		{name: "valid sqlite", target: TargetConfig{Type: "sqlite"}},
		{name: "valid postgres", target: TargetConfig{Type: "postgres"}},
		{name: "unknown type mysql", target: TargetConfig{Type: "mysql"}, wantErr: true, errSubstr: "unknown workspace type"},
		{name: "unknown type filegdb", target: TargetConfig{Type: "filegdb"}, wantErr: true, errSubstr: "unknown workspace type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errSubstr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestInferTargetType(t *testing.T) {
	tests := map[string]string{
		"study.gpkg":                      "sqlite",
		"STUDY.SQLITE":                    "sqlite",
		"study.duckdb":                    "duckdb",
		"":                                "duckdb",
		"postgres://qc@localhost/dfirm":   "postgres",
		"postgresql://qc@localhost/dfirm": "postgres",
	}
	for in, want := range tests {
		assert.Equal(t, want, InferTargetType(in), in)
	}
}

func TestApplyTargetDefaults(t *testing.T) {
	pg := &TargetConfig{Type: "Postgres"}
	ApplyTargetDefaults(pg)
	assert.Equal(t, "postgres", pg.Type)
	assert.Equal(t, 5432, pg.Port)
	assert.Equal(t, "public", pg.Schema)

	duck := &TargetConfig{Type: "duckdb"}
	ApplyTargetDefaults(duck)
	assert.Zero(t, duck.Port)
	assert.Empty(t, duck.Schema)

	ApplyTargetDefaults(nil)
}

// tempDir resolves symlinks so paths compare equal to os.Getwd.
func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("workspace", "", "")
	fs.String("task", "", "")
	fs.String("schema", "", "")
	fs.StringSlice("format", nil, "")
	fs.Int("workers", 0, "")
	fs.Bool("publish", false, "")
	fs.StringP("output", "o", "", "")
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	dir := tempDir(t)
	t.Chdir(dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Empty(t, GetConfigFileUsed())
	assert.Equal(t, DefaultMode, cfg.DomainMode)
	assert.Equal(t, []string{DefaultFormat}, cfg.Output.Formats)
	assert.Equal(t, DefaultSinkTable, cfg.Output.SinkTable)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, DefaultOutput, cfg.OutputMode)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, DefaultReportDir), cfg.Output.Dir)
	require.NotNil(t, cfg.Target)
	assert.Equal(t, "duckdb", cfg.Target.Type)
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_Precedence(t *testing.T) {
	ResetConfig()
	dir := tempDir(t)
	t.Chdir(dir)
	writeConfig(t, dir, `
workspace: data/study.gpkg
task: Hydraulics Data Capture
schema_year: "2021"
workers: 2
output:
  formats: [sheet, csv]
publish:
  bucket: qc-reports
  access_key: ${QC_TEST_KEY}
`)
	t.Setenv("QC_TEST_KEY", "minio")
	t.Setenv("DFIRMQC_SCHEMA_YEAR", "2020")
	t.Setenv("DFIRMQC_PUBLISH__PREFIX", "iowa")

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--workers", "4", "--format", "json", "--publish", "-o", "json"}))

	cfg, err := LoadConfig("", fs)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, ConfigFileName), GetConfigFileUsed())
	assert.Equal(t, "Hydraulics Data Capture", cfg.Task)
	assert.Equal(t, "2020", cfg.SchemaYear, "env overrides file")
	assert.Equal(t, 4, cfg.Workers, "flag overrides file")
	assert.Equal(t, []string{"json"}, cfg.Output.Formats)
	assert.Equal(t, "json", cfg.OutputMode)
	assert.Equal(t, "qc-reports", cfg.Publish.Bucket, "--publish must not replace the publish section")
	assert.Equal(t, "iowa", cfg.Publish.Prefix)
	assert.Equal(t, "minio", cfg.Publish.AccessKey)

	assert.Equal(t, filepath.Join(dir, "data", "study.gpkg"), cfg.Workspace)
	assert.Equal(t, cfg.Workspace, cfg.Target.Path)
	assert.Equal(t, "sqlite", cfg.Target.Type)
}

func TestLoadConfig_FlagPathsRelativeToWorkingDir(t *testing.T) {
	ResetConfig()
	root := tempDir(t)
	writeConfig(t, root, "task: Survey Data Capture\n")
	sub := filepath.Join(root, "deliveries", "2024")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	t.Chdir(sub)

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--workspace", "study.duckdb"}))

	cfg, err := LoadConfig("", fs)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.ProjectRoot, "project root is found by walking upward")
	assert.Equal(t, "Survey Data Capture", cfg.Task)
	assert.Equal(t, filepath.Join(sub, "study.duckdb"), cfg.Workspace)
	assert.Equal(t, "duckdb", cfg.Target.Type)
}

func TestLoadConfig_ExplicitTarget(t *testing.T) {
	ResetConfig()
	dir := tempDir(t)
	t.Chdir(dir)
	t.Setenv("QC_TEST_PASSWORD", "s3cret")
	path := writeConfig(t, dir, `
target:
  type: postgres
  host: localhost
  database: dfirm
  user: qc
  password: ${QC_TEST_PASSWORD}
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Target.Type)
	assert.Equal(t, 5432, cfg.Target.Port)
	assert.Equal(t, "s3cret", cfg.Target.Password)

	ac := cfg.Target.AdapterConfig()
	assert.Equal(t, "qc", ac.Username)
	assert.Equal(t, "dfirm", ac.Database)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errs    []string
	}{
		{
			name:    "unknown adapter",
			content: "target:\n  type: oracle\n",
			errs:    []string{"unknown workspace type"},
		},
		{
			name:    "bad values",
			content: "domain_mode: fancy\noutput:\n  formats: [pdf]\noutput_mode: html\n",
			errs:    []string{"invalid domain mode", `unknown report format "pdf"`, `invalid output mode "html"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			dir := tempDir(t)
			t.Chdir(dir)
			writeConfig(t, dir, tt.content)

			_, err := LoadConfig("", nil)
			require.Error(t, err)
			for _, want := range tt.errs {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestValidateWorkspace(t *testing.T) {
	cfg := &Config{Target: &TargetConfig{Type: "duckdb"}}
	err := cfg.ValidateWorkspace()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no workspace configured")

	cfg.Target.Path = "study.duckdb"
	assert.NoError(t, cfg.ValidateWorkspace())
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("QC_TEST_HOST", "db.internal")
	assert.Equal(t, "db.internal:5432", expandEnvVars("${QC_TEST_HOST}:5432"))
	assert.Equal(t, "${QC_TEST_UNSET}", expandEnvVars("${QC_TEST_UNSET}"))
	assert.Equal(t, "plain", expandEnvVars("plain"))
}

func TestResolvePathRelativeTo(t *testing.T) {
	base := filepath.Join(string(filepath.Separator), "proj")
	assert.Equal(t, filepath.Join(base, "a.db"), resolvePathRelativeTo("a.db", base))
	assert.Equal(t, ":memory:", resolvePathRelativeTo(":memory:", base))
	assert.Equal(t, "postgres://h/db", resolvePathRelativeTo("postgres://h/db", base))
	assert.Empty(t, resolvePathRelativeTo("", base))
}
