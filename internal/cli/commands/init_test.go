package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string) // setup before running
		args      []string
		wantErr   string
		wantFiles []string
	}{
		{
			name:      "init empty directory",
			args:      []string{},
			wantFiles: []string{"dfirmqc.yaml", ".gitignore", ".env.example"},
		},
		{
			name: "init existing config without force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "dfirmqc.yaml"), []byte("existing"), 0600)
			},
			args:    []string{},
			wantErr: "already exists",
		},
		{
			name: "init existing config with force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "dfirmqc.yaml"), []byte("existing"), 0600)
			},
			args:      []string{"--force"},
			wantFiles: []string{"dfirmqc.yaml"},
		},
		{
			name:      "init subdirectory",
			args:      []string{"delivery"},
			wantFiles: []string{"delivery/dfirmqc.yaml", "delivery/.gitignore"},
		},
		{
			name:    "unknown task",
			args:    []string{"--task", "Paint The Map"},
			wantErr: "unknown task",
		},
		{
			name:    "unknown schema",
			args:    []string{"--schema", "1999"},
			wantErr: "unknown schema year",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			t.Chdir(tmpDir)

			if tt.setupDir != nil {
				tt.setupDir(t, tmpDir)
			}

			cmd := NewInitCommand()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			for _, f := range tt.wantFiles {
				_, err := os.Stat(filepath.Join(tmpDir, f))
				assert.NoError(t, err, "expected file %q to exist", f)
			}
		})
	}
}

func TestInitCommandMetadata(t *testing.T) {
	cmd := NewInitCommand()

	assert.Equal(t, "init [directory]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	for _, flag := range []string{"force", "workspace", "task", "schema"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestInitCreatesValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	cmd := NewInitCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--workspace", "levee.gpkg", "--task", "Hydraulics Data Capture", "--schema", "2020"})

	require.NoError(t, cmd.Execute())

	content, err := os.ReadFile("dfirmqc.yaml")
	require.NoError(t, err, "failed to read dfirmqc.yaml")

	expectedContents := []string{
		"workspace: levee.gpkg",
		"task: Hydraulics Data Capture",
		`schema_year: "2020"`,
		"formats: [sheet]",
		"state_path: .dfirmqc/state.db",
	}
	for _, expected := range expectedContents {
		assert.Contains(t, string(content), expected, "config should contain %q", expected)
	}
}
