// Package config loads the dfirmqc project configuration.
//
// Values are layered, lowest to highest precedence: built-in defaults,
// dfirmqc.yaml, DFIRMQC_* environment variables, then command-line flags
// that were explicitly set.
package config

import (
	"github.com/t968rs/FEMA-Prod-updates/internal/publish"
	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

// TargetConfig describes how to open the workspace.
type TargetConfig struct {
	Type     string            `koanf:"type"`
	Path     string            `koanf:"path"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	Database string            `koanf:"database"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Schema   string            `koanf:"schema"`
	Options  map[string]string `koanf:"options"`
	// Params holds adapter-specific settings, decoded by the adapter.
	Params map[string]any `koanf:"params"`
}

// AdapterConfig converts the target into the adapter connection config.
func (t *TargetConfig) AdapterConfig() core.AdapterConfig {
	return core.AdapterConfig{
		Type:     t.Type,
		Path:     t.Path,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
		Params:   t.Params,
	}
}

// OutputConfig controls where QC reports go.
type OutputConfig struct {
	Dir     string   `koanf:"dir"`
	Formats []string `koanf:"formats"`
	// SinkTable is the suffix of the per-table error tables.
	SinkTable string `koanf:"sink_table"`
}

// Config holds all CLI configuration options.
type Config struct {
	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`

	Workspace   string         `koanf:"workspace"`
	Target      *TargetConfig  `koanf:"target"`
	Task        string         `koanf:"task"`
	SchemaYear  string         `koanf:"schema_year"`
	Tables      []string       `koanf:"tables"`
	DomainMode  string         `koanf:"domain_mode"`
	Output      OutputConfig   `koanf:"output"`
	StatePath   string         `koanf:"state_path"`
	Workers     int            `koanf:"workers"`
	MetricsFile string         `koanf:"metrics_file"`
	Publish     publish.Config `koanf:"publish"`
	Verbose     bool           `koanf:"verbose"`
	OutputMode  string         `koanf:"output_mode"`
}

// Default configuration values.
const (
	ConfigFileName   = "dfirmqc.yaml"
	EnvPrefix        = "DFIRMQC_"
	DefaultStateFile = ".dfirmqc/state.db"
	DefaultReportDir = "qc_reports"
	DefaultFormat    = "sheet"
	DefaultSinkTable = "_QC"
	DefaultMode      = "coded"
	DefaultOutput    = "auto" // TTY=text, non-TTY=markdown
)
