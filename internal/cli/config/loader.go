package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

// flagKeys maps command-line flag names onto config keys. Flags missing
// from the map are command options and never reach the config.
var flagKeys = map[string]string{
	"workspace":    "workspace",
	"target-type":  "target.type",
	"task":         "task",
	"schema":       "schema_year",
	"tables":       "tables",
	"mode":         "domain_mode",
	"format":       "output.formats",
	"out":          "output.dir",
	"sink-table":   "output.sink_table",
	"state":        "state_path",
	"workers":      "workers",
	"metrics-file": "metrics_file",
	"verbose":      "verbose",
	"output":       "output_mode",
}

// pathFlags are flags whose values are paths relative to the working
// directory rather than the project root.
var pathFlags = []string{"workspace", "out", "state", "metrics-file"}

// configNames lists the accepted config file names in lookup order.
var configNames = []string{ConfigFileName, "dfirmqc.yml"}

// configExistsIn checks if a dfirmqc config file exists in the directory.
func configExistsIn(dir string) string {
	for _, name := range configNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// findProjectRootUpward searches upward from startDir for a dfirmqc config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// FindProjectRoot returns the nearest directory at or above startDir that
// holds a dfirmqc config file, or startDir when there is none.
func FindProjectRoot(startDir string) string {
	if root := findProjectRootUpward(startDir); root != "" {
		return root
	}
	return startDir
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty, in-memory, a DSN or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) || strings.Contains(path, "://") {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	projectRoot := FindProjectRoot(cwd)
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			projectRoot = filepath.Dir(abs)
		}
	}

	// Paths given as flags are relative to the working directory.
	flagPaths := make(map[string]string)
	if flags != nil {
		for _, name := range pathFlags {
			if f := flags.Lookup(name); f != nil && f.Changed {
				v := f.Value.String()
				if abs, err := filepath.Abs(v); err == nil && v != ":memory:" && !strings.Contains(v, "://") {
					v = abs
				}
				flagPaths[name] = v
			}
		}
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"domain_mode":       DefaultMode,
		"output.dir":        DefaultReportDir,
		"output.formats":    []string{DefaultFormat},
		"output.sink_table": DefaultSinkTable,
		"state_path":        DefaultStateFile,
		"workers":           1,
		"verbose":           false,
		"output_mode":       DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Load the config file
	if cfgFile == "" {
		cfgFile = configExistsIn(projectRoot)
	}
	configFileUsed = cfgFile
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables (DFIRMQC_ prefix)
	// Transform: DFIRMQC_SCHEMA_YEAR -> schema_year, DFIRMQC_PUBLISH__BUCKET -> publish.bucket
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			if v, ok := flagPaths[f.Name]; ok {
				return key, v
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = projectRoot

	// 6. Expand ${VAR} references and resolve relative paths
	cfg.Workspace = expandEnvVars(cfg.Workspace)
	expandTargetEnvVars(cfg.Target)
	cfg.Publish.Endpoint = expandEnvVars(cfg.Publish.Endpoint)
	cfg.Publish.AccessKey = expandEnvVars(cfg.Publish.AccessKey)
	cfg.Publish.SecretKey = expandEnvVars(cfg.Publish.SecretKey)

	cfg.Workspace = resolvePathRelativeTo(cfg.Workspace, projectRoot)
	cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, projectRoot)
	cfg.Output.Dir = resolvePathRelativeTo(cfg.Output.Dir, projectRoot)
	cfg.MetricsFile = resolvePathRelativeTo(cfg.MetricsFile, projectRoot)

	if cfg.Target == nil {
		cfg.Target = &TargetConfig{}
	}
	if cfg.Workspace != "" && cfg.Target.Path == "" && cfg.Target.Host == "" {
		cfg.Target.Path = cfg.Workspace
	}
	cfg.Target.Path = resolvePathRelativeTo(cfg.Target.Path, projectRoot)
	if cfg.Target.Type == "" {
		cfg.Target.Type = InferTargetType(cfg.Target.Path)
	}
	ApplyTargetDefaults(cfg.Target)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	currentConfig = &cfg
	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})
}

// expandTargetEnvVars expands environment variables in sensitive target fields.
func expandTargetEnvVars(t *TargetConfig) {
	if t == nil {
		return
	}
	t.Path = expandEnvVars(t.Path)
	t.Host = expandEnvVars(t.Host)
	t.Database = expandEnvVars(t.Database)
	t.User = expandEnvVars(t.User)
	t.Password = expandEnvVars(t.Password)
}
