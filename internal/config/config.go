package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ludo-technologies/ccheck/internal/constants"
	"github.com/ludo-technologies/ccheck/internal/pathmatch"
	"github.com/spf13/viper"
)

// Default checker settings
const (
	// DefaultMaxIssuesPerFile caps how many violations a rule reports per file
	DefaultMaxIssuesPerFile = 50

	// DefaultRulesDir is where rule directories live, relative to the repository root
	DefaultRulesDir = "devops/consistency_checker/rules"

	// DefaultRuleTimeoutSeconds disables the per-rule time budget
	DefaultRuleTimeoutSeconds = 0

	// DefaultHistoryDSN is the run history database, relative to the repository root
	DefaultHistoryDSN = ".ccheck/history.db"
)

// EnvPrefix is the prefix of environment variables overriding config keys
const EnvPrefix = constants.EnvVarPrefix

// ConfigEnvVar names an explicit configuration file
const ConfigEnvVar = "CCHECK_CONFIG"

// Config represents the main configuration structure
type Config struct {
	// Settings holds execution settings
	Settings SettingsConfig `json:"settings" mapstructure:"settings" yaml:"settings"`

	// Paths holds repository-relative locations
	Paths PathsConfig `json:"paths" mapstructure:"paths" yaml:"paths"`

	// FilePatterns selects the files rules inspect
	FilePatterns []string `json:"file_patterns" mapstructure:"file_patterns" yaml:"file_patterns"`

	// ExcludePatterns removes files and directories from every rule
	ExcludePatterns []string `json:"exclude_patterns" mapstructure:"exclude_patterns" yaml:"exclude_patterns"`

	// Rules holds rule selection and per-rule parameters
	Rules RulesConfig `json:"rules" mapstructure:"rules" yaml:"rules"`

	// Output holds output formatting configuration
	Output OutputConfig `json:"output" mapstructure:"output" yaml:"output"`

	// Logging holds logger configuration
	Logging LoggingConfig `json:"logging" mapstructure:"logging" yaml:"logging"`

	// History holds run history configuration
	History HistoryConfig `json:"history" mapstructure:"history" yaml:"history"`
}

// SettingsConfig holds execution settings
type SettingsConfig struct {
	MaxIssuesPerFile  int  `json:"max_issues_per_file" mapstructure:"max_issues_per_file" yaml:"max_issues_per_file"`
	ParallelExecution bool `json:"parallel_execution" mapstructure:"parallel_execution" yaml:"parallel_execution"`

	// MaxWorkers bounds concurrent rules (0 = number of CPUs)
	MaxWorkers int `json:"max_workers" mapstructure:"max_workers" yaml:"max_workers"`

	// RuleTimeoutSeconds is the soft time budget of one rule (0 = none)
	RuleTimeoutSeconds int `json:"rule_timeout_seconds" mapstructure:"rule_timeout_seconds" yaml:"rule_timeout_seconds"`

	ShowTiming bool `json:"show_timing" mapstructure:"show_timing" yaml:"show_timing"`
	Debug      bool `json:"debug" mapstructure:"debug" yaml:"debug"`
}

// PathsConfig holds repository-relative locations
type PathsConfig struct {
	RulesDir string `json:"rules_dir" mapstructure:"rules_dir" yaml:"rules_dir"`
}

// RulesConfig holds rule selection and per-rule parameters
type RulesConfig struct {
	// EnabledRules restricts the run to these rules; empty means all discovered
	EnabledRules []string `json:"enabled_rules" mapstructure:"enabled_rules" yaml:"enabled_rules"`

	// DisabledRules are never run as part of run-all
	DisabledRules []string `json:"disabled_rules" mapstructure:"disabled_rules" yaml:"disabled_rules"`

	// RuleConfig overrides rule parameters, keyed by rule name
	RuleConfig map[string]map[string]any `json:"rule_config" mapstructure:"rule_config" yaml:"rule_config"`
}

// OutputConfig holds configuration for output formatting
type OutputConfig struct {
	// Format specifies the output format: text, json, yaml
	Format string `json:"format" mapstructure:"format" yaml:"format"`

	// ShowDetails controls whether violation context is printed
	ShowDetails bool `json:"show_details" mapstructure:"show_details" yaml:"show_details"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format" yaml:"format"`
	Level  string `json:"level" mapstructure:"level" yaml:"level"`
}

// HistoryConfig holds run history configuration
type HistoryConfig struct {
	// Enabled records every run
	Enabled bool `json:"enabled" mapstructure:"enabled" yaml:"enabled"`

	// DSN is the SQLite database path
	DSN string `json:"dsn" mapstructure:"dsn" yaml:"dsn"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Settings: SettingsConfig{
			MaxIssuesPerFile:   DefaultMaxIssuesPerFile,
			ParallelExecution:  true,
			MaxWorkers:         0,
			RuleTimeoutSeconds: DefaultRuleTimeoutSeconds,
			ShowTiming:         false,
			Debug:              false,
		},
		Paths: PathsConfig{
			RulesDir: DefaultRulesDir,
		},
		FilePatterns: []string{
			"**/*.go",
			"**/*.py",
			"**/*.js", "**/*.ts", "**/*.jsx", "**/*.tsx",
			"**/*.mjs", "**/*.cjs",
		},
		ExcludePatterns: []string{
			// Dependencies and virtual environments
			"node_modules",
			"vendor",
			"venv",
			"env",
			"__pycache__",
			// Build outputs
			"dist",
			"build",
			// Version control and tool state
			".git",
			".ccheck",
			// Minified files
			"*.min.js",
		},
		Rules: RulesConfig{
			EnabledRules:  []string{},
			DisabledRules: []string{},
			RuleConfig:    map[string]map[string]any{},
		},
		Output: OutputConfig{
			Format:      "text",
			ShowDetails: false,
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "warn",
		},
		History: HistoryConfig{
			Enabled: false,
			DSN:     DefaultHistoryDSN,
		},
	}
}

// LoadConfig reads configPath over the defaults. An empty path yields the
// defaults with environment overrides applied.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	cfg := DefaultConfig()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", configPath, err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadConfigWithTarget loads the explicit configPath, or the file
// ResolvePath discovers for targetPath
func LoadConfigWithTarget(configPath string, targetPath string) (*Config, error) {
	return LoadConfig(ResolvePath(configPath, targetPath))
}

// envKeys are the scalar keys CCHECK_* variables may override. Unmarshal
// only consults keys viper already knows about.
var envKeys = []string{
	"settings.max_issues_per_file",
	"settings.parallel_execution",
	"settings.max_workers",
	"settings.rule_timeout_seconds",
	"settings.show_timing",
	"settings.debug",
	"paths.rules_dir",
	"output.format",
	"output.show_details",
	"logging.format",
	"logging.level",
	"history.enabled",
	"history.dsn",
}

// ResolvePath returns the config file to read, or an empty string when
// defaults apply. An explicit configPath always wins. Otherwise the first
// directory holding one of constants.ConfigFileNames is used, looking at
// targetPath and its parents, the working directory, the user config
// directories and finally $CCHECK_CONFIG.
func ResolvePath(configPath, targetPath string) string {
	if configPath != "" {
		return configPath
	}
	for _, dir := range searchDirs(targetPath) {
		for _, name := range constants.ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if fileExists(candidate) {
				return candidate
			}
		}
	}
	if env := os.Getenv(ConfigEnvVar); env != "" && fileExists(env) {
		return env
	}
	return ""
}

func searchDirs(targetPath string) []string {
	var dirs []string
	if targetPath != "" {
		if start, err := filepath.Abs(targetPath); err == nil {
			if !isDir(start) {
				start = filepath.Dir(start)
			}
			for dir := start; ; {
				dirs = append(dirs, dir)
				parent := filepath.Dir(dir)
				if parent == dir {
					break
				}
				dir = parent
			}
		}
	}
	dirs = append(dirs, ".")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, constants.AppName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", constants.AppName), home)
	}
	return dirs
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if c.Settings.MaxIssuesPerFile < 0 {
		return fmt.Errorf("settings.max_issues_per_file must be >= 0, got %d", c.Settings.MaxIssuesPerFile)
	}

	if c.Settings.MaxWorkers < 0 {
		return fmt.Errorf("settings.max_workers must be >= 0, got %d", c.Settings.MaxWorkers)
	}

	if c.Settings.RuleTimeoutSeconds < 0 {
		return fmt.Errorf("settings.rule_timeout_seconds must be >= 0, got %d", c.Settings.RuleTimeoutSeconds)
	}

	if strings.TrimSpace(c.Paths.RulesDir) == "" {
		return fmt.Errorf("paths.rules_dir cannot be empty")
	}

	// Validate output format
	validFormats := map[string]bool{
		"text": true,
		"json": true,
		"yaml": true,
	}

	if !validFormats[c.Output.Format] {
		return fmt.Errorf("invalid output.format '%s', must be one of: text, json, yaml", c.Output.Format)
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging.format '%s', must be one of: text, json", c.Logging.Format)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid logging.level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	// Validate file patterns (at least one must be specified)
	if len(c.FilePatterns) == 0 {
		return fmt.Errorf("file_patterns cannot be empty")
	}
	for key, patterns := range map[string][]string{"file_patterns": c.FilePatterns, "exclude_patterns": c.ExcludePatterns} {
		for _, p := range patterns {
			if err := pathmatch.Validate(p); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	}

	if c.History.Enabled && strings.TrimSpace(c.History.DSN) == "" {
		return fmt.Errorf("history.dsn cannot be empty when history is enabled")
	}

	return nil
}

// RulesDirIn returns the absolute rules directory for repoRoot
func (c *Config) RulesDirIn(repoRoot string) string {
	if filepath.IsAbs(c.Paths.RulesDir) {
		return c.Paths.RulesDir
	}
	return filepath.Join(repoRoot, filepath.FromSlash(c.Paths.RulesDir))
}

// HistoryPathIn returns the absolute history database path for repoRoot
func (c *Config) HistoryPathIn(repoRoot string) string {
	if filepath.IsAbs(c.History.DSN) {
		return c.History.DSN
	}
	return filepath.Join(repoRoot, filepath.FromSlash(c.History.DSN))
}

// IsDisabled reports whether rule is listed in rules.disabled_rules
func (c *Config) IsDisabled(rule string) bool {
	for _, r := range c.Rules.DisabledRules {
		if r == rule {
			return true
		}
	}
	return false
}
