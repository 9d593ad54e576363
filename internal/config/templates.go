package config

import (
	"strconv"
	"strings"
)

// ProjectType represents the kind of repository being checked
type ProjectType string

const (
	ProjectTypeGeneric    ProjectType = "generic"
	ProjectTypeGo         ProjectType = "go"
	ProjectTypePython     ProjectType = "python"
	ProjectTypeJavaScript ProjectType = "javascript"
)

// AllProjectTypes lists project types in prompt order
var AllProjectTypes = []ProjectType{
	ProjectTypeGeneric,
	ProjectTypeGo,
	ProjectTypePython,
	ProjectTypeJavaScript,
}

// Strictness represents how strict the built-in rule defaults are
type Strictness string

const (
	StrictnessRelaxed  Strictness = "relaxed"
	StrictnessStandard Strictness = "standard"
	StrictnessStrict   Strictness = "strict"
)

// AllStrictness lists strictness levels in prompt order
var AllStrictness = []Strictness{StrictnessRelaxed, StrictnessStandard, StrictnessStrict}

// ProjectPreset holds file selection presets for a project type
type ProjectPreset struct {
	FilePatterns    []string
	ExcludePatterns []string
}

// StrictnessPreset holds rule parameter values for a strictness level
type StrictnessPreset struct {
	MaxLineLength           int
	MaxCyclomaticComplexity int
	MaxNestingDepth         int
	MaxFunctionLength       int
}

// GetProjectPresets returns presets for different project types
func GetProjectPresets() map[ProjectType]ProjectPreset {
	return map[ProjectType]ProjectPreset{
		ProjectTypeGeneric: {
			FilePatterns:    DefaultConfig().FilePatterns,
			ExcludePatterns: DefaultConfig().ExcludePatterns,
		},
		ProjectTypeGo: {
			FilePatterns: []string{
				"**/*.go",
			},
			ExcludePatterns: []string{
				"vendor",
				"testdata",
				"*.pb.go",
				"*_gen.go",
			},
		},
		ProjectTypePython: {
			FilePatterns: []string{
				"**/*.py",
				"**/*.pyx",
			},
			ExcludePatterns: []string{
				"__pycache__",
				"venv",
				"env",
				".tox",
				"build",
				"dist",
			},
		},
		ProjectTypeJavaScript: {
			FilePatterns: []string{
				"**/*.js",
				"**/*.ts",
				"**/*.jsx",
				"**/*.tsx",
				"**/*.mjs",
				"**/*.cjs",
			},
			ExcludePatterns: []string{
				"node_modules",
				"dist",
				"build",
				"coverage",
				".next",
				"*.min.js",
				"*.bundle.js",
			},
		},
	}
}

// GetStrictnessPresets returns presets for different strictness levels
func GetStrictnessPresets() map[Strictness]StrictnessPreset {
	return map[Strictness]StrictnessPreset{
		StrictnessRelaxed: {
			MaxLineLength:           160,
			MaxCyclomaticComplexity: 15,
			MaxNestingDepth:         6,
			MaxFunctionLength:       100,
		},
		StrictnessStandard: {
			MaxLineLength:           120,
			MaxCyclomaticComplexity: 10,
			MaxNestingDepth:         4,
			MaxFunctionLength:       50,
		},
		StrictnessStrict: {
			MaxLineLength:           100,
			MaxCyclomaticComplexity: 7,
			MaxNestingDepth:         3,
			MaxFunctionLength:       30,
		},
	}
}

// GetFullConfigTemplate returns the documented config template as YAML
func GetFullConfigTemplate(projectType ProjectType, strictness Strictness) string {
	preset, ok := GetProjectPresets()[projectType]
	if !ok {
		preset = GetProjectPresets()[ProjectTypeGeneric]
	}
	strict, ok := GetStrictnessPresets()[strictness]
	if !ok {
		strict = GetStrictnessPresets()[StrictnessStandard]
	}

	return `# ccheck configuration
# Documentation: https://github.com/ludo-technologies/ccheck

# ============================================================================
# EXECUTION
# ============================================================================
settings:
  # Maximum violations a rule reports per file
  max_issues_per_file: ` + strconv.Itoa(DefaultMaxIssuesPerFile) + `

  # Run rules concurrently
  parallel_execution: true

  # Number of concurrent rules (0 = number of CPUs)
  max_workers: 0

  # Soft time budget per rule in seconds (0 = none)
  rule_timeout_seconds: 0

  # Print per-rule execution time
  show_timing: false

  debug: false

# ============================================================================
# LOCATIONS
# ============================================================================
paths:
  # One subdirectory per rule: <rule>/<rule>_config.yml and <rule>/<rule>_waivers.yml
  rules_dir: ` + DefaultRulesDir + `

# Files rules inspect (glob patterns, '*' also matches '/')
file_patterns:
` + formatYAMLList(preset.FilePatterns) + `

# Directories and files excluded from every rule
exclude_patterns:
` + formatYAMLList(preset.ExcludePatterns) + `

# ============================================================================
# RULES
# ============================================================================
rules:
  # Rules to run; empty runs every discovered rule
  enabled_rules: []

  # Rules never run as part of a full run
  disabled_rules: []

  # Parameter overrides, highest precedence
  rule_config:
    line_length:
      max_line_length: ` + strconv.Itoa(strict.MaxLineLength) + `
    code_complexity:
      max_cyclomatic_complexity: ` + strconv.Itoa(strict.MaxCyclomaticComplexity) + `
      max_nesting_depth: ` + strconv.Itoa(strict.MaxNestingDepth) + `
      max_function_length: ` + strconv.Itoa(strict.MaxFunctionLength) + `

# ============================================================================
# OUTPUT
# ============================================================================
output:
  # Output format: text, json, yaml
  format: text

  # Show code context for each violation
  show_details: false

logging:
  # Log format: text, json
  format: text
  # Log level: debug, info, warn, error
  level: warn

# ============================================================================
# HISTORY
# ============================================================================
history:
  # Record every run in a SQLite database
  enabled: false
  dsn: ` + DefaultHistoryDSN + `
`
}

// GetMinimalConfigTemplate returns a minimal config template
func GetMinimalConfigTemplate() string {
	return `# ccheck configuration (minimal)
# See full options: https://github.com/ludo-technologies/ccheck

paths:
  rules_dir: ` + DefaultRulesDir + `

rules:
  enabled_rules: []
  disabled_rules: []
`
}

// formatYAMLList formats a string slice as an indented YAML block sequence
func formatYAMLList(items []string) string {
	if len(items) == 0 {
		return "  []"
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = `  - "` + item + `"`
	}
	return strings.Join(lines, "\n")
}
