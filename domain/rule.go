package domain

import "context"

// ParamSpec describes one configurable rule parameter.
// The schema is advisory: it supplies defaults and drives `ccheck rules -v`,
// it is not enforced when configuration is merged.
type ParamSpec struct {
	Type        string `json:"type" yaml:"type"`
	Default     any    `json:"default,omitempty" yaml:"default,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// RuleMetadata describes a rule. It is captured once per discovered rule.
type RuleMetadata struct {
	Name        string   `json:"name" yaml:"name"`
	Version     string   `json:"version" yaml:"version"`
	Description string   `json:"description" yaml:"description"`
	Category    string   `json:"category" yaml:"category"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	SupportsIncremental bool `json:"supports_incremental" yaml:"supports_incremental"`
	SupportsParallel    bool `json:"supports_parallel" yaml:"supports_parallel"`
	SupportsAutoFix     bool `json:"supports_auto_fix" yaml:"supports_auto_fix"`

	ConfigSchema map[string]ParamSpec `json:"config_schema,omitempty" yaml:"config_schema,omitempty"`

	// Performance hints: fast, medium, slow / low, medium, high
	EstimatedRuntime string `json:"estimated_runtime,omitempty" yaml:"estimated_runtime,omitempty"`
	MemoryUsage      string `json:"memory_usage,omitempty" yaml:"memory_usage,omitempty"`

	Author           string `json:"author,omitempty" yaml:"author,omitempty"`
	DocumentationURL string `json:"documentation_url,omitempty" yaml:"documentation_url,omitempty"`
}

// Defaults returns the default value of every parameter declared in the schema
func (m RuleMetadata) Defaults() map[string]any {
	out := make(map[string]any, len(m.ConfigSchema))
	for name, spec := range m.ConfigSchema {
		if spec.Default != nil {
			out[name] = spec.Default
		}
	}
	return out
}

// CheckRequest is the input of a single rule run
type CheckRequest struct {
	// RepoRoot is the absolute repository root
	RepoRoot string

	// Files optionally restricts the check to these absolute paths.
	// Empty means the whole repository.
	Files []string

	// Include is used by rules that declare no file patterns of their own
	Include []string

	// Exclude is applied on top of every rule's own exclusions
	Exclude []string
}

// Rule is the capability every check must provide
type Rule interface {
	Metadata() RuleMetadata
	Check(ctx context.Context, req CheckRequest) (*CheckResult, error)
}

// Fixer is implemented by rules that can repair their own violations
type Fixer interface {
	Fix(ctx context.Context, repoRoot string, violations []Violation) (*FixResult, error)
}

// ConfigValidator is implemented by rules that validate their resolved configuration
type ConfigValidator interface {
	ValidateConfig(cfg RuleConfig) error
}

// FilePatterner is implemented by rules that declare which files they inspect
type FilePatterner interface {
	FilePatterns() []string
}

// FileFilter is implemented by rules that decide per file whether to check it
type FileFilter interface {
	ShouldCheckFile(path, repoRoot string) bool
}

// RuleFactory builds a rule instance from its resolved configuration
type RuleFactory func(cfg RuleConfig) (Rule, error)
