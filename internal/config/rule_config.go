package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/constants"
	"gopkg.in/yaml.v3"
)

// RuleConfigFile is the on-disk shape of <rule>/<rule>_config.yml
type RuleConfigFile struct {
	Rule        string         `yaml:"rule,omitempty"`
	Description string         `yaml:"description,omitempty"`
	Parameters  map[string]any `yaml:"parameters"`
}

// RuleConfigPath returns the config file of rule under rulesDir
func RuleConfigPath(rulesDir, rule string) string {
	return filepath.Join(rulesDir, rule, rule+constants.RuleConfigSuffix)
}

// LoadRuleParameters reads the parameters section of a rule config file.
// A missing file yields no parameters and no error.
func LoadRuleParameters(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewConfigError("cannot read rule config "+path, err)
	}
	var f RuleConfigFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, domain.NewConfigError("malformed rule config "+path, err)
	}
	return f.Parameters, nil
}

// WriteRuleConfig writes a rule config file with the schema defaults of meta
func WriteRuleConfig(path string, meta domain.RuleMetadata) error {
	f := RuleConfigFile{
		Rule:        meta.Name,
		Description: meta.Description,
		Parameters:  meta.Defaults(),
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return domain.NewConfigError("cannot encode rule config", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return domain.NewConfigError("cannot write "+path, err)
	}
	return nil
}

// Layer names, lowest precedence first
const (
	LayerDefaults  = "defaults"
	LayerSettings  = "settings"
	LayerRuleFile  = "rule_file"
	LayerOverrides = "waiver_overrides"
	LayerGlobal    = "global"
)

// RuleConfigBuilder resolves the configuration of one rule instantiation
// from layered sources. Later layers win key by key.
type RuleConfigBuilder struct {
	rule   string
	layers []layer
}

type layer struct {
	name   string
	params map[string]any
}

// NewRuleConfigBuilder starts a builder for rule
func NewRuleConfigBuilder(rule string) *RuleConfigBuilder {
	return &RuleConfigBuilder{rule: rule}
}

// With adds a layer above the ones already added. Empty layers are ignored.
func (b *RuleConfigBuilder) With(name string, params map[string]any) *RuleConfigBuilder {
	if len(params) > 0 {
		b.layers = append(b.layers, layer{name: name, params: normalize(params)})
	}
	return b
}

// Rule returns the rule the builder resolves configuration for
func (b *RuleConfigBuilder) Rule() string {
	return b.rule
}

// Build merges the layers into an immutable configuration
func (b *RuleConfigBuilder) Build() domain.RuleConfig {
	merged := map[string]any{}
	for _, l := range b.layers {
		for k, v := range l.params {
			merged[k] = v
		}
	}
	return domain.NewRuleConfig(merged)
}

// Sources reports which layer supplied each key of the built configuration
func (b *RuleConfigBuilder) Sources() map[string]string {
	out := map[string]string{}
	for _, l := range b.layers {
		for k := range l.params {
			out[k] = l.name
		}
	}
	return out
}

// Layers returns the names of the non-empty layers in precedence order
func (b *RuleConfigBuilder) Layers() []string {
	names := make([]string, len(b.layers))
	for i, l := range b.layers {
		names[i] = l.name
	}
	return names
}

// MaxIssuesKey is the parameter every rule reads its per-file cap from
const MaxIssuesKey = "max_issues_per_file"

// ResolveRuleConfig applies the standard layering for rule: schema defaults,
// then the global settings, then the rule's config file, then waiver
// parameter overrides, then the global rules.rule_config entry.
func (c *Config) ResolveRuleConfig(rulesDir string, meta domain.RuleMetadata, overrides map[string]any) (domain.RuleConfig, error) {
	fileParams, err := LoadRuleParameters(RuleConfigPath(rulesDir, meta.Name))
	if err != nil {
		return domain.RuleConfig{}, err
	}
	return NewRuleConfigBuilder(meta.Name).
		With(LayerDefaults, meta.Defaults()).
		With(LayerSettings, map[string]any{MaxIssuesKey: c.Settings.MaxIssuesPerFile}).
		With(LayerRuleFile, fileParams).
		With(LayerOverrides, overrides).
		With(LayerGlobal, c.Rules.RuleConfig[meta.Name]).
		Build(), nil
}

// normalize converts nested YAML mappings to map[string]any so typed
// getters see one representation
func normalize(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalizeValue(val)
		}
		return m
	case map[string]any:
		return normalize(t)
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	}
	return v
}
