package domain

import (
	"sort"

	"github.com/spf13/cast"
)

// RuleConfig is the resolved, read-only parameter set handed to one rule instance
type RuleConfig struct {
	params map[string]any
}

// NewRuleConfig copies params into a new RuleConfig
func NewRuleConfig(params map[string]any) RuleConfig {
	cp := make(map[string]any, len(params))
	for k, v := range params {
		cp[k] = v
	}
	return RuleConfig{params: cp}
}

// Has reports whether key is set
func (c RuleConfig) Has(key string) bool {
	_, ok := c.params[key]
	return ok
}

// Get returns the raw value of key
func (c RuleConfig) Get(key string) (any, bool) {
	v, ok := c.params[key]
	return v, ok
}

// Int returns key as an int, or def when unset or not convertible
func (c RuleConfig) Int(key string, def int) int {
	v, ok := c.params[key]
	if !ok {
		return def
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return i
}

// Bool returns key as a bool, or def when unset or not convertible
func (c RuleConfig) Bool(key string, def bool) bool {
	v, ok := c.params[key]
	if !ok {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}

// String returns key as a string, or def when unset
func (c RuleConfig) String(key string, def string) string {
	v, ok := c.params[key]
	if !ok {
		return def
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return def
	}
	return s
}

// Strings returns key as a string slice, or def when unset
func (c RuleConfig) Strings(key string, def []string) []string {
	v, ok := c.params[key]
	if !ok {
		return def
	}
	s, err := cast.ToStringSliceE(v)
	if err != nil {
		return def
	}
	return s
}

// Keys returns the configured parameter names in sorted order
func (c RuleConfig) Keys() []string {
	keys := make([]string, 0, len(c.params))
	for k := range c.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy of all parameters
func (c RuleConfig) Map() map[string]any {
	cp := make(map[string]any, len(c.params))
	for k, v := range c.params {
		cp[k] = v
	}
	return cp
}
