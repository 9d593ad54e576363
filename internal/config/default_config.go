package config

import (
	"gopkg.in/yaml.v3"
)

// DefaultConfigYAML renders DefaultConfig as a YAML document
func DefaultConfigYAML() (string, error) {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ToYAML renders cfg as a YAML document
func ToYAML(cfg *Config) (string, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
