package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ludo-technologies/ccheck/internal/config"
	"github.com/ludo-technologies/ccheck/internal/registry"
	"github.com/ludo-technologies/ccheck/internal/waiver"
)

func runInitCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := initCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInitCommand_BasicConfigCreation(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "ccheck.yaml")

	if _, err := runInitCmd(t, "--output", configPath); err != nil {
		t.Fatalf("init command failed: %v", err)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}
	for _, section := range []string{"settings:", "paths:", "rules_dir:", "file_patterns:", "rules:", "output:", "history:"} {
		if !strings.Contains(string(content), section) {
			t.Errorf("Config file missing expected section: %s", section)
		}
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if cfg.Paths.RulesDir != config.DefaultRulesDir {
		t.Errorf("RulesDir = %s", cfg.Paths.RulesDir)
	}
}

func TestInitCommand_ForceOverwrite(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "ccheck.yaml")
	if err := os.WriteFile(configPath, []byte("existing: true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := runInitCmd(t, "--output", configPath)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("Expected 'already exists' error, got: %v", err)
	}

	if _, err := runInitCmd(t, "--output", configPath, "--force"); err != nil {
		t.Fatalf("init --force failed: %v", err)
	}
	content, _ := os.ReadFile(configPath)
	if strings.Contains(string(content), "existing") {
		t.Error("Config file was not overwritten")
	}
}

func TestInitCommand_MinimalConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "ccheck.yaml")
	if _, err := runInitCmd(t, "--output", configPath, "--minimal"); err != nil {
		t.Fatalf("init --minimal failed: %v", err)
	}
	content, _ := os.ReadFile(configPath)
	if !strings.Contains(string(content), "minimal") || strings.Contains(string(content), "history:") {
		t.Errorf("unexpected minimal config:\n%s", content)
	}
}

func TestInitCommand_InvalidDirectory(t *testing.T) {
	_, err := runInitCmd(t, "--output", "/nonexistent/directory/ccheck.yaml")
	if err == nil || !strings.Contains(err.Error(), "directory does not exist") {
		t.Errorf("Expected 'directory does not exist' error, got: %v", err)
	}
}

func TestInitCommand_Scaffold(t *testing.T) {
	dir := t.TempDir()
	if _, err := runInitCmd(t, "--output", filepath.Join(dir, "ccheck.yaml"), "--scaffold"); err != nil {
		t.Fatalf("init --scaffold failed: %v", err)
	}

	rulesDir := filepath.Join(dir, filepath.FromSlash(config.DefaultRulesDir))
	names := registry.Default.Names()
	if len(names) == 0 {
		t.Fatal("no built-in rules registered")
	}
	for _, name := range names {
		params, err := config.LoadRuleParameters(config.RuleConfigPath(rulesDir, name))
		if err != nil {
			t.Errorf("%s: %v", name, err)
		}
		if _, ok := params[config.MaxIssuesKey]; !ok {
			t.Errorf("%s: config file lacks %s", name, config.MaxIssuesKey)
		}
		if _, err := os.Stat(waiver.PolicyPath(rulesDir, name)); err != nil {
			t.Errorf("%s: waiver file missing: %v", name, err)
		}
	}

	catalog, err := registry.Discover(rulesDir, registry.Default, nil)
	if err != nil {
		t.Fatal(err)
	}
	if catalog.Len() != len(names) {
		t.Errorf("discovered %d rules, want %d", catalog.Len(), len(names))
	}
	waivers, err := waiver.NewLoader(nil).LoadDir(rulesDir)
	if err != nil || len(waivers) != 0 {
		t.Errorf("scaffolded policies should load empty, got %d, %v", len(waivers), err)
	}
}

func TestInitCommand_ScaffoldKeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	rulesDir := filepath.Join(dir, filepath.FromSlash(config.DefaultRulesDir))
	custom := config.RuleConfigPath(rulesDir, "line_length")
	if err := os.MkdirAll(filepath.Dir(custom), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(custom, []byte("parameters:\n  max_line_length: 99\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := runInitCmd(t, "--output", filepath.Join(dir, "ccheck.yaml"), "--scaffold"); err != nil {
		t.Fatal(err)
	}
	params, err := config.LoadRuleParameters(custom)
	if err != nil {
		t.Fatal(err)
	}
	if params["max_line_length"] != 99 {
		t.Errorf("existing rule config was overwritten: %v", params)
	}
}
