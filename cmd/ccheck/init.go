package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/config"
	"github.com/ludo-technologies/ccheck/internal/constants"
	"github.com/ludo-technologies/ccheck/internal/registry"
	"github.com/ludo-technologies/ccheck/internal/waiver"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	// Built-in rules register themselves with registry.Default
	_ "github.com/ludo-technologies/ccheck/internal/rules"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a ccheck configuration and rule directories",
		Long: `Generate a documented ccheck configuration file and, with --scaffold, a
rule directory for every built-in rule holding its default parameters and an
empty waiver policy.

Examples:
  # Create ccheck.yaml in the current directory
  ccheck init

  # Also create the rules directory
  ccheck init --scaffold

  # Overwrite existing files
  ccheck init --force

  # Interactive setup wizard
  ccheck init -i`,
		RunE: runInit,
	}

	cmd.Flags().StringP("output", "o", constants.ConfigFileName, "Output path for the config file")
	cmd.Flags().BoolP("force", "f", false, "Overwrite existing files")
	cmd.Flags().Bool("minimal", false, "Generate minimal config with essential options only")
	cmd.Flags().Bool("scaffold", false, "Create a rule directory for every built-in rule")
	cmd.Flags().BoolP("interactive", "i", false, "Interactive setup wizard")
	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("output")
	force, _ := cmd.Flags().GetBool("force")
	minimal, _ := cmd.Flags().GetBool("minimal")
	scaffold, _ := cmd.Flags().GetBool("scaffold")
	interactive, _ := cmd.Flags().GetBool("interactive")

	projectType := config.ProjectTypeGeneric
	strictness := config.StrictnessStandard

	if interactive {
		answers, err := askSetup(configPath)
		if err != nil {
			return err
		}
		projectType, strictness = answers.project, answers.strictness
		configPath, scaffold = answers.path, answers.scaffold
	}

	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
		}
	}

	dir := filepath.Dir(configPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", dir)
		}
	}

	content := config.GetFullConfigTemplate(projectType, strictness)
	if minimal {
		content = config.GetMinimalConfigTemplate()
	}
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	displayPath := configPath
	if absPath, err := filepath.Abs(configPath); err == nil {
		displayPath = absPath
	}
	fmt.Fprintf(out, "Created %s\n", displayPath)

	if scaffold {
		rulesDir := filepath.Join(dir, filepath.FromSlash(config.DefaultRulesDir))
		if err := scaffoldRules(out, rulesDir, registry.Default, force); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, "\nRun 'ccheck run' to check your repository.")
	return nil
}

// scaffoldRules creates <rulesDir>/<rule>/ for every rule in reg with a
// config file of schema defaults and an empty waiver policy. Existing files
// are kept unless force is set.
func scaffoldRules(out io.Writer, rulesDir string, reg *registry.Registry, force bool) error {
	for _, name := range reg.Names() {
		factory, _ := reg.Get(name)
		rule, err := registry.Instantiate(name, factory, domain.NewRuleConfig(nil))
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Join(rulesDir, name), 0755); err != nil {
			return fmt.Errorf("failed to create rule directory: %w", err)
		}

		cfgPath := config.RuleConfigPath(rulesDir, name)
		if force || !exists(cfgPath) {
			if err := config.WriteRuleConfig(cfgPath, rule.Metadata()); err != nil {
				return err
			}
		}
		if force || !exists(waiver.PolicyPath(rulesDir, name)) {
			if _, err := waiver.SaveRuleWaivers(rulesDir, name, nil); err != nil {
				return err
			}
		}
		fmt.Fprintf(out, "  %s/\n", filepath.Join(rulesDir, name))
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// setupAnswers are the choices made in the interactive wizard
type setupAnswers struct {
	project    config.ProjectType
	strictness config.Strictness
	path       string
	scaffold   bool
}

var projectLabels = map[config.ProjectType]string{
	config.ProjectTypeGeneric:    "Generic (Go, Python, JavaScript/TypeScript)",
	config.ProjectTypeGo:         "Go",
	config.ProjectTypePython:     "Python",
	config.ProjectTypeJavaScript: "JavaScript/TypeScript",
}

// wizardItem is one promptui select row
type wizardItem struct {
	Label  string
	Detail string
}

func chooseIndex(label string, items []wizardItem) (int, error) {
	prompt := promptui.Select{
		Label: label,
		Items: items,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "> {{ .Label | cyan }} {{ .Detail | faint }}",
			Inactive: "  {{ .Label }} {{ .Detail | faint }}",
			Selected: "{{ .Label | green }}",
		},
	}
	idx, _, err := prompt.Run()
	return idx, err
}

func askSetup(defaultConfigPath string) (setupAnswers, error) {
	answers := setupAnswers{path: defaultConfigPath}
	fmt.Println("\nccheck setup")

	projects := make([]wizardItem, len(config.AllProjectTypes))
	for i, pt := range config.AllProjectTypes {
		projects[i] = wizardItem{Label: projectLabels[pt]}
	}
	idx, err := chooseIndex("Project type", projects)
	if err != nil {
		return answers, fmt.Errorf("setup cancelled: %w", err)
	}
	answers.project = config.AllProjectTypes[idx]

	presets := config.GetStrictnessPresets()
	levels := make([]wizardItem, len(config.AllStrictness))
	for i, level := range config.AllStrictness {
		p := presets[level]
		levels[i] = wizardItem{
			Label:  string(level),
			Detail: fmt.Sprintf("(lines <= %d, complexity <= %d)", p.MaxLineLength, p.MaxCyclomaticComplexity),
		}
	}
	idx, err = chooseIndex("Rule strictness", levels)
	if err != nil {
		return answers, fmt.Errorf("setup cancelled: %w", err)
	}
	answers.strictness = config.AllStrictness[idx]

	path, err := (&promptui.Prompt{Label: "Config file", Default: defaultConfigPath}).Run()
	if err != nil {
		return answers, fmt.Errorf("setup cancelled: %w", err)
	}
	if path != "" {
		answers.path = path
	}

	_, err = (&promptui.Prompt{Label: "Create rule directories", IsConfirm: true}).Run()
	answers.scaffold = err == nil
	return answers, nil
}
