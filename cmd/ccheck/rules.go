package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ludo-technologies/ccheck/app"
	"github.com/ludo-technologies/ccheck/internal/waiver"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

// ruleInfo is one line of the rules listing
type ruleInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
	AutoFix     bool   `json:"auto_fix"`
	Parallel    bool   `json:"parallel"`
	Waivers     int    `json:"waivers"`
}

func rulesCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List discovered rules",
		Long: `List the rules discovered in the rules directory with their status.

A rule is enabled when it is allowed by rules.enabled_rules (or that list is
empty) and not named in rules.disabled_rules.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace("")
			if err != nil {
				return err
			}
			infos := listRules(ws)
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}
			writeRules(cmd.OutOrStdout(), ws, infos)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.AddCommand(ruleShowCmd())
	return cmd
}

func listRules(ws *app.Workspace) []ruleInfo {
	enabled, _ := ws.Catalog.Enabled(ws.Config.Rules.EnabledRules, ws.Config.Rules.DisabledRules)
	on := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		on[name] = true
	}
	var infos []ruleInfo
	for _, e := range ws.Catalog.Entries() {
		infos = append(infos, ruleInfo{
			Name:        e.Name,
			Version:     e.Metadata.Version,
			Category:    e.Metadata.Category,
			Description: e.Metadata.Description,
			Enabled:     on[e.Name],
			AutoFix:     e.Metadata.SupportsAutoFix,
			Parallel:    e.Metadata.SupportsParallel,
			Waivers:     len(waiver.ForRule(ws.Waivers, e.Name)),
		})
	}
	return infos
}

func writeRules(w io.Writer, ws *app.Workspace, infos []ruleInfo) {
	if len(infos) == 0 {
		fmt.Fprintf(w, "No rules found in %s\n", ws.RulesDir)
	}
	for _, r := range infos {
		status := "enabled"
		if !r.Enabled {
			status = "disabled"
		}
		var flags []string
		if r.AutoFix {
			flags = append(flags, "autofix")
		}
		if !r.Parallel {
			flags = append(flags, "sequential")
		}
		fmt.Fprintf(w, "%-28s %-8s %-10s %s", r.Name, r.Version, status, r.Description)
		if len(flags) > 0 {
			fmt.Fprintf(w, " [%s]", strings.Join(flags, ", "))
		}
		if r.Waivers > 0 {
			fmt.Fprintf(w, " (%d waivers)", r.Waivers)
		}
		fmt.Fprintln(w)
	}
	for _, p := range ws.Catalog.Problems {
		fmt.Fprintf(w, "skipped %s\n", p)
	}
}

func ruleShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show RULE",
		Short: "Show a rule's metadata and resolved parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace("")
			if err != nil {
				return err
			}
			entry, ok := ws.Catalog.Get(args[0])
			if !ok {
				return asExitError(fmt.Errorf("unknown rule %s (available: %s)", args[0], strings.Join(ws.Catalog.Names(), ", ")))
			}
			overrides := waiver.NewEngine(ws.Waivers).ParameterOverrides(entry.Name)
			cfg, err := ws.Config.ResolveRuleConfig(ws.RulesDir, entry.Metadata, overrides)
			if err != nil {
				return asExitError(err)
			}

			w := cmd.OutOrStdout()
			m := entry.Metadata
			fmt.Fprintf(w, "Rule:        %s %s\n", m.Name, m.Version)
			fmt.Fprintf(w, "Description: %s\n", m.Description)
			fmt.Fprintf(w, "Category:    %s\n", m.Category)
			if len(m.Tags) > 0 {
				fmt.Fprintf(w, "Tags:        %s\n", strings.Join(m.Tags, ", "))
			}
			fmt.Fprintf(w, "Directory:   %s\n", entry.Dir)
			fmt.Fprintln(w, "Parameters:")
			params := cfg.Map()
			keys := make([]string, 0, len(params))
			for k := range params {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				desc := ""
				if spec, ok := m.ConfigSchema[k]; ok && spec.Description != "" {
					desc = "  # " + spec.Description
				}
				fmt.Fprintf(w, "  %s: %s%s\n", k, formatParam(params[k]), desc)
			}
			return nil
		},
	}
}

// formatParam renders a parameter value on one line
func formatParam(v any) string {
	switch list := v.(type) {
	case []string:
		return "[" + strings.Join(list, ", ") + "]"
	case []any:
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = cast.ToString(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return cast.ToString(v)
}
