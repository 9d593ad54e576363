package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/ludo-technologies/ccheck/app"
	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/constants"
	"github.com/ludo-technologies/ccheck/service"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

type runOptions struct {
	files   []string
	fix     bool
	format  string
	output  string
	record  bool
	details bool
	yes     bool
}

func runCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [rule...]",
		Short: "Run consistency rules",
		Long: `Run the named rules, or every enabled rule when none are named.

Exit codes:
  0 - Every rule passed
  1 - At least one rule failed or errored
  2 - Configuration, discovery or usage error

Examples:
  # Run every enabled rule
  ccheck run

  # Run two rules on selected files
  ccheck run line_length trailing_whitespace --files src/a.go,src/b.go

  # Fix what can be fixed and record the run
  ccheck run --fix --record

  # JSON report for CI
  ccheck run --format json -o report.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.files, "files", nil, "Restrict rules to these files or directories")
	cmd.Flags().BoolVar(&opts.fix, "fix", false, "Apply automatic fixes where rules support them")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Output format: text, json, yaml (default from config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the report to a file")
	cmd.Flags().BoolVar(&opts.record, "record", false, "Record the run in the history database")
	cmd.Flags().BoolVar(&opts.details, "details", false, "Show code context for each violation")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Run disabled rules named on the command line without asking")
	return cmd
}

func runRun(cmd *cobra.Command, args []string, opts *runOptions) error {
	ws, err := openWorkspace("")
	if err != nil {
		return err
	}

	formatName := opts.format
	if formatName == "" {
		formatName = ws.Config.Output.Format
	}
	format, err := domain.ParseOutputFormat(formatName)
	if err != nil {
		return asExitError(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pm := service.NewProgressManager(format == domain.OutputFormatText && opts.output == "")
	defer pm.Close()

	outcome, err := app.NewCheckUseCase(ws).Execute(ctx, app.CheckConfig{
		Rules:           args,
		Files:           opts.files,
		Fix:             opts.fix,
		Record:          opts.record,
		ConfirmDisabled: confirmDisabled(opts.yes),
		OutputFormat:    format,
		OutputWriter:    cmd.OutOrStdout(),
		OutputPath:      opts.output,
		ShowDetails:     opts.details,
		Progress:        pm,
	})
	if err != nil {
		return asExitError(err)
	}
	if opts.output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", opts.output)
	}
	if !outcome.Report.Summary.Passed {
		return &CheckExitError{Code: constants.ExitViolations}
	}
	return nil
}

// confirmDisabled asks before running a disabled rule. Without a terminal
// the rule is skipped unless yes is set.
func confirmDisabled(yes bool) func(string) bool {
	return func(rule string) bool {
		if yes {
			return true
		}
		if !service.IsInteractiveEnvironment() {
			return false
		}
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("Rule %s is disabled. Run it anyway", rule),
			IsConfirm: true,
		}
		_, err := prompt.Run()
		return err == nil
	}
}
