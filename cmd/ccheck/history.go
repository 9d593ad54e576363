package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ludo-technologies/ccheck/app"
	"github.com/ludo-technologies/ccheck/domain"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var (
		limit       int
		runID       string
		trendRule   string
		minSeverity string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Long: `Show runs recorded with 'ccheck run --record' or history.enabled.

Examples:
  # Latest runs
  ccheck history --limit 5

  # Errors of one run
  ccheck history --run 3f2c... --min-severity error

  # Violation count of a rule over time
  ccheck history --trend line_length`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace("")
			if err != nil {
				return err
			}
			uc := app.NewHistoryUseCase(ws)
			ctx := context.Background()
			w := cmd.OutOrStdout()

			switch {
			case runID != "":
				sev, err := domain.ParseSeverity(minSeverity)
				if err != nil {
					return asExitError(err)
				}
				rows, err := uc.Violations(ctx, runID, sev)
				if err != nil {
					return asExitError(err)
				}
				if len(rows) == 0 {
					fmt.Fprintln(w, "No violations recorded.")
				}
				for _, v := range rows {
					fmt.Fprintf(w, "%s:%d: [%s] %s (%s)\n", v.FilePath, v.Line, strings.ToUpper(string(v.Severity)), v.Message, v.RuleName)
				}

			case trendRule != "":
				counts, err := uc.Trend(ctx, trendRule, limit)
				if err != nil {
					return asExitError(err)
				}
				if len(counts) == 0 {
					fmt.Fprintf(w, "No recorded runs of %s.\n", trendRule)
					return nil
				}
				parts := make([]string, len(counts))
				for i, n := range counts {
					parts[len(counts)-1-i] = fmt.Sprint(n)
				}
				fmt.Fprintf(w, "%s (oldest to newest): %s\n", trendRule, strings.Join(parts, " -> "))

			default:
				runs, err := uc.Runs(ctx, limit)
				if err != nil {
					return asExitError(err)
				}
				if len(runs) == 0 {
					fmt.Fprintln(w, "No recorded runs.")
				}
				for _, r := range runs {
					status := "PASSED"
					if !r.Passed {
						status = "FAILED"
					}
					fmt.Fprintf(w, "%s  %s  %-6s  %d rules, %d violations, %d waived\n",
						r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), status, r.RulesRun, r.TotalViolations, r.Waived)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs")
	cmd.Flags().StringVar(&runID, "run", "", "Show the violations of one run")
	cmd.Flags().StringVar(&trendRule, "trend", "", "Show the violation count of a rule across runs")
	cmd.Flags().StringVar(&minSeverity, "min-severity", "info", "Lowest severity shown with --run")
	return cmd
}
