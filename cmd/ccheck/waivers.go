package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/ludo-technologies/ccheck/app"
	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/constants"
	"github.com/ludo-technologies/ccheck/internal/waiver"
	"github.com/ludo-technologies/ccheck/service"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

func waiversCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "waivers",
		Short: "Inspect and maintain the waiver policy",
		Long: `Inspect and maintain the waivers stored in each rule's <rule>_waivers.yml.

Usage information (whether a waiver matched anything) requires running the
rules, which --usage and --unused do.`,
	}
	cmd.AddCommand(waiversShowCmd())
	cmd.AddCommand(waiversValidateCmd())
	cmd.AddCommand(waiversExportCmd())
	cmd.AddCommand(waiversAddCmd())
	return cmd
}

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func waiversShowCmd() *cobra.Command {
	var (
		filter    app.WaiverFilter
		withUsage bool
		format    string
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "List waivers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := domain.ParseOutputFormat(format)
			if err != nil {
				return asExitError(err)
			}
			ws, err := openWorkspace("")
			if err != nil {
				return err
			}
			uc := app.NewWaiverUseCase(ws)

			var usage waiver.UsageStore
			if withUsage || filter.Unused {
				ctx, stop := interruptContext()
				defer stop()
				if usage, err = uc.Usage(ctx); err != nil {
					return asExitError(err)
				}
			}
			listing := uc.Show(filter, usage)
			return asExitError(service.NewOutputFormatter(false, false).WriteWaivers(listing, f, cmd.OutOrStdout()))
		},
	}
	cmd.Flags().StringVar(&filter.Rule, "rule", "", "Only waivers applying to this rule")
	cmd.Flags().BoolVar(&filter.Expired, "expired", false, "Only expired waivers")
	cmd.Flags().BoolVar(&filter.Unused, "unused", false, "Only waivers that matched nothing (runs the rules)")
	cmd.Flags().IntVar(&filter.ExpiringDays, "expiring", 0, "Only waivers expiring within this many days")
	cmd.Flags().BoolVar(&withUsage, "usage", false, "Run the rules to report usage counts")
	cmd.Flags().StringVarP(&format, "format", "f", constants.OutputFormatText, "Output format: text, json, yaml")
	return cmd
}

func waiversValidateCmd() *cobra.Command {
	var withUsage bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Report expired, invalid, unapproved and duplicate waivers",
		Long: `Report waiver maintenance issues. Exits with code 1 when any are found.

With --usage the rules are run first and unused waivers are reported too.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace("")
			if err != nil {
				return err
			}
			uc := app.NewWaiverUseCase(ws)
			var usage waiver.UsageStore
			if withUsage {
				ctx, stop := interruptContext()
				defer stop()
				if usage, err = uc.Usage(ctx); err != nil {
					return asExitError(err)
				}
			}
			issues := uc.Validate(usage)
			service.WriteIssues(issues, cmd.OutOrStdout())
			if len(issues) > 0 {
				return &CheckExitError{Code: constants.ExitViolations}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withUsage, "usage", false, "Run the rules and report unused waivers")
	return cmd
}

func waiversExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-unused FILE",
		Short: "Run the rules and write the waivers that matched nothing to FILE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace("")
			if err != nil {
				return err
			}
			ctx, stop := interruptContext()
			defer stop()
			n, err := app.NewWaiverUseCase(ws).ExportUnused(ctx, args[0])
			if err != nil {
				return asExitError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d unused waivers to %s\n", n, args[0])
			return nil
		},
	}
}

func waiversAddCmd() *cobra.Command {
	req := app.AddWaiverRequest{}
	cmd := &cobra.Command{
		Use:   "add RULE FILE:LINE[:COLUMN]",
		Short: "Add a line waiver to a rule's policy file",
		Example: `  ccheck waivers add line_length src/legacy.go:42 \
    --reason "generated table" --approved-by alice --message "Line too long"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, line, col, err := parseLocation(args[1])
			if err != nil {
				return asExitError(err)
			}
			req.Rule, req.File, req.Line, req.Column = args[0], file, line, col

			ws, err := openWorkspace("")
			if err != nil {
				return err
			}
			w, path, err := app.NewWaiverUseCase(ws).Add(req)
			if err != nil {
				return asExitError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added waiver %s to %s\n", w.ID, path)
			if w.Expires != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Expires %s\n", waiver.FormatDate(w.Expires))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Reason, "reason", "", "Why the violation is accepted (required)")
	cmd.Flags().StringVar(&req.ApprovedBy, "approved-by", "", "Who approved the waiver (required)")
	cmd.Flags().StringVar(&req.Message, "message", "", "Text the violation message must contain")
	cmd.Flags().IntVar(&req.ExpiresDays, "expires-days", app.DefaultWaiverExpiryDays, "Days until the waiver expires (0 = never)")
	_ = cmd.MarkFlagRequired("reason")
	_ = cmd.MarkFlagRequired("approved-by")
	return cmd
}

// parseLocation splits FILE:LINE[:COLUMN]
func parseLocation(loc string) (file string, line, col int, err error) {
	parts := strings.Split(loc, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
		return "", 0, 0, domain.NewInvalidInputError("location must be FILE:LINE[:COLUMN], got "+loc, nil)
	}
	if line, err = cast.ToIntE(parts[1]); err != nil || line <= 0 {
		return "", 0, 0, domain.NewInvalidInputError("invalid line in "+loc, err)
	}
	if len(parts) == 3 {
		if col, err = cast.ToIntE(parts[2]); err != nil || col <= 0 {
			return "", 0, 0, domain.NewInvalidInputError("invalid column in "+loc, err)
		}
	}
	return parts[0], line, col, nil
}
