package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/ludo-technologies/ccheck/app"
	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/constants"
	"github.com/ludo-technologies/ccheck/internal/logging"
	"github.com/ludo-technologies/ccheck/internal/version"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version = version.Version
)

// Global flags shared by every subcommand
var (
	globalConfigPath string
	globalLogLevel   string
	globalLogFormat  string
	globalVerbose    bool
)

// CheckExitError carries the process exit code of a command
type CheckExitError struct {
	Code    int
	Message string
}

func (e *CheckExitError) Error() string {
	return e.Message
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   constants.AppName,
		Short: "ccheck - pluggable code consistency checker",
		Long: `ccheck runs a catalog of consistency rules over a repository, applies
the waiver policy stored next to each rule and reports what remains.

Rules live under the rules directory (devops/consistency_checker/rules by
default), one subdirectory per rule holding <rule>_config.yml and
<rule>_waivers.yml.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&globalConfigPath, "config", "c", "", "Path to config file")
	flags.StringVar(&globalLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&globalLogFormat, "log-format", "", "Log format: text, json")
	flags.BoolVarP(&globalVerbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(waiversCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

func main() {
	// A missing .env file is not an error
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode prints err and maps it to a process exit code
func exitCode(err error) int {
	var exitErr *CheckExitError
	if errors.As(err, &exitErr) {
		if exitErr.Message != "" {
			fmt.Fprintf(os.Stderr, "Error: %s\n", exitErr.Message)
		}
		return exitErr.Code
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return constants.ExitError
}

// commandLogger builds a logger from the global flags, or returns nil so the
// configuration decides
func commandLogger() *slog.Logger {
	level := globalLogLevel
	if globalVerbose {
		level = "debug"
	}
	if level == "" && globalLogFormat == "" {
		return nil
	}
	if level == "" {
		level = "warn"
	}
	return logging.New(os.Stderr, globalLogFormat, level)
}

// openWorkspace opens the repository containing target, converting failures
// into exit code 2
func openWorkspace(target string) (*app.Workspace, error) {
	ws, err := app.OpenWorkspace(app.WorkspaceOptions{
		Target:     target,
		ConfigPath: globalConfigPath,
		Logger:     commandLogger(),
	})
	if err != nil {
		return nil, asExitError(err)
	}
	return ws, nil
}

// asExitError wraps err as an exit code 2 failure
func asExitError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *CheckExitError
	if errors.As(err, &exitErr) {
		return err
	}
	msg := err.Error()
	var de domain.DomainError
	if errors.As(err, &de) && de.Code == domain.ErrCodeConfigError {
		msg = "configuration error: " + msg
	}
	return &CheckExitError{Code: constants.ExitError, Message: msg}
}

func versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", constants.AppName, version.GetVersion())
			}
		},
	}

	cmd.Flags().BoolP("verbose", "v", false, "Show detailed version information")
	return cmd
}
