package main

import (
	"fmt"

	"github.com/ludo-technologies/ccheck/internal/config"
	"github.com/ludo-technologies/ccheck/internal/repo"
	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	var defaults bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration ccheck would use as YAML, after defaults, the
config file and CCHECK_* environment variables are applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				out string
				err error
			)
			if defaults {
				out, err = config.DefaultConfigYAML()
			} else {
				target := "."
				if root, rerr := repo.FindRoot("."); rerr == nil {
					target = root
				}
				path := config.ResolvePath(globalConfigPath, target)
				var cfg *config.Config
				if cfg, err = config.LoadConfig(path); err == nil {
					if path != "" {
						fmt.Fprintf(cmd.ErrOrStderr(), "# loaded from %s\n", path)
					}
					out, err = config.ToYAML(cfg)
				}
			}
			if err != nil {
				return asExitError(err)
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&defaults, "defaults", false, "Print the built-in defaults instead")
	return cmd
}
