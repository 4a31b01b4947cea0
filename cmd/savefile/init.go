package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kingrea/savefile/internal/config"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create .savefile/ with a default config.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, err := a.resolveProject()
			if err != nil {
				return err
			}
			if err := config.InitDir(project); err != nil {
				return fmt.Errorf("init %s: %w", config.Dir, err)
			}
			cfg, err := config.NewConfig(project)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if root := strings.TrimSpace(a.root); root != "" {
				if err := cfg.SetOutputRoot(root); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (output root %s)\n", okStyle.Render("initialized"), cfg.ProjectConfigPath(), cfg.OutputRoot())
			return nil
		},
	}
}
