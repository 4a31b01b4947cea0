package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/savefile/internal/emitter"
	"github.com/kingrea/savefile/internal/manifest"
	"github.com/kingrea/savefile/internal/tui"
)

func newApplyCmd(a *app) *cobra.Command {
	var interactive bool
	cmd := &cobra.Command{
		Use:   "apply MANIFEST",
		Short: "Run every save_as_file call listed in a YAML manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, argv []string) error {
			entries, err := manifest.Load(argv[0])
			if err != nil {
				return err
			}
			return a.run(func() error {
				fn, ok := a.registry.Lookup(emitter.FunctionName)
				if !ok {
					return fmt.Errorf("%s is not registered", emitter.FunctionName)
				}
				var results []manifest.Result
				if interactive {
					model := tui.NewBatchModel("savefile apply "+argv[0], fn, entries)
					final, err := tea.NewProgram(model).Run()
					if err != nil {
						return fmt.Errorf("run progress view: %w", err)
					}
					results = final.(*tui.BatchModel).Results()
				} else {
					out := cmd.OutOrStdout()
					results = manifest.Run(fn, entries, func(res manifest.Result) {
						fmt.Fprintln(out, tui.ResultLine(res))
					})
					fmt.Fprintln(out, tui.Summary(results, len(entries)))
				}
				for _, res := range results {
					if !res.OK() {
						a.logger.Printf("apply %s: entry %d failed: %v", argv[0], res.Index, res.Err)
					}
				}
				if failed := manifest.Failed(results); failed > 0 || len(results) < len(entries) {
					return fmt.Errorf("%d of %d writes did not complete", len(entries)-len(results)+failed, len(entries))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&interactive, "tui", false, "show an interactive progress view")
	return cmd
}
