package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/savefile/internal/render"
)

func newRenderCmd(a *app) *cobra.Command {
	var dataFile string
	cmd := &cobra.Command{
		Use:   "render TEMPLATE",
		Short: "Render a template with save_as_file in scope and print the result",
		Long: `Render a template from the configured templates directory. Templates call
functions with name/value pairs, for example:

  {{ save_as_file "path" "css/site.css" "data" .CSS }}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, argv []string) error {
			data, err := readTemplateData(dataFile)
			if err != nil {
				return err
			}
			return a.run(func() error {
				r := render.New(a.registry,
					render.WithTemplateDir(a.cfg.TemplatesDir()),
					render.WithExtensions(a.cfg.TemplateExtensions()...),
				)
				out, err := r.RenderFile(argv[0], data)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), out)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&dataFile, "data-file", "", "YAML file exposed to the template as dot")
	return cmd
}

func readTemplateData(path string) (map[string]any, error) {
	if strings.TrimSpace(path) == "" {
		return map[string]any{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template data %s: %w", path, err)
	}
	data := map[string]any{}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse template data %s: %w", path, err)
	}
	return data, nil
}
