package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/savefile/internal/args"
	"github.com/kingrea/savefile/internal/emitter"
)

var okStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)

type writeOptions struct {
	path     string
	data     string
	dataFile string
	base64   bool
	argsFile string
	sets     keyValueFlag
}

func newWriteCmd(a *app) *cobra.Command {
	opts := &writeOptions{}
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Run a single save_as_file call",
		Example: `  savefile write --path css/site.css --data 'body{}'
  savefile write --path img/dot.png --data-file dot.b64 --base64
  savefile write --args-file call.yaml

With --base64 the data file must hold one unwrapped line, as produced by
"base64 -w0". Surrounding whitespace is trimmed; line breaks inside the
payload are rejected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bag, err := buildWriteArgs(cmd.Flags(), opts)
			if err != nil {
				return err
			}
			return a.run(func() error {
				if _, err := a.registry.Call(emitter.FunctionName, bag); err != nil {
					return err
				}
				path, _ := bag.RequiredString("path")
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", okStyle.Render("saved"), path)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.path, "path", "", "destination, relative to the output root")
	f.StringVar(&opts.data, "data", "", "payload text (or base64 with --base64)")
	f.StringVar(&opts.dataFile, "data-file", "", "read the payload from a file")
	f.BoolVar(&opts.base64, "base64", false, "treat the payload as base64-encoded binary")
	f.StringVar(&opts.argsFile, "args-file", "", "YAML file with the argument bag")
	f.Var(&opts.sets, "set", "extra string argument (key=value, repeatable)")
	cmd.MarkFlagsMutuallyExclusive("data", "data-file")
	return cmd
}

// buildWriteArgs layers the args file, --set values and the explicit flags,
// in that order, into one bag. Flags only apply when set on the command line
// so an args file can carry a typed base64 value.
func buildWriteArgs(flags *pflag.FlagSet, opts *writeOptions) (args.Bag, error) {
	bag := args.Bag{}
	if path := strings.TrimSpace(opts.argsFile); path != "" {
		fileBag, err := readArgsFile(path)
		if err != nil {
			return nil, err
		}
		for k, v := range fileBag {
			bag[k] = v
		}
	}
	for k, v := range opts.sets {
		bag[k] = args.String(v)
	}
	if flags.Changed("path") {
		bag["path"] = args.String(opts.path)
	}
	if flags.Changed("data") {
		bag["data"] = args.String(opts.data)
	}
	if flags.Changed("data-file") {
		data, err := os.ReadFile(opts.dataFile)
		if err != nil {
			return nil, fmt.Errorf("read data file %s: %w", opts.dataFile, err)
		}
		payload := string(data)
		if opts.base64 {
			payload = strings.TrimSpace(payload)
		}
		bag["data"] = args.String(payload)
	}
	if flags.Changed("base64") {
		bag["base64"] = args.Bool(opts.base64)
	}
	return bag, nil
}

func readArgsFile(path string) (args.Bag, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open args file %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, expected a file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read args file %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("args file %s is empty", path)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse args file %s: %w", path, err)
	}
	bag, err := args.BagFromMap(raw)
	if err != nil {
		return nil, fmt.Errorf("args file %s: %w", path, err)
	}
	return bag, nil
}

type keyValueFlag map[string]string

func (kv *keyValueFlag) String() string {
	if kv == nil || len(*kv) == 0 {
		return ""
	}
	var pairs []string
	for key, value := range *kv {
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, value))
	}
	return strings.Join(pairs, ", ")
}

func (kv *keyValueFlag) Set(value string) error {
	parts := strings.SplitN(value, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	key := strings.TrimSpace(parts[0])
	if key == "" {
		return fmt.Errorf("argument key is empty in %q", value)
	}
	if *kv == nil {
		*kv = keyValueFlag{}
	}
	(*kv)[key] = parts[1]
	return nil
}

func (kv *keyValueFlag) Type() string { return "key=value" }
