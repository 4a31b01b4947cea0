package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kingrea/savefile/internal/config"
	"github.com/kingrea/savefile/internal/emitter"
	"github.com/kingrea/savefile/internal/function"
	"github.com/kingrea/savefile/internal/logging"
)

const version = "v0.3.0"

var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error:")+" "+err.Error())
		os.Exit(1)
	}
}

// app carries the state shared by every subcommand.
type app struct {
	projectDir  string
	root        string
	verbose     bool
	metricsFile string

	cfg      *config.Config
	logger   *logging.Logger
	metrics  *prometheus.Registry
	emitter  *emitter.FileEmitter
	registry *function.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "savefile",
		Short:         "Write template-emitted files beneath a sandboxed output root",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.projectDir, "project", "", "project directory (defaults to cwd)")
	flags.StringVar(&a.root, "root", "", "output root override (defaults to output.root in .savefile/config.yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "mirror log events to stderr")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus text-format metrics to this file on exit")

	root.AddCommand(
		newInitCmd(a),
		newWriteCmd(a),
		newApplyCmd(a),
		newRenderCmd(a),
	)
	return root
}

func (a *app) resolveProject() (string, error) {
	project := strings.TrimSpace(a.projectDir)
	if project == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory: %w", err)
		}
		project = wd
	}
	abs, err := filepath.Abs(project)
	if err != nil {
		return "", fmt.Errorf("resolve project dir: %w", err)
	}
	return abs, nil
}

// setup loads config and wires the logger, metrics, emitter and registry.
func (a *app) setup() error {
	project, err := a.resolveProject()
	if err != nil {
		return err
	}
	cfg, err := config.NewConfig(project)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	var console io.Writer
	if a.verbose {
		console = os.Stderr
	}
	a.logger, err = logging.New(project, console)
	if err != nil {
		return err
	}

	a.metrics = prometheus.NewRegistry()
	m, err := emitter.NewMetrics(a.metrics)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	outputRoot := cfg.OutputRoot()
	if strings.TrimSpace(a.root) != "" {
		outputRoot = a.root
	}
	a.emitter, err = emitter.New(outputRoot,
		emitter.WithStrictPaths(cfg.StrictPaths()),
		emitter.WithModes(cfg.DirMode(), cfg.FileMode()),
		emitter.WithLogger(a.logger.Zerolog()),
		emitter.WithMetrics(m),
	)
	if err != nil {
		return err
	}
	a.registry = function.NewRegistry()
	if err := function.RegisterBuiltins(a.registry, a.emitter); err != nil {
		return err
	}
	a.logger.Printf("savefile %s: output root %s (strict=%v)", version, a.emitter.Root(), a.emitter.Strict())
	return nil
}

func (a *app) close() error {
	var firstErr error
	if a.metricsFile != "" && a.metrics != nil {
		if err := prometheus.WriteToTextfile(a.metricsFile, a.metrics); err != nil {
			firstErr = fmt.Errorf("write metrics: %w", err)
		}
	}
	if err := a.logger.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// run wraps a subcommand body with setup and teardown.
func (a *app) run(body func() error) error {
	if err := a.setup(); err != nil {
		_ = a.logger.Close()
		return err
	}
	err := body()
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	return err
}
