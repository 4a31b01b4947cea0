// internal/config/config.go
//
// This package handles configuration and the .savefile directory structure.
// Every project that renders with savefile gets a .savefile/ folder in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// Dir is the name of the directory we create in each project
	Dir = ".savefile"

	// OutputRootEnv overrides output.root when set.
	OutputRootEnv = "SAVEFILE_OUTPUT_ROOT"

	defaultOutputRoot   = "public"
	defaultTemplatesDir = "templates"
	defaultDirMode      = "0755"
	defaultFileMode     = "0644"
)

const defaultProjectConfigYAML = `# savefile project configuration
version: 1

output:
  # Directory every save_as_file call is sandboxed beneath. Relative paths
  # resolve against the project directory.
  root: public
  # Reject paths that resolve outside the root even without a "/.." segment.
  strict_paths: true
  dir_mode: "0755"
  file_mode: "0644"

templates:
  dir: templates
  extensions:
    - .tmpl
`

// OutputConfig describes where and how files are written.
type OutputConfig struct {
	Root        string `yaml:"root"`
	StrictPaths *bool  `yaml:"strict_paths,omitempty"`
	DirMode     string `yaml:"dir_mode,omitempty"`
	FileMode    string `yaml:"file_mode,omitempty"`
}

// TemplatesConfig locates templates rendered by `savefile render`.
type TemplatesConfig struct {
	Dir        string   `yaml:"dir"`
	Extensions []string `yaml:"extensions,omitempty"`
}

// ProjectConfig models .savefile/config.yaml.
type ProjectConfig struct {
	Version   int             `yaml:"version"`
	Output    OutputConfig    `yaml:"output"`
	Templates TemplatesConfig `yaml:"templates"`
}

// Config holds the runtime configuration for savefile.
type Config struct {
	// ProjectDir is the directory savefile was run from
	ProjectDir string

	// ProjectConfigDir is ProjectDir/.savefile
	ProjectConfigDir string

	// Project holds resolved values; paths are absolute.
	Project ProjectConfig

	// raw holds config.yaml values before path resolution and is what
	// saveProjectConfig writes back.
	raw ProjectConfig

	rootOverride string
}

// InitDir creates the .savefile directory structure in the given project
// directory and seeds config.yaml when it is missing.
//
// .savefile/
// ├── config.yaml
// └── logs/
func InitDir(projectDir string) error {
	dir := filepath.Join(projectDir, Dir)
	if err := os.MkdirAll(filepath.Join(dir, "logs"), 0o755); err != nil {
		return err
	}
	return ensureProjectConfig(filepath.Join(dir, "config.yaml"))
}

// NewConfig loads the project configuration, falling back to defaults when
// .savefile/config.yaml does not exist.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:       projectDir,
		ProjectConfigDir: filepath.Join(projectDir, Dir),
		Project:          defaultProjectConfig(),
		raw:              defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	if env := strings.TrimSpace(os.Getenv(OutputRootEnv)); env != "" {
		cfg.rootOverride = resolvePath(projectDir, env)
	}
	return cfg, nil
}

// OutputRoot returns the absolute sandbox root for written files.
func (c *Config) OutputRoot() string {
	if c.rootOverride != "" {
		return c.rootOverride
	}
	return c.Project.Output.Root
}

// StrictPaths reports whether the ancestor check is enabled.
func (c *Config) StrictPaths() bool {
	if c.Project.Output.StrictPaths == nil {
		return true
	}
	return *c.Project.Output.StrictPaths
}

// DirMode returns the permission bits for created directories.
func (c *Config) DirMode() fs.FileMode {
	mode, _ := parseMode(c.Project.Output.DirMode)
	return mode
}

// FileMode returns the permission bits for written files.
func (c *Config) FileMode() fs.FileMode {
	mode, _ := parseMode(c.Project.Output.FileMode)
	return mode
}

// TemplatesDir returns the directory templates are loaded from
func (c *Config) TemplatesDir() string {
	return c.Project.Templates.Dir
}

// TemplateExtensions returns the file extensions treated as templates
func (c *Config) TemplateExtensions() []string {
	return append([]string(nil), c.Project.Templates.Extensions...)
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.ProjectConfigDir, "logs")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.ProjectConfigDir, "config.yaml")
}

// SetOutputRoot updates output.root and persists the value back to
// .savefile/config.yaml.
func (c *Config) SetOutputRoot(root string) error {
	root = strings.TrimSpace(root)
	if root == "" {
		return fmt.Errorf("config: output root is required")
	}
	c.raw.Output.Root = root
	c.Project.Output.Root = resolvePath(c.ProjectDir, root)
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.Project.normalize(c.ProjectDir)
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.raw = parsed.clone()
	parsed.normalize(c.ProjectDir)

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	strict := true
	return ProjectConfig{
		Version: 1,
		Output: OutputConfig{
			Root:        defaultOutputRoot,
			StrictPaths: &strict,
			DirMode:     defaultDirMode,
			FileMode:    defaultFileMode,
		},
		Templates: TemplatesConfig{
			Dir:        defaultTemplatesDir,
			Extensions: []string{".tmpl"},
		},
	}
}

func (pc ProjectConfig) clone() ProjectConfig {
	out := pc
	if pc.Output.StrictPaths != nil {
		strict := *pc.Output.StrictPaths
		out.Output.StrictPaths = &strict
	}
	out.Templates.Extensions = append([]string(nil), pc.Templates.Extensions...)
	return out
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Output.Root) == "" {
		pc.Output.Root = defaultOutputRoot
	}
	if strings.TrimSpace(pc.Output.DirMode) == "" {
		pc.Output.DirMode = defaultDirMode
	}
	if strings.TrimSpace(pc.Output.FileMode) == "" {
		pc.Output.FileMode = defaultFileMode
	}
	if strings.TrimSpace(pc.Templates.Dir) == "" {
		pc.Templates.Dir = defaultTemplatesDir
	}
	if len(pc.Templates.Extensions) == 0 {
		pc.Templates.Extensions = []string{".tmpl"}
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Output.Root = resolvePath(base, pc.Output.Root)
	pc.Templates.Dir = resolvePath(base, pc.Templates.Dir)
	for i, ext := range pc.Templates.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		pc.Templates.Extensions[i] = ext
	}
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if _, err := parseMode(pc.Output.DirMode); err != nil {
		return fmt.Errorf("output.dir_mode: %w", err)
	}
	if _, err := parseMode(pc.Output.FileMode); err != nil {
		return fmt.Errorf("output.file_mode: %w", err)
	}
	return nil
}

func parseMode(value string) (fs.FileMode, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(trimmed, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid octal mode %q", value)
	}
	if n > 0o777 {
		return 0, fmt.Errorf("mode %q has bits outside 0777", value)
	}
	return fs.FileMode(n), nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.raw.applyDefaults()
	if err := c.raw.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.ProjectConfigDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure config dir: %w", err)
	}
	data, err := yaml.Marshal(c.raw)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
