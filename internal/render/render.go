// Package render exposes registered functions to text/template so templates
// can emit side files while they render.
package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/kingrea/savefile/internal/args"
	"github.com/kingrea/savefile/internal/function"
)

// Renderer renders templates with every registry function in scope.
type Renderer struct {
	registry   *function.Registry
	dir        string
	extensions []string
}

// Option customizes a Renderer during construction.
type Option func(*Renderer)

// WithTemplateDir sets the directory RenderFile loads templates from.
func WithTemplateDir(dir string) Option {
	return func(r *Renderer) {
		r.dir = strings.TrimSpace(dir)
	}
}

// WithExtensions limits RenderFile to names ending in one of exts.
func WithExtensions(exts ...string) Option {
	return func(r *Renderer) {
		r.extensions = append([]string(nil), exts...)
	}
}

// New builds a renderer backed by reg.
func New(reg *function.Registry, opts ...Option) *Renderer {
	r := &Renderer{registry: reg}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FuncMap returns one template func per registered function. Templates pass
// arguments as alternating name/value pairs:
//
//	{{ save_as_file "path" "css/site.css" "data" .CSS }}
func (r *Renderer) FuncMap() template.FuncMap {
	funcs := template.FuncMap{}
	for _, name := range r.registry.Names() {
		name := name
		funcs[name] = func(pairs ...any) (any, error) {
			bag, err := PairsToBag(name, pairs)
			if err != nil {
				return nil, err
			}
			v, err := r.registry.Call(name, bag)
			if err != nil {
				return nil, err
			}
			return v.Interface(), nil
		}
	}
	return funcs
}

// PairsToBag turns alternating name/value template arguments into a Bag.
func PairsToBag(fn string, pairs []any) (args.Bag, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("render: %s expects name/value pairs, got %d arguments", fn, len(pairs))
	}
	bag := make(args.Bag, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("render: %s argument name at position %d must be a string, got %T", fn, i, pairs[i])
		}
		v, err := args.FromAny(pairs[i+1])
		if err != nil {
			return nil, fmt.Errorf("render: %s argument %s: %w", fn, key, err)
		}
		bag[key] = v
	}
	return bag, nil
}

// RenderString parses and executes text as a template named name.
func (r *Renderer) RenderString(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Funcs(r.FuncMap()).Parse(text)
	if err != nil {
		return "", fmt.Errorf("render: parse %s: %w", name, err)
	}
	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render: execute %s: %w", name, err)
	}
	return out.String(), nil
}

// RenderFile renders a template stored under the template directory. name
// must be a local path; absolute names or names climbing out are rejected.
func (r *Renderer) RenderFile(name string, data any) (string, error) {
	if r.dir == "" {
		return "", fmt.Errorf("render: template directory is not configured")
	}
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("render: template name %q must be relative to %s", name, r.dir)
	}
	if !r.allowed(name) {
		return "", fmt.Errorf("render: %s does not have a template extension (%s)", name, strings.Join(r.extensions, ", "))
	}
	text, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		return "", fmt.Errorf("render: read %s: %w", name, err)
	}
	return r.RenderString(name, string(text), data)
}

func (r *Renderer) allowed(name string) bool {
	if len(r.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range r.extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
