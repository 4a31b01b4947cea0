// Package manifest loads YAML batches of write invocations and runs them
// against a template function.
package manifest

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/savefile/internal/args"
)

// Caller is satisfied by any template function, including the emitter.
type Caller interface {
	Call(bag args.Bag) (args.Value, error)
}

type document struct {
	Writes []map[string]any `yaml:"writes"`
}

// Result captures one entry's outcome.
type Result struct {
	Index int
	Path  string
	Value args.Value
	Err   error
}

// OK reports whether the entry succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Parse decodes a manifest payload. Values keep their YAML types so a quoted
// "true" for base64 is still rejected at call time.
func Parse(data []byte) ([]args.Bag, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("manifest: payload is empty")
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("manifest: decode: %w", err)
	}
	if len(doc.Writes) == 0 {
		return nil, fmt.Errorf("manifest: no writes declared")
	}
	entries := make([]args.Bag, 0, len(doc.Writes))
	for i, raw := range doc.Writes {
		bag, err := args.BagFromMap(raw)
		if err != nil {
			return nil, fmt.Errorf("manifest: writes[%d]: %w", i, err)
		}
		entries = append(entries, bag)
	}
	return entries, nil
}

// Load reads and parses a manifest file.
func Load(path string) ([]args.Bag, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("manifest: %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	entries, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// RunOne invokes fn for a single entry.
func RunOne(fn Caller, index int, entry args.Bag) Result {
	path, _ := entry.RequiredString("path")
	v, err := fn.Call(entry)
	return Result{Index: index, Path: path, Value: v, Err: err}
}

// Run invokes fn for every entry in order. A failed entry does not stop the
// ones after it. observe, when non-nil, sees each result as it lands.
func Run(fn Caller, entries []args.Bag, observe func(Result)) []Result {
	results := make([]Result, 0, len(entries))
	for i, entry := range entries {
		res := RunOne(fn, i, entry)
		if observe != nil {
			observe(res)
		}
		results = append(results, res)
	}
	return results
}

// Failed counts unsuccessful results.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.OK() {
			n++
		}
	}
	return n
}
