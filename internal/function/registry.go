// Package function keeps the named callables a template host may invoke.
package function

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kingrea/savefile/internal/args"
	"github.com/kingrea/savefile/internal/emitter"
)

// ErrUnknownFunction is returned when Call names an unregistered function.
var ErrUnknownFunction = errors.New("function: unknown function")

// Function is implemented by every template-callable operation.
type Function interface {
	Name() string
	Call(bag args.Bag) (args.Value, error)
	// IsSafe reports whether the result may be placed in rendered output
	// without escaping.
	IsSafe() bool
}

// CallFunc adapts a plain func to Function via New.
type CallFunc func(bag args.Bag) (args.Value, error)

type funcAdapter struct {
	name string
	safe bool
	fn   CallFunc
}

func (f funcAdapter) Name() string                          { return f.name }
func (f funcAdapter) IsSafe() bool                          { return f.safe }
func (f funcAdapter) Call(bag args.Bag) (args.Value, error) { return f.fn(bag) }

// New wraps fn as a Function.
func New(name string, safe bool, fn CallFunc) Function {
	return funcAdapter{name: name, safe: safe, fn: fn}
}

// Registry maintains known functions by name.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Function
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: map[string]Function{}}
}

// Register installs fn. Returns an error if the name already exists.
func (r *Registry) Register(fn Function) error {
	if fn == nil {
		return fmt.Errorf("function: function is required")
	}
	name := fn.Name()
	if name == "" {
		return fmt.Errorf("function: name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[name]; exists {
		return fmt.Errorf("function: %s already registered", name)
	}
	r.funcs[name] = fn
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(fn Function) {
	if err := r.Register(fn); err != nil {
		panic(err)
	}
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Call invokes the named function with bag.
func (r *Registry) Call(name string, bag args.Bag) (args.Value, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return args.Value{}, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return fn.Call(bag)
}

// Names returns a sorted list of registered function names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterBuiltins installs the functions shipped with savefile.
func RegisterBuiltins(reg *Registry, out *emitter.FileEmitter) error {
	if out == nil {
		return fmt.Errorf("function: emitter is required for %s", emitter.FunctionName)
	}
	return reg.Register(out)
}
