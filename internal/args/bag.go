package args

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrMissing reports a required argument that was not supplied.
	ErrMissing = errors.New("args: missing argument")
	// ErrWrongType reports an argument whose kind does not match the accessor.
	ErrWrongType = errors.New("args: wrong argument type")
)

// Error describes a failed argument lookup.
type Error struct {
	Name string
	Want Kind
	Got  Kind
	// Missing is true when the key was absent (or explicitly null).
	Missing bool
}

func (e *Error) Error() string {
	if e.Missing {
		return fmt.Sprintf("args: %s is required (%s)", e.Name, e.Want)
	}
	return fmt.Sprintf("args: %s must be a %s, got %s", e.Name, e.Want, e.Got)
}

func (e *Error) Unwrap() error {
	if e.Missing {
		return ErrMissing
	}
	return ErrWrongType
}

// Bag is the per-call set of named arguments.
type Bag map[string]Value

// BagFromMap converts a plain map (typically decoded YAML) into a Bag.
func BagFromMap(raw map[string]any) (Bag, error) {
	bag := make(Bag, len(raw))
	for key, value := range raw {
		converted, err := FromAny(value)
		if err != nil {
			return nil, fmt.Errorf("args: %s: %w", key, err)
		}
		bag[key] = converted
	}
	return bag, nil
}

// Get returns the raw value stored under name.
func (b Bag) Get(name string) (Value, bool) {
	v, ok := b[name]
	return v, ok
}

// RequiredString returns the string stored under name or an *Error.
func (b Bag) RequiredString(name string) (string, error) {
	v, ok := b[name]
	if !ok || v.IsNull() {
		return "", &Error{Name: name, Want: KindString, Missing: true}
	}
	s, ok := v.AsString()
	if !ok {
		return "", &Error{Name: name, Want: KindString, Got: v.Kind()}
	}
	return s, nil
}

// OptionalBool returns the boolean stored under name, def when it is absent
// or null, and an *Error when a non-bool value is present.
func (b Bag) OptionalBool(name string, def bool) (bool, error) {
	v, ok := b[name]
	if !ok || v.IsNull() {
		return def, nil
	}
	flag, ok := v.AsBool()
	if !ok {
		return def, &Error{Name: name, Want: KindBool, Got: v.Kind()}
	}
	return flag, nil
}

// Keys returns the argument names in sorted order.
func (b Bag) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
