package cvar

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	// ErrUnknown is returned for a variable name that is not registered.
	ErrUnknown = errors.New("cvar: unknown variable")

	// ErrDuplicate is returned when a name is registered twice.
	ErrDuplicate = errors.New("cvar: variable already registered")

	// ErrReadOnly is returned when setting a ReadOnly variable.
	ErrReadOnly = errors.New("cvar: variable is read-only")

	// ErrInvalidName is returned for names that are empty or contain
	// whitespace or quotes.
	ErrInvalidName = errors.New("cvar: invalid variable name")
)

// Flags modify how a variable is stored and changed.
type Flags uint32

const (
	// Archive marks a variable for persistence in the archive file.
	Archive Flags = 1 << iota

	// ReadOnly rejects Set and Reset after registration.
	ReadOnly
)

// Has reports whether all bits of f2 are set in f.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// String returns the flag names joined by "|".
func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	if f.Has(Archive) {
		parts = append(parts, "archive")
	}
	if f.Has(ReadOnly) {
		parts = append(parts, "readonly")
	}
	if rest := f &^ (Archive | ReadOnly); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// Var is a registered variable.
type Var struct {
	name  string
	def   string
	flags Flags
	value atomic.Pointer[string]
}

// Name returns the variable name.
func (v *Var) Name() string { return v.name }

// Default returns the registered default value.
func (v *Var) Default() string { return v.def }

// Flags returns the variable flags.
func (v *Var) Flags() Flags { return v.flags }

// String returns the current value.
func (v *Var) String() string { return *v.value.Load() }

// Int returns the value as an integer. Fractional values truncate toward
// zero; unparsable values read as 0.
func (v *Var) Int() int {
	s := strings.TrimSpace(v.String())
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

// Float returns the value as a float32; unparsable values read as 0.
func (v *Var) Float() float32 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 32)
	if err != nil {
		return 0
	}
	return float32(f)
}

// Bool reports whether the integer value is non-zero.
func (v *Var) Bool() bool { return v.Int() != 0 }

// IsDefault reports whether the current value equals the default.
func (v *Var) IsDefault() bool { return v.String() == v.def }

func (v *Var) store(s string) { v.value.Store(&s) }

// Registry holds a set of variables by name.
type Registry struct {
	mu   sync.RWMutex
	vars map[string]*Var
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{vars: make(map[string]*Var)}
}

// Register adds a variable with its default value.
func (r *Registry) Register(name, def string, flags Flags) (*Var, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vars[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	v := &Var{name: name, def: def, flags: flags}
	v.store(def)
	r.vars[name] = v
	return v, nil
}

// MustRegister is like Register but panics on error. It is intended for
// package-level registration of fixed names.
func (r *Registry) MustRegister(name, def string, flags Flags) *Var {
	v, err := r.Register(name, def, flags)
	if err != nil {
		panic(err)
	}
	return v
}

// Find returns the variable called name.
func (r *Registry) Find(name string) (*Var, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vars[name]
	return v, ok
}

// Get returns the current value of name.
func (r *Registry) Get(name string) (string, error) {
	v, ok := r.Find(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	return v.String(), nil
}

// Set changes the value of name.
func (r *Registry) Set(name, value string) error {
	v, ok := r.Find(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	if v.flags.Has(ReadOnly) {
		return fmt.Errorf("%w: %s", ErrReadOnly, name)
	}
	old := v.String()
	v.store(value)
	if old != value {
		slogger().Debug("cvar: set", "name", name, "old", old, "value", value)
	}
	return nil
}

// Reset restores the default value of name.
func (r *Registry) Reset(name string) error {
	v, ok := r.Find(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	return r.Set(name, v.def)
}

// All returns every variable sorted by name.
func (r *Registry) All() []*Var {
	r.mu.RLock()
	out := make([]*Var, 0, len(r.vars))
	for _, v := range r.vars {
		out = append(out, v)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	return !strings.ContainsAny(name, " \t\r\n\"")
}
