// Package tool defines the external-effect primitives agents may invoke and
// a registry for looking them up by name. Tools never check permissions
// themselves; every invocation goes through the permission gate first.
package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Operation describes one operation a tool exposes.
type Operation struct {
	// Name is the operation identifier, e.g. "write_file".
	Name string
	// Dangerous marks operations that require human approval.
	Dangerous bool
}

// Tool is an external-effect primitive. Each tool declares a static name and
// a fixed set of operations.
type Tool interface {
	// Name returns the tool's static name, e.g. "filesystem".
	Name() string
	// Operations returns the operations this tool supports.
	Operations() []Operation
	// Invoke performs one operation. Implementations should honor ctx for
	// cancellation and their own per-call timeout.
	Invoke(ctx context.Context, operation string, params map[string]any) (map[string]any, error)
}

// Rooted is implemented by tools whose side effects live under a directory.
// ForWorkspace returns a copy of the tool rooted at the given run workspace;
// the registry holds the shared-root instance, and each dispatch re-roots it
// so a run never writes into another run's workspace.
type Rooted interface {
	ForWorkspace(dir string) Tool
}

// Error wraps a tool invocation failure with its origin and a transience
// classification consumed by the retry manager.
type Error struct {
	Tool      string
	Operation string
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("tool %s.%s: %v", e.Tool, e.Operation, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether the operation may succeed on retry.
func (e *Error) IsTransient() bool { return e.Transient }

// ErrUnknownOperation indicates an operation name the tool does not support.
var ErrUnknownOperation = errors.New("unknown tool operation")

// ErrToolNotFound indicates a tool name not present in the registry.
var ErrToolNotFound = errors.New("tool not found")

// Registry holds the tools available to agents, keyed by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering a duplicate name is an error.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool %q already registered", t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// Get returns the tool with the given name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return t, nil
}

// Names returns the sorted names of all registered tools.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// hasOperation reports whether ops contains the named operation.
func hasOperation(ops []Operation, name string) bool {
	for _, op := range ops {
		if op.Name == name {
			return true
		}
	}
	return false
}
