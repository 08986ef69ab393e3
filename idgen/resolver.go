package idgen

import (
	"context"
	"errors"
	"fmt"
	"plugin"
	"sort"
	"strings"
	"sync"
)

// PluginSymbol is the symbol looked up in a Go plugin when the handler
// reference names no function.
const PluginSymbol = "GenerateID"

// Resolver resolves {import path, function name} handler references.
//
// Two strategies are supported. Provider modules registered through
// RegisterModule are the primary mechanism: extension packages register
// their exported generator functions under a module path at startup.
// Paths ending in ".so" instead load through the standard plugin package.
// Resolved functions are cached keyed by path and function name.
type Resolver struct {
	mu      sync.RWMutex
	modules map[string]map[string]GenerateFunc
	cache   map[string]GenerateFunc
}

// NewResolver returns an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{
		modules: make(map[string]map[string]GenerateFunc),
		cache:   make(map[string]GenerateFunc),
	}
}

var defaultResolver = NewResolver()

// DefaultResolver returns the process-wide resolver used by primary fields
// that were not bound to a private instance.
func DefaultResolver() *Resolver { return defaultResolver }

// RegisterModule registers a provider module under the given path. The
// exports map keys are function names; the empty key is the module's
// default export. Re-registering a path is an error.
func (r *Resolver) RegisterModule(path string, exports map[string]GenerateFunc) error {
	if path == "" {
		return errors.New("idgen: module path is required")
	}
	if len(exports) == 0 {
		return fmt.Errorf("idgen: module %q: at least one export is required", path)
	}
	for name, fn := range exports {
		if fn == nil {
			return fmt.Errorf("idgen: module %q: export %q is nil", path, name)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules[path]; ok {
		return fmt.Errorf("idgen: module %q already registered", path)
	}
	m := make(map[string]GenerateFunc, len(exports))
	for name, fn := range exports {
		m[name] = fn
	}
	r.modules[path] = m
	return nil
}

// Resolve returns the generator function referenced by path and function.
// An empty function selects the module's default export, or the
// PluginSymbol symbol for plugin paths.
func (r *Resolver) Resolve(path, function string) (GenerateFunc, error) {
	if path == "" {
		return nil, errors.New("idgen: import path is required")
	}
	key := path + "#" + function
	r.mu.RLock()
	fn, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return fn, nil
	}
	var err error
	if strings.HasSuffix(path, ".so") {
		fn, err = resolvePlugin(path, function)
	} else {
		fn, err = r.resolveModule(path, function)
	}
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.cache[key] = fn
	r.mu.Unlock()
	return fn, nil
}

func (r *Resolver) resolveModule(path, function string) (GenerateFunc, error) {
	r.mu.RLock()
	exports, ok := r.modules[path]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("idgen: module %q is not registered", path)
	}
	fn, ok := exports[function]
	if !ok {
		if function == "" {
			return nil, fmt.Errorf("idgen: module %q has no default export", path)
		}
		return nil, fmt.Errorf("idgen: module %q has no export %q", path, function)
	}
	return fn, nil
}

// resolvePlugin loads a Go plugin and extracts the generator symbol. The
// symbol must be a GenerateFunc-shaped function or a variable of that type.
func resolvePlugin(path, function string) (GenerateFunc, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("idgen: open plugin %q: %w", path, err)
	}
	name := function
	if name == "" {
		name = PluginSymbol
	}
	sym, err := p.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("idgen: plugin %q has no symbol %q: %w", path, name, err)
	}
	switch fn := sym.(type) {
	case func(context.Context, string, map[string]any) (any, error):
		return GenerateFunc(fn), nil
	case *GenerateFunc:
		if *fn == nil {
			return nil, fmt.Errorf("idgen: plugin %q: symbol %q is nil", path, name)
		}
		return *fn, nil
	default:
		return nil, fmt.Errorf("idgen: plugin %q: symbol %q is not an id generator (got %T)", path, name, sym)
	}
}

// ClearCache drops all cached resolutions.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]GenerateFunc)
}

// CachedHandlers returns the cache keys of all resolved functions, sorted.
func (r *Resolver) CachedHandlers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.cache))
	for k := range r.cache {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CachedModules returns the paths of all registered provider modules, sorted.
func (r *Resolver) CachedModules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.modules))
	for p := range r.modules {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
