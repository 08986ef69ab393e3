// Package load reads declarative entity definitions from YAML or JSON
// config files and turns them into runtime entities, relations and
// indexes. It is the config-file counterpart to assembling entities in
// code with the schema/field builders.
package load

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/syssam/tabula"
)

// Schema is one entity definition as declared in a config file.
type Schema struct {
	Name         string      `json:"name" yaml:"name"`
	Type         string      `json:"type,omitempty" yaml:"type,omitempty"`
	Label        string      `json:"label,omitempty" yaml:"label,omitempty"`
	DisplayField string      `json:"displayField,omitempty" yaml:"displayField,omitempty"`
	DefaultSort  string      `json:"defaultSort,omitempty" yaml:"defaultSort,omitempty"`
	Description  string      `json:"description,omitempty" yaml:"description,omitempty"`
	Mixins       []string    `json:"mixins,omitempty" yaml:"mixins,omitempty"`
	Fields       []*Field    `json:"fields,omitempty" yaml:"fields,omitempty"`
	Relations    []*Relation `json:"relations,omitempty" yaml:"relations,omitempty"`
	Indexes      []*Index    `json:"indexes,omitempty" yaml:"indexes,omitempty"`
}

// Field is one field definition inside a Schema.
type Field struct {
	Name       string            `json:"name" yaml:"name"`
	Type       string            `json:"type" yaml:"type"`
	Label      string            `json:"label,omitempty" yaml:"label,omitempty"`
	Size       int               `json:"size,omitempty" yaml:"size,omitempty"`
	MinLen     int               `json:"minLen,omitempty" yaml:"minLen,omitempty"`
	Min        *float64          `json:"min,omitempty" yaml:"min,omitempty"`
	Max        *float64          `json:"max,omitempty" yaml:"max,omitempty"`
	Integer    bool              `json:"integer,omitempty" yaml:"integer,omitempty"`
	Default    any               `json:"default,omitempty" yaml:"default,omitempty"`
	Required   bool              `json:"required,omitempty" yaml:"required,omitempty"`
	Nullable   bool              `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	Unique     bool              `json:"unique,omitempty" yaml:"unique,omitempty"`
	Values     []string          `json:"values,omitempty" yaml:"values,omitempty"`
	Fillable   []string          `json:"fillable,omitempty" yaml:"fillable,omitempty"`
	Hidden     []string          `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Format     string            `json:"format,omitempty" yaml:"format,omitempty"`
	Handler    *Handler          `json:"handler,omitempty" yaml:"handler,omitempty"`
	Target     string            `json:"target,omitempty" yaml:"target,omitempty"`
	SchemaType map[string]string `json:"schemaType,omitempty" yaml:"schemaType,omitempty"`
	Comment    string            `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// Handler configures custom primary-key generation for a declared
// primary field. In-process function handlers cannot be expressed in
// config; only registry and import dispatch are available here.
type Handler struct {
	Kind       string         `json:"kind" yaml:"kind"`
	ID         string         `json:"id,omitempty" yaml:"id,omitempty"`
	ImportPath string         `json:"importPath,omitempty" yaml:"importPath,omitempty"`
	Function   string         `json:"function,omitempty" yaml:"function,omitempty"`
	Options    map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
}

// Relation is one declared relation, owned by the schema it appears in.
type Relation struct {
	Target    string `json:"target" yaml:"target"`
	Reference string `json:"reference,omitempty" yaml:"reference,omitempty"`
	Type      string `json:"type" yaml:"type"`
}

// Index is one declared index.
type Index struct {
	Fields     []string `json:"fields" yaml:"fields"`
	Unique     bool     `json:"unique,omitempty" yaml:"unique,omitempty"`
	StorageKey string   `json:"storageKey,omitempty" yaml:"storageKey,omitempty"`
}

// UnmarshalSchema decodes a single schema document. YAML is a superset
// of JSON, so both config styles go through the same decoder. Names are
// normalized and missing labels derived before the schema is returned.
func UnmarshalSchema(data []byte) (*Schema, error) {
	s := &Schema{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, tabula.NewConfigurationError("schema", "", fmt.Errorf("decode: %w", err))
	}
	if s.Name == "" {
		return nil, tabula.NewConfigurationError("schema", "", fmt.Errorf("entity name is required"))
	}
	s.normalize()
	return s, nil
}

// MarshalSchema encodes a schema back to its YAML document form.
func MarshalSchema(s *Schema) ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, tabula.NewConfigurationError("schema", s.Name, fmt.Errorf("encode: %w", err))
	}
	return data, nil
}

// Load reads and decodes one schema file from fsys.
func Load(fsys afero.Fs, path string) (*Schema, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, tabula.NewConfigurationError("schema", path, err)
	}
	s, err := UnmarshalSchema(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// LoadDir reads every .yaml, .yml and .json file directly under dir, in
// lexical filename order.
func LoadDir(fsys afero.Fs, dir string) ([]*Schema, error) {
	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, tabula.NewConfigurationError("schema", dir, err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		switch filepath.Ext(info.Name()) {
		case ".yaml", ".yml", ".json":
			names = append(names, info.Name())
		}
	}
	sort.Strings(names)
	schemas := make([]*Schema, 0, len(names))
	for _, name := range names {
		s, err := Load(fsys, filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

// Apply constructs the given schemas and registers them on the manager:
// all entities first, then relations, then declared and mixin indexes,
// finishing with pending-index resolution. Partial application is not
// rolled back; callers wanting isolation apply to a Fork first.
func Apply(m *tabula.EntityManager, schemas ...*Schema) error {
	for _, s := range schemas {
		e, err := ConstructEntity(s)
		if err != nil {
			return err
		}
		if err := m.AddEntity(e); err != nil {
			return err
		}
	}
	for _, s := range schemas {
		for _, rd := range s.Relations {
			r, err := ConstructRelation(s.Name, rd)
			if err != nil {
				return err
			}
			if err := m.AddRelation(r); err != nil {
				return err
			}
		}
	}
	for _, s := range schemas {
		descs, err := schemaIndexes(s)
		if err != nil {
			return err
		}
		for _, desc := range descs {
			if err := m.AddIndex(entityName(s.Name), desc, false); err != nil {
				return err
			}
		}
	}
	return m.ResolvePendingIndexes()
}

// watchDebounce is how long the watcher waits after the last filesystem
// event before reloading. Editors often write config files in bursts.
const watchDebounce = 250 * time.Millisecond

// Watch reloads the schema directory whenever a config file under it
// changes and hands the reloaded schemas to onChange. It blocks until
// ctx is canceled. Load and callback failures are logged and watching
// continues; the previous good configuration simply stays in effect.
func Watch(ctx context.Context, dir string, onChange func([]*Schema) error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("load: watch %s: %w", dir, err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("load: watch %s: %w", dir, err)
	}

	logger := slog.Default().With("dir", dir)
	fsys := afero.NewOsFs()
	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !configFile(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(watchDebounce)
			pending = timer.C
		case <-pending:
			pending = nil
			schemas, err := LoadDir(fsys, dir)
			if err != nil {
				logger.Error("schema reload failed", "error", err)
				continue
			}
			logger.Info("schema configuration changed", "schemas", len(schemas))
			if err := onChange(schemas); err != nil {
				logger.Error("schema reload rejected", "error", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("schema watcher error", "error", err)
		}
	}
}

func configFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
