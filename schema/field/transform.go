package field

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"time"
	"unicode/utf8"
)

// Date layouts accepted by the date variant, tried in order.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type textField struct{ base }

func (f *textField) TransformPersist(_ context.Context, v any, opts *PersistOptions) (any, error) {
	if v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, f.valueError(opts, "expected a string, got %T", v)
	}
	n := utf8.RuneCountInString(s)
	if f.desc.MinLen > 0 && n < f.desc.MinLen {
		return nil, f.valueError(opts, "value is shorter than the minimum length %d", f.desc.MinLen)
	}
	if f.desc.Size > 0 && n > f.desc.Size {
		return nil, f.valueError(opts, "value exceeds the maximum length %d", f.desc.Size)
	}
	return s, nil
}

func (f *textField) TransformRetrieve(v any) (any, error) {
	if v == nil {
		return f.retrieveDefault(), nil
	}
	switch v := v.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return nil, fmt.Errorf("field %q: cannot read %T as text", f.desc.Name, v)
	}
}

type numberField struct{ base }

func (f *numberField) TransformPersist(_ context.Context, v any, opts *PersistOptions) (any, error) {
	if v == nil {
		return nil, nil
	}
	n, ok := toFloat(v)
	if !ok {
		return nil, f.valueError(opts, "expected a number, got %T", v)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, f.valueError(opts, "value is not a finite number")
	}
	if f.desc.Integer && n != math.Trunc(n) {
		return nil, f.valueError(opts, "expected an integer, got %v", v)
	}
	if f.desc.Min != nil && n < *f.desc.Min {
		return nil, f.valueError(opts, "value %v is below the minimum %v", n, *f.desc.Min)
	}
	if f.desc.Max != nil && n > *f.desc.Max {
		return nil, f.valueError(opts, "value %v is above the maximum %v", n, *f.desc.Max)
	}
	if f.desc.Integer {
		return int64(n), nil
	}
	return n, nil
}

func (f *numberField) TransformRetrieve(v any) (any, error) {
	if v == nil {
		return f.retrieveDefault(), nil
	}
	n, ok := toFloat(v)
	if !ok {
		return nil, fmt.Errorf("field %q: cannot read %T as number", f.desc.Name, v)
	}
	if f.desc.Integer {
		return int64(n), nil
	}
	return n, nil
}

type boolField struct{ base }

func (f *boolField) TransformPersist(_ context.Context, v any, opts *PersistOptions) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil, f.valueError(opts, "expected a boolean, got %T", v)
	}
	return b, nil
}

func (f *boolField) TransformRetrieve(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return f.retrieveDefault(), nil
	case bool:
		return v, nil
	case int64:
		// SQLite stores booleans as integers.
		return v != 0, nil
	default:
		return nil, fmt.Errorf("field %q: cannot read %T as bool", f.desc.Name, v)
	}
}

type dateField struct{ base }

func (f *dateField) TransformPersist(_ context.Context, v any, opts *PersistOptions) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v.UTC(), nil
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, f.valueError(opts, "cannot parse %q as a date", v)
	case int, int64, float64:
		n, _ := toFloat(v)
		return time.Unix(int64(n), 0).UTC(), nil
	default:
		return nil, f.valueError(opts, "expected a date, got %T", v)
	}
}

func (f *dateField) TransformRetrieve(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return f.retrieveDefault(), nil
	case time.Time:
		return v.UTC(), nil
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, fmt.Errorf("field %q: cannot read %q as date", f.desc.Name, v)
	case []byte:
		return f.TransformRetrieve(string(v))
	case int64:
		return time.Unix(v, 0).UTC(), nil
	default:
		return nil, fmt.Errorf("field %q: cannot read %T as date", f.desc.Name, v)
	}
}

type enumField struct{ base }

func (f *enumField) TransformPersist(_ context.Context, v any, opts *PersistOptions) (any, error) {
	if v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, f.valueError(opts, "expected an enum string, got %T", v)
	}
	if !slices.Contains(f.desc.Values, s) {
		return nil, f.valueError(opts, "value %q is not one of %v", s, f.desc.Values)
	}
	return s, nil
}

func (f *enumField) TransformRetrieve(v any) (any, error) {
	if v == nil {
		return f.retrieveDefault(), nil
	}
	switch v := v.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return nil, fmt.Errorf("field %q: cannot read %T as enum", f.desc.Name, v)
	}
}

type jsonField struct{ base }

func (f *jsonField) TransformPersist(_ context.Context, v any, opts *PersistOptions) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, f.valueError(opts, "value is not JSON-encodable: %v", err)
	}
	return string(b), nil
}

func (f *jsonField) TransformRetrieve(v any) (any, error) {
	var raw []byte
	switch v := v.(type) {
	case nil:
		return f.retrieveDefault(), nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return nil, fmt.Errorf("field %q: cannot read %T as json", f.desc.Name, v)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("field %q: invalid stored json: %w", f.desc.Name, err)
	}
	return out, nil
}

type relationField struct{ base }

// Target returns the related entity name.
func (f *relationField) Target() string { return f.desc.Target }

func (f *relationField) TransformPersist(_ context.Context, v any, opts *PersistOptions) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch v := v.(type) {
	case string:
		if v == "" {
			return nil, f.valueError(opts, "empty relation key")
		}
		return v, nil
	default:
		n, ok := toFloat(v)
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, f.valueError(opts, "expected a relation key, got %T", v)
		}
		if n != math.Trunc(n) {
			return nil, f.valueError(opts, "expected an integral relation key, got %v", v)
		}
		return int64(n), nil
	}
}

func (f *relationField) TransformRetrieve(v any) (any, error) {
	if v == nil {
		return f.retrieveDefault(), nil
	}
	return v, nil
}

type mediaField struct{ base }

func (f *mediaField) TransformPersist(_ context.Context, v any, opts *PersistOptions) (any, error) {
	if v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return nil, f.valueError(opts, "expected a media reference string, got %#v", v)
	}
	return s, nil
}

func (f *mediaField) TransformRetrieve(v any) (any, error) {
	if v == nil {
		return f.retrieveDefault(), nil
	}
	switch v := v.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return nil, fmt.Errorf("field %q: cannot read %T as media reference", f.desc.Name, v)
	}
}

// virtualField is computed at read time and never stored.
type virtualField struct{ base }

func (f *virtualField) TransformPersist(_ context.Context, _ any, opts *PersistOptions) (any, error) {
	return nil, f.valueError(opts, "virtual fields cannot be persisted")
}

func (f *virtualField) TransformRetrieve(v any) (any, error) {
	if v == nil {
		return f.retrieveDefault(), nil
	}
	return v, nil
}

// retrieveDefault substitutes the field default for a stored NULL.
func (b *base) retrieveDefault() any {
	if b.HasDefault() {
		return b.Default()
	}
	return nil
}

// valueError formats a validation failure with entity and field context.
func (b *base) valueError(opts *PersistOptions, format string, a ...any) error {
	msg := fmt.Sprintf(format, a...)
	if opts != nil && opts.Entity != "" {
		return fmt.Errorf("field %s.%s: %s", opts.Entity, b.desc.Name, msg)
	}
	return fmt.Errorf("field %q: %s", b.desc.Name, msg)
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
