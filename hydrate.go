package tabula

import (
	"fmt"

	"github.com/syssam/tabula/schema/field"
)

// Hydrate converts raw stored rows of the named entity into their
// application form. Per column: a known field goes through
// TransformRetrieve (substituting the field default for NULL); a column
// matching a relation reference hydrates its nested rows recursively
// against the target entity; virtual fields are skipped; anything else
// is an error carrying entity and column context.
func (m *EntityManager) Hydrate(entity string, rows []map[string]any) ([]EntityData, error) {
	e, err := m.Entity(entity)
	if err != nil {
		return nil, err
	}
	out := make([]EntityData, 0, len(rows))
	for _, row := range rows {
		data, err := m.hydrateRow(e, row)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

func (m *EntityManager) hydrateRow(e *Entity, row map[string]any) (EntityData, error) {
	data := make(EntityData, len(row))
	for column, raw := range row {
		f, ok := e.Field(column)
		switch {
		case ok && f.Type() == field.TypeVirtual:
			continue
		case ok:
			v, err := f.TransformRetrieve(raw)
			if err != nil {
				return nil, NewEntityValidationError(e.Name(), column, err)
			}
			data[column] = v
		default:
			rel, found := m.Relation(e.Name(), column)
			if !found {
				return nil, NewEntityValidationError(e.Name(), column,
					fmt.Errorf("unknown column in stored row"))
			}
			nested, err := m.hydrateRelated(rel.Target(), raw)
			if err != nil {
				return nil, NewEntityValidationError(e.Name(), column, err)
			}
			data[column] = nested
		}
	}
	return data, nil
}

// hydrateRelated hydrates eager-loaded relation values: a single nested
// row or a slice of them.
func (m *EntityManager) hydrateRelated(target string, raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		rows, err := m.Hydrate(target, []map[string]any{v})
		if err != nil {
			return nil, err
		}
		return rows[0], nil
	case []map[string]any:
		return m.Hydrate(target, v)
	case []any:
		rows := make([]map[string]any, 0, len(v))
		for _, item := range v {
			row, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("related row has unexpected type %T", item)
			}
			rows = append(rows, row)
		}
		return m.Hydrate(target, rows)
	default:
		return nil, fmt.Errorf("related value has unexpected type %T", raw)
	}
}
