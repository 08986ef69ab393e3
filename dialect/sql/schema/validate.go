package schema

import (
	"errors"
	"fmt"
)

// validateTables lints a desired table set before any change is planned.
// All problems are collected so a broken definition surfaces in one
// pass instead of one error per migration attempt. Referenced tables
// outside the set are not checked; they may already exist in the
// database.
func validateTables(tables []*Table) error {
	var problems []error
	seen := make(map[string]bool, len(tables))
	for _, t := range tables {
		if seen[t.Name] {
			problems = append(problems, fmt.Errorf("table %q declared twice", t.Name))
			continue
		}
		seen[t.Name] = true
		problems = append(problems, validateTable(t)...)
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("schema: invalid table definitions: %w", errors.Join(problems...))
}

// validateTable checks one table definition: column and index names must
// be unique, and indexes and foreign keys may only touch declared
// columns.
func validateTable(t *Table) []error {
	var problems []error
	cols := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if cols[c.Name] {
			problems = append(problems, fmt.Errorf("table %q: column %q declared twice", t.Name, c.Name))
		}
		cols[c.Name] = true
	}
	idxs := make(map[string]bool, len(t.Indexes))
	for _, idx := range t.Indexes {
		if idxs[idx.Name] {
			problems = append(problems, fmt.Errorf("table %q: index %q declared twice", t.Name, idx.Name))
		}
		idxs[idx.Name] = true
		// AddIndex drops unresolved names from Columns, so the
		// requested names are checked when present.
		names := idx.columns
		if len(names) == 0 {
			for _, c := range idx.Columns {
				if c != nil {
					names = append(names, c.Name)
				}
			}
		}
		for _, n := range names {
			if !cols[n] {
				problems = append(problems, fmt.Errorf("table %q: index %q references unknown column %q", t.Name, idx.Name, n))
			}
		}
	}
	for _, fk := range t.ForeignKeys {
		if fk.RefTable == nil {
			problems = append(problems, fmt.Errorf("table %q: foreign key %q has no referenced table", t.Name, fk.Symbol))
		}
		for _, c := range fk.Columns {
			if !cols[c.Name] {
				problems = append(problems, fmt.Errorf("table %q: foreign key %q references unknown column %q", t.Name, fk.Symbol, c.Name))
			}
		}
	}
	return problems
}
