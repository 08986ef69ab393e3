// Package field defines the runtime field model of tabula entities.
//
// Fields are declared with fluent builders and validated eagerly by New:
//
//	f, err := field.New(field.Text("name").MaxLen(120).Required().Descriptor())
//
// Each constructed field knows how to move values across the persistence
// boundary: TransformPersist validates and converts an application value
// to its stored form, TransformRetrieve converts the stored form back,
// substituting the declared default for missing values.
//
// Primary fields are special. Their values are never client-supplied;
// depending on the configured format they are produced by storage
// auto-increment, a UUID v7 generator, or a custom handler wired
// through the idgen package:
//
//	id, err := field.NewPrimary("id", field.FormatCustom, &field.CustomHandler{
//		Kind: field.KindRegistry,
//		ID:   "ulid",
//	})
package field
