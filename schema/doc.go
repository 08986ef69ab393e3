// Package schema provides the building blocks for defining entities at
// runtime.
//
// This package holds the annotation types shared by its subpackages:
//
//   - [field]: field builders for entity attributes
//   - [relation]: relations between entities
//   - [index]: secondary indexes on entity fields
//   - [mixin]: reusable sets of fields and indexes
//
// # Quick Start
//
// An entity is an ordered set of constructed fields with exactly one
// primary key:
//
//	users, err := tabula.NewEntity("users", tabula.EntityRegular, tabula.EntityConfig{},
//	    mustBuild(field.Primary("id")),
//	    mustBuild(field.Text("email").Unique().MaxLen(255)),
//	    mustBuild(field.Text("name").Required().MaxLen(100)),
//	    mustBuild(field.Enum("status").Values("active", "suspended", "deleted")),
//	)
//
// # Field Variants
//
// The field package provides builders for all supported variants:
//
//	field.Primary("id")            // primary key (integer, uuid or custom)
//	field.Text("name")             // VARCHAR / TEXT
//	field.Number("age").Int()      // BIGINT / DOUBLE PRECISION
//	field.Bool("active")           // BOOLEAN
//	field.Date("created_at")       // TIMESTAMP
//	field.Enum("status")           // enumerated string
//	field.JSON("metadata")         // JSON document
//	field.Media("avatar")          // media library reference
//	field.Relation("author", "users") // foreign key
//	field.Virtual("full_name")     // computed, never stored
//
// # Relations
//
// The relation package connects entities by reference name and
// cardinality:
//
//	relation.New("posts", "users", "author", relation.ManyToOne)
//	relation.New("posts", "tags", "tags", relation.ManyToMany)
//
// # Indexes
//
// The index package declares secondary indexes with a chained builder:
//
//	index.Fields("email").Unique()
//	index.Fields("status", "created_at")
//
// # Mixins
//
// Reusable field sets live in mixin; ready-made ones (timestamps, soft
// delete, tenant id, uuid primary) in contrib/mixin.
package schema
