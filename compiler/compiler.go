// Package compiler generates per-entity metadata packages from loaded
// schema definitions. Each entity gets a small package holding its
// label, table name and column constants so application code can refer
// to storage names without spelling strings by hand.
package compiler

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"

	"github.com/syssam/tabula"
	"github.com/syssam/tabula/schema/field"
	"github.com/syssam/tabula/schema/load"
)

// Config controls where and how metadata packages are written.
type Config struct {
	// Fs is the output filesystem. Defaults to the OS filesystem.
	Fs afero.Fs
	// Target is the directory the per-entity packages are created in.
	Target string
	// Header is an extra comment line placed above the generated-code
	// marker, e.g. a license notice.
	Header string
	// Workers bounds generation parallelism. Defaults to GOMAXPROCS.
	Workers int
}

// Generate writes one metadata package per schema. Schemas are expanded
// through their mixins first, so contributed fields get constants too.
func Generate(ctx context.Context, cfg Config, schemas ...*load.Schema) error {
	if cfg.Target == "" {
		return fmt.Errorf("compiler: target directory is required")
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for _, s := range schemas {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return generateEntity(cfg, s)
			}
		})
	}
	return eg.Wait()
}

// PackageName returns the name of the metadata package generated for an
// entity: singular, lower case, no separators.
func PackageName(entity string) string {
	return strings.ReplaceAll(inflect.Singularize(inflect.Underscore(entity)), "_", "")
}

func generateEntity(cfg Config, s *load.Schema) error {
	e, err := load.ConstructEntity(s)
	if err != nil {
		return err
	}
	pkg := PackageName(e.Name())
	f := jen.NewFile(pkg)
	if cfg.Header != "" {
		f.HeaderComment(cfg.Header)
	}
	f.HeaderComment("Code generated by tabula gen. DO NOT EDIT.")

	defs := []jen.Code{
		jen.Commentf("Label holds the entity name %s is generated from.", pkg),
		jen.Id("Label").Op("=").Lit(e.Name()),
		jen.Comment("Table holds the table name of the entity in the database."),
		jen.Id("Table").Op("=").Lit(tabula.TableName(e.Name())),
	}
	var stored []string
	for _, fld := range e.Fields() {
		ident := "Field" + inflect.Camelize(fld.Name())
		defs = append(defs,
			jen.Commentf("%s holds the string denoting the %s field in the database.", ident, fld.Name()),
			jen.Id(ident).Op("=").Lit(fld.Name()),
		)
		if fld.Type() != field.TypeVirtual {
			stored = append(stored, ident)
		}
	}
	f.Const().Defs(defs...)

	f.Comment("Columns holds all stored columns of the entity.")
	f.Var().Id("Columns").Op("=").Index().String().ValuesFunc(func(g *jen.Group) {
		for _, ident := range stored {
			g.Id(ident)
		}
	})

	f.Comment("ValidColumn reports whether column is a stored column of the entity.")
	f.Func().Id("ValidColumn").Params(jen.Id("column").String()).Bool().Block(
		jen.For(jen.Id("i").Op(":=").Range().Id("Columns")).Block(
			jen.If(jen.Id("column").Op("==").Id("Columns").Index(jen.Id("i"))).Block(
				jen.Return(jen.True()),
			),
		),
		jen.Return(jen.False()),
	)

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return fmt.Errorf("compiler: render %s: %w", e.Name(), err)
	}
	path := filepath.Join(cfg.Target, pkg, pkg+".go")
	src, err := imports.Process(path, buf.Bytes(), nil)
	if err != nil {
		return fmt.Errorf("compiler: format %s: %w", path, err)
	}
	if err := cfg.Fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("compiler: create %s: %w", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(cfg.Fs, path, src, 0o644); err != nil {
		return fmt.Errorf("compiler: write %s: %w", path, err)
	}
	return nil
}
