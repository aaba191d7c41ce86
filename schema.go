package connector

import (
	"github.com/fraugster/parquet-go/parquet"
	"github.com/fraugster/parquet-go/parquetschema"
	"github.com/pkg/errors"

	"github.com/fraugster/parquet-connector/table"
)

const rootColumnName = "msg"

// SchemaFromDefinition derives the host schema from a parquet schema
// definition. Only top-level columns become host columns; nested groups are
// reported as table.TypeTable.
func SchemaFromDefinition(sd *parquetschema.SchemaDefinition) (table.Schema, error) {
	schema, _, err := hostSchema(sd)
	return schema, err
}

func hostSchema(sd *parquetschema.SchemaDefinition) (table.Schema, []decodeFunc, error) {
	if sd == nil || sd.RootColumn == nil {
		return nil, nil, errors.New("schema definition has no root column")
	}

	schema := make(table.Schema, 0, len(sd.RootColumn.Children))
	decoders := make([]decodeFunc, 0, len(sd.RootColumn.Children))
	for _, def := range sd.RootColumn.Children {
		col, dec, err := hostColumn(def)
		if err != nil {
			return nil, nil, err
		}
		schema = append(schema, col)
		decoders = append(decoders, dec)
	}

	if err := schema.Validate(); err != nil {
		return nil, nil, err
	}
	return schema, decoders, nil
}

// DefinitionFromSchema builds the parquet schema definition used to write
// cols. Columns without a parquet representation are left out and their
// names are returned in order as skipped.
func DefinitionFromSchema(cols []table.Column) (sd *parquetschema.SchemaDefinition, skipped []string, err error) {
	plan, err := planWrite(cols)
	if err != nil {
		return nil, nil, err
	}
	return plan.definition, plan.skipped, nil
}

// writePlan holds what the writer needs per written column.
type writePlan struct {
	definition *parquetschema.SchemaDefinition
	kept       []int
	encoders   []encodeFunc
	skipped    []string
}

func planWrite(cols []table.Column) (*writePlan, error) {
	if err := table.Schema(cols).Validate(); err != nil {
		return nil, err
	}

	root := &parquetschema.ColumnDefinition{
		SchemaElement: &parquet.SchemaElement{Name: rootColumnName},
	}
	plan := &writePlan{definition: &parquetschema.SchemaDefinition{RootColumn: root}}

	for idx, col := range cols {
		def, enc, err := parquetColumn(col)
		if errors.Is(err, ErrUnsupportedType) {
			plan.skipped = append(plan.skipped, col.Name)
			continue
		}
		if err != nil {
			return nil, err
		}
		root.Children = append(root.Children, def)
		plan.kept = append(plan.kept, idx)
		plan.encoders = append(plan.encoders, enc)
	}

	numChildren := int32(len(root.Children))
	root.SchemaElement.NumChildren = &numChildren

	// A definition without leaves has nothing to validate; the writer emits
	// it as a footer-only file.
	if numChildren == 0 {
		return plan, nil
	}

	if err := plan.definition.Validate(); err != nil {
		return nil, errors.Wrap(err, "validation of generated schema failed")
	}

	return plan, nil
}

// definitionFromMeta rebuilds the schema tree from the flattened schema
// elements of a file footer.
func definitionFromMeta(elems []*parquet.SchemaElement) (*parquetschema.SchemaDefinition, error) {
	if len(elems) == 0 {
		return nil, errors.New("footer holds no schema")
	}

	pos := 0
	var build func(depth int) (*parquetschema.ColumnDefinition, error)
	build = func(depth int) (*parquetschema.ColumnDefinition, error) {
		if pos >= len(elems) {
			return nil, errors.New("schema is truncated")
		}
		if depth > len(elems) {
			return nil, errors.New("schema nesting is inconsistent")
		}
		el := elems[pos]
		if el == nil {
			return nil, errors.Errorf("schema element %d is empty", pos)
		}
		pos++

		def := &parquetschema.ColumnDefinition{SchemaElement: el}
		n := el.GetNumChildren()
		if n < 0 || int(n) > len(elems)-pos {
			return nil, errors.Errorf("schema element %q has invalid number of children %d", el.Name, n)
		}
		for i := int32(0); i < n; i++ {
			child, err := build(depth + 1)
			if err != nil {
				return nil, err
			}
			def.Children = append(def.Children, child)
		}
		return def, nil
	}

	root, err := build(0)
	if err != nil {
		return nil, err
	}
	if pos != len(elems) {
		return nil, errors.Errorf("schema has %d trailing elements", len(elems)-pos)
	}
	return &parquetschema.SchemaDefinition{RootColumn: root}, nil
}
