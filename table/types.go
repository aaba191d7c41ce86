package table

import (
	"fmt"

	"github.com/pkg/errors"
)

// Type is the logical type of a column in the host value model.
type Type int

// The logical types supported by the host value model. TypeTable marks a
// nested column; such columns can be read but are never written.
const (
	TypeInt32 Type = iota + 1
	TypeInt64
	TypeFloat32
	TypeFloat64
	TypeDecimal
	TypeBoolean
	TypeString
	TypeTimestamp
	TypeBytes
	TypeTable
)

var typeNames = map[Type]string{
	TypeInt32:     "int32",
	TypeInt64:     "int64",
	TypeFloat32:   "float32",
	TypeFloat64:   "float64",
	TypeDecimal:   "decimal",
	TypeBoolean:   "boolean",
	TypeString:    "string",
	TypeTimestamp: "timestamp",
	TypeBytes:     "bytes",
	TypeTable:     "table",
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType returns the type with the given name as printed by Type.String.
func ParseType(s string) (Type, error) {
	for t, n := range typeNames {
		if n == s {
			return t, nil
		}
	}
	return 0, errors.Errorf("unknown column type %q", s)
}

// Column describes a single column. Precision and Scale are only used by
// decimal columns.
type Column struct {
	Name      string
	Type      Type
	Precision int32
	Scale     int32
}

func (c Column) String() string {
	if c.Type == TypeDecimal {
		return fmt.Sprintf("%s %s(%d,%d)", c.Name, c.Type, c.Precision, c.Scale)
	}
	return c.Name + " " + c.Type.String()
}

// Schema is an ordered list of columns.
type Schema []Column

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i := range s {
		names[i] = s[i].Name
	}
	return names
}

// Index returns the position of the column with the given name, or -1.
func (s Schema) Index(name string) int {
	for i := range s {
		if s[i].Name == name {
			return i
		}
	}
	return -1
}

// Validate checks that every column has a non-empty name that is unique
// within the schema, and that decimal columns carry a usable precision.
func (s Schema) Validate() error {
	seen := make(map[string]struct{}, len(s))
	for i, c := range s {
		if c.Name == "" {
			return errors.Errorf("column %d has no name", i)
		}
		if _, ok := seen[c.Name]; ok {
			return errors.Errorf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = struct{}{}
		if _, ok := typeNames[c.Type]; !ok {
			return errors.Errorf("column %q has invalid type %d", c.Name, int(c.Type))
		}
		if c.Type == TypeDecimal && (c.Precision <= 0 || c.Scale < 0 || c.Scale > c.Precision) {
			return errors.Errorf("column %q has invalid decimal precision/scale (%d,%d)", c.Name, c.Precision, c.Scale)
		}
	}
	return nil
}
