package connector

import (
	"math"
	"math/big"
	"time"
	"unicode/utf8"

	goparquet "github.com/fraugster/parquet-go"
	"github.com/fraugster/parquet-go/parquet"
	"github.com/fraugster/parquet-go/parquetschema"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/fraugster/parquet-connector/table"
)

// ErrUnsupportedType is returned by ToParquetColumn for host types that have
// no parquet representation (nested tables).
var ErrUnsupportedType = errors.New("unsupported column type")

// decodeFunc converts a value produced by goparquet into its host value.
type decodeFunc func(interface{}) (interface{}, error)

// encodeFunc converts a host value into the value goparquet expects for the
// column's physical type.
type encodeFunc func(interface{}) (interface{}, error)

// ToHostColumn maps a parquet column definition to a host column.
func ToHostColumn(def *parquetschema.ColumnDefinition) (table.Column, error) {
	col, _, err := hostColumn(def)
	return col, err
}

// ToParquetColumn maps a host column to a parquet column definition. It
// returns ErrUnsupportedType for nested table columns.
func ToParquetColumn(col table.Column) (*parquetschema.ColumnDefinition, error) {
	def, _, err := parquetColumn(col)
	return def, err
}

func hostColumn(def *parquetschema.ColumnDefinition) (table.Column, decodeFunc, error) {
	el := def.SchemaElement
	if el == nil {
		return table.Column{}, nil, errors.New("column without schema element")
	}
	col := table.Column{Name: el.Name}

	if el.Type == nil || len(def.Children) > 0 || el.GetRepetitionType() == parquet.FieldRepetitionType_REPEATED {
		col.Type = table.TypeTable
		return col, decodeAny, nil
	}

	lt := el.LogicalType
	switch el.GetType() {
	case parquet.Type_BOOLEAN:
		col.Type = table.TypeBoolean
		return col, decodeBool, nil

	case parquet.Type_INT32:
		switch {
		case isDecimal(el):
			return decimalColumn(col, el)
		case isDate(el):
			col.Type = table.TypeTimestamp
			return col, decodeDate, nil
		case isUnsigned(el, 32):
			col.Type = table.TypeInt64
			return col, decodeUint32, nil
		default:
			col.Type = table.TypeInt32
			return col, decodeInt32, nil
		}

	case parquet.Type_INT64:
		switch {
		case isDecimal(el):
			return decimalColumn(col, el)
		case lt != nil && lt.TIMESTAMP != nil:
			col.Type = table.TypeTimestamp
			unit := lt.TIMESTAMP.Unit
			switch {
			case unit == nil || unit.MICROS != nil:
				return col, decodeTimestamp(time.UnixMicro), nil
			case unit.MILLIS != nil:
				return col, decodeTimestamp(time.UnixMilli), nil
			default:
				return col, decodeTimestamp(func(v int64) time.Time { return time.Unix(0, v) }), nil
			}
		case hasConvertedType(el, parquet.ConvertedType_TIMESTAMP_MICROS):
			col.Type = table.TypeTimestamp
			return col, decodeTimestamp(time.UnixMicro), nil
		case hasConvertedType(el, parquet.ConvertedType_TIMESTAMP_MILLIS):
			col.Type = table.TypeTimestamp
			return col, decodeTimestamp(time.UnixMilli), nil
		case isUnsigned(el, 64):
			col.Type = table.TypeDecimal
			col.Precision = 20
			return col, decodeUint64, nil
		default:
			col.Type = table.TypeInt64
			return col, decodeInt64, nil
		}

	case parquet.Type_INT96:
		col.Type = table.TypeTimestamp
		return col, decodeInt96, nil

	case parquet.Type_FLOAT:
		col.Type = table.TypeFloat32
		return col, decodeFloat32, nil

	case parquet.Type_DOUBLE:
		col.Type = table.TypeFloat64
		return col, decodeFloat64, nil

	case parquet.Type_BYTE_ARRAY:
		switch {
		case isDecimal(el):
			return decimalColumn(col, el)
		case isString(el):
			col.Type = table.TypeString
			return col, decodeString, nil
		default:
			col.Type = table.TypeBytes
			return col, decodeBytes, nil
		}

	case parquet.Type_FIXED_LEN_BYTE_ARRAY:
		switch {
		case isDecimal(el):
			return decimalColumn(col, el)
		case lt != nil && lt.UUID != nil:
			col.Type = table.TypeString
			return col, decodeUUID, nil
		default:
			col.Type = table.TypeBytes
			return col, decodeBytes, nil
		}
	}

	return col, nil, errors.Errorf("column %q has unknown physical type %s", el.Name, el.GetType())
}

func decimalColumn(col table.Column, el *parquet.SchemaElement) (table.Column, decodeFunc, error) {
	col.Type = table.TypeDecimal
	if lt := el.LogicalType; lt != nil && lt.DECIMAL != nil {
		col.Precision, col.Scale = lt.DECIMAL.Precision, lt.DECIMAL.Scale
	} else {
		col.Precision, col.Scale = el.GetPrecision(), el.GetScale()
	}
	if col.Precision <= 0 || col.Scale < 0 || col.Scale > col.Precision {
		return col, nil, errors.Errorf("column %q has invalid decimal precision/scale (%d,%d)", col.Name, col.Precision, col.Scale)
	}
	return col, decodeDecimal(col.Precision, col.Scale), nil
}

func isDecimal(el *parquet.SchemaElement) bool {
	return (el.LogicalType != nil && el.LogicalType.DECIMAL != nil) || hasConvertedType(el, parquet.ConvertedType_DECIMAL)
}

func isDate(el *parquet.SchemaElement) bool {
	return (el.LogicalType != nil && el.LogicalType.DATE != nil) || hasConvertedType(el, parquet.ConvertedType_DATE)
}

func isString(el *parquet.SchemaElement) bool {
	if lt := el.LogicalType; lt != nil && (lt.STRING != nil || lt.ENUM != nil || lt.JSON != nil) {
		return true
	}
	return hasConvertedType(el, parquet.ConvertedType_UTF8) ||
		hasConvertedType(el, parquet.ConvertedType_ENUM) ||
		hasConvertedType(el, parquet.ConvertedType_JSON)
}

func isUnsigned(el *parquet.SchemaElement, bitWidth int8) bool {
	if lt := el.LogicalType; lt != nil && lt.INTEGER != nil {
		return !lt.INTEGER.IsSigned && lt.INTEGER.BitWidth == bitWidth
	}
	switch bitWidth {
	case 32:
		return hasConvertedType(el, parquet.ConvertedType_UINT_32)
	case 64:
		return hasConvertedType(el, parquet.ConvertedType_UINT_64)
	}
	return false
}

func hasConvertedType(el *parquet.SchemaElement, ct parquet.ConvertedType) bool {
	return el.ConvertedType != nil && *el.ConvertedType == ct
}

func decodeAny(v interface{}) (interface{}, error) {
	return v, nil
}

func decodeBool(v interface{}) (interface{}, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, errors.Errorf("expected bool, got %T", v)
	}
	return b, nil
}

func decodeInt32(v interface{}) (interface{}, error) {
	i, ok := v.(int32)
	if !ok {
		return nil, errors.Errorf("expected int32, got %T", v)
	}
	return i, nil
}

func decodeUint32(v interface{}) (interface{}, error) {
	i, ok := v.(int32)
	if !ok {
		return nil, errors.Errorf("expected int32, got %T", v)
	}
	return int64(uint32(i)), nil
}

func decodeInt64(v interface{}) (interface{}, error) {
	i, ok := v.(int64)
	if !ok {
		return nil, errors.Errorf("expected int64, got %T", v)
	}
	return i, nil
}

func decodeUint64(v interface{}) (interface{}, error) {
	i, ok := v.(int64)
	if !ok {
		return nil, errors.Errorf("expected int64, got %T", v)
	}
	return table.Decimal{Unscaled: new(big.Int).SetUint64(uint64(i)), Precision: 20}, nil
}

func decodeFloat32(v interface{}) (interface{}, error) {
	f, ok := v.(float32)
	if !ok {
		return nil, errors.Errorf("expected float32, got %T", v)
	}
	return f, nil
}

func decodeFloat64(v interface{}) (interface{}, error) {
	f, ok := v.(float64)
	if !ok {
		return nil, errors.Errorf("expected float64, got %T", v)
	}
	return f, nil
}

func decodeBytes(v interface{}) (interface{}, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, errors.Errorf("expected []byte, got %T", v)
	}
	return b, nil
}

func decodeString(v interface{}) (interface{}, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, errors.Errorf("expected []byte, got %T", v)
	}
	return string(b), nil
}

func decodeUUID(v interface{}) (interface{}, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, errors.Errorf("expected []byte, got %T", v)
	}
	id, err := uuid.FromBytes(b)
	if err != nil {
		return nil, errors.Wrap(err, "invalid uuid value")
	}
	return id.String(), nil
}

func decodeDate(v interface{}) (interface{}, error) {
	days, ok := v.(int32)
	if !ok {
		return nil, errors.Errorf("expected int32, got %T", v)
	}
	return time.Unix(int64(days)*24*60*60, 0).UTC(), nil
}

func decodeTimestamp(conv func(int64) time.Time) decodeFunc {
	return func(v interface{}) (interface{}, error) {
		i, ok := v.(int64)
		if !ok {
			return nil, errors.Errorf("expected int64, got %T", v)
		}
		return conv(i).UTC(), nil
	}
}

func decodeInt96(v interface{}) (interface{}, error) {
	b, ok := v.([12]byte)
	if !ok {
		return nil, errors.Errorf("expected [12]byte, got %T", v)
	}
	return goparquet.Int96ToTime(b).UTC(), nil
}

func decodeDecimal(precision, scale int32) decodeFunc {
	return func(v interface{}) (interface{}, error) {
		var u *big.Int
		switch x := v.(type) {
		case int32:
			u = big.NewInt(int64(x))
		case int64:
			u = big.NewInt(x)
		case []byte:
			u = fromTwosComplement(x)
		default:
			return nil, errors.Errorf("unexpected decimal value of type %T", v)
		}
		return table.Decimal{Unscaled: u, Precision: precision, Scale: scale}, nil
	}
}

func parquetColumn(col table.Column) (*parquetschema.ColumnDefinition, encodeFunc, error) {
	el := &parquet.SchemaElement{
		Name:           col.Name,
		RepetitionType: parquet.FieldRepetitionTypePtr(parquet.FieldRepetitionType_OPTIONAL),
	}

	var enc encodeFunc
	switch col.Type {
	case table.TypeInt32:
		el.Type = parquet.TypePtr(parquet.Type_INT32)
		el.LogicalType = &parquet.LogicalType{INTEGER: &parquet.IntType{BitWidth: 32, IsSigned: true}}
		el.ConvertedType = parquet.ConvertedTypePtr(parquet.ConvertedType_INT_32)
		enc = encodeInt32
	case table.TypeInt64:
		el.Type = parquet.TypePtr(parquet.Type_INT64)
		el.LogicalType = &parquet.LogicalType{INTEGER: &parquet.IntType{BitWidth: 64, IsSigned: true}}
		el.ConvertedType = parquet.ConvertedTypePtr(parquet.ConvertedType_INT_64)
		enc = encodeInt64
	case table.TypeFloat32:
		el.Type = parquet.TypePtr(parquet.Type_FLOAT)
		enc = encodeFloat32
	case table.TypeFloat64:
		el.Type = parquet.TypePtr(parquet.Type_DOUBLE)
		enc = encodeFloat64
	case table.TypeBoolean:
		el.Type = parquet.TypePtr(parquet.Type_BOOLEAN)
		enc = encodeBool
	case table.TypeString:
		el.Type = parquet.TypePtr(parquet.Type_BYTE_ARRAY)
		el.LogicalType = &parquet.LogicalType{STRING: &parquet.StringType{}}
		el.ConvertedType = parquet.ConvertedTypePtr(parquet.ConvertedType_UTF8)
		enc = encodeString
	case table.TypeBytes:
		el.Type = parquet.TypePtr(parquet.Type_BYTE_ARRAY)
		enc = encodeBytes
	case table.TypeTimestamp:
		el.Type = parquet.TypePtr(parquet.Type_INT64)
		el.LogicalType = &parquet.LogicalType{TIMESTAMP: &parquet.TimestampType{
			IsAdjustedToUTC: true,
			Unit:            &parquet.TimeUnit{MICROS: &parquet.MicroSeconds{}},
		}}
		el.ConvertedType = parquet.ConvertedTypePtr(parquet.ConvertedType_TIMESTAMP_MICROS)
		enc = encodeTimestamp
	case table.TypeDecimal:
		if col.Precision <= 0 || col.Scale < 0 || col.Scale > col.Precision {
			return nil, nil, errors.Errorf("column %q has invalid decimal precision/scale (%d,%d)", col.Name, col.Precision, col.Scale)
		}
		precision, scale := col.Precision, col.Scale
		el.LogicalType = &parquet.LogicalType{DECIMAL: &parquet.DecimalType{Precision: precision, Scale: scale}}
		el.ConvertedType = parquet.ConvertedTypePtr(parquet.ConvertedType_DECIMAL)
		el.Precision = &precision
		el.Scale = &scale
		switch {
		case precision <= 9:
			el.Type = parquet.TypePtr(parquet.Type_INT32)
		case precision <= 18:
			el.Type = parquet.TypePtr(parquet.Type_INT64)
		default:
			size := decimalByteWidth(precision)
			el.Type = parquet.TypePtr(parquet.Type_FIXED_LEN_BYTE_ARRAY)
			el.TypeLength = &size
		}
		enc = encodeDecimal(el.GetType(), precision, scale, el.GetTypeLength())
	case table.TypeTable:
		return nil, nil, errors.Wrapf(ErrUnsupportedType, "column %q is a nested table", col.Name)
	default:
		return nil, nil, errors.Wrapf(ErrUnsupportedType, "column %q has type %s", col.Name, col.Type)
	}

	return &parquetschema.ColumnDefinition{SchemaElement: el}, enc, nil
}

func toInt64(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint:
		if uint64(x) > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	}
	return 0, false
}

func encodeInt32(v interface{}) (interface{}, error) {
	i, ok := toInt64(v)
	if !ok {
		return nil, errors.Errorf("value %v of type %T is not an integer fitting int64", v, v)
	}
	if i < math.MinInt32 || i > math.MaxInt32 {
		return nil, errors.Errorf("value %d overflows int32", i)
	}
	return int32(i), nil
}

func encodeInt64(v interface{}) (interface{}, error) {
	i, ok := toInt64(v)
	if !ok {
		return nil, errors.Errorf("value %v of type %T is not an integer fitting int64", v, v)
	}
	return i, nil
}

func encodeFloat32(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case float32:
		return x, nil
	case float64:
		if !math.IsInf(x, 0) && !math.IsNaN(x) && math.Abs(x) > math.MaxFloat32 {
			return nil, errors.Errorf("value %g overflows float32", x)
		}
		return float32(x), nil
	}
	return nil, errors.Errorf("value of type %T is not a float", v)
}

func encodeFloat64(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	}
	return nil, errors.Errorf("value of type %T is not a float", v)
}

func encodeBool(v interface{}) (interface{}, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, errors.Errorf("value of type %T is not a bool", v)
	}
	return b, nil
}

func encodeString(v interface{}) (interface{}, error) {
	var b []byte
	switch x := v.(type) {
	case string:
		b = []byte(x)
	case []byte:
		b = x
	default:
		return nil, errors.Errorf("value of type %T is not a string", v)
	}
	if !utf8.Valid(b) {
		return nil, errors.New("value is not valid UTF-8")
	}
	return b, nil
}

func encodeBytes(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	}
	return nil, errors.Errorf("value of type %T is not a byte slice", v)
}

// encodeTimestamp stores timestamps as microseconds since the epoch, UTC.
// Precision below a microsecond is truncated, so a value read back equals
// t.Truncate(time.Microsecond).
func encodeTimestamp(v interface{}) (interface{}, error) {
	t, ok := v.(time.Time)
	if !ok {
		return nil, errors.Errorf("value of type %T is not a time.Time", v)
	}
	return t.UnixMicro(), nil
}

func encodeDecimal(typ parquet.Type, precision, scale int32, size int32) encodeFunc {
	return func(v interface{}) (interface{}, error) {
		var d table.Decimal
		switch x := v.(type) {
		case table.Decimal:
			d = x
		case string:
			var err error
			if d, err = table.ParseDecimal(x, precision, scale); err != nil {
				return nil, err
			}
		default:
			i, ok := toInt64(v)
			if !ok {
				return nil, errors.Errorf("value of type %T is not a decimal", v)
			}
			d = table.NewDecimal(i, precision, 0)
		}

		d, err := d.Rescale(scale)
		if err != nil {
			return nil, err
		}
		if d.Digits() > precision {
			return nil, errors.Errorf("decimal %s exceeds precision %d", d, precision)
		}

		u := d.Unscaled
		if u == nil {
			u = new(big.Int)
		}
		switch typ {
		case parquet.Type_INT32:
			return int32(u.Int64()), nil
		case parquet.Type_INT64:
			return u.Int64(), nil
		default:
			return toTwosComplement(u, int(size))
		}
	}
}

// decimalByteWidth returns the smallest number of bytes able to hold any
// signed decimal of the given precision.
func decimalByteWidth(precision int32) int32 {
	max := new(big.Int).Sub(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(precision)), nil), big.NewInt(1))
	for n := int32(1); ; n++ {
		if new(big.Int).Lsh(big.NewInt(1), uint(8*n-1)).Cmp(max) > 0 {
			return n
		}
	}
}

func fromTwosComplement(b []byte) *big.Int {
	v := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	return v
}

func toTwosComplement(v *big.Int, size int) ([]byte, error) {
	if v.Sign() >= 0 {
		b := v.Bytes()
		if len(b) > size || (len(b) == size && b[0]&0x80 != 0) {
			return nil, errors.Errorf("decimal %s does not fit into %d bytes", v, size)
		}
		out := make([]byte, size)
		copy(out[size-len(b):], b)
		return out, nil
	}

	t := new(big.Int).Add(v, new(big.Int).Lsh(big.NewInt(1), uint(size*8)))
	b := t.Bytes()
	if t.Sign() <= 0 || len(b) != size || b[0]&0x80 == 0 {
		return nil, errors.Errorf("decimal %s does not fit into %d bytes", v, size)
	}
	return b, nil
}
