package rasterprofile

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
)

// indexColumn is one attribute column of a footprint index.
type indexColumn struct {
	name string
	typ  flattypes.ColumnType
}

// Column 0 is the dataset location; the rest are profile keys.
var indexColumns = []indexColumn{
	{"location", flattypes.ColumnTypeString},
	{KeyDriver, flattypes.ColumnTypeString},
	{KeyDType, flattypes.ColumnTypeString},
	{KeyWidth, flattypes.ColumnTypeLong},
	{KeyHeight, flattypes.ColumnTypeLong},
	{KeyCount, flattypes.ColumnTypeLong},
	{KeyTiled, flattypes.ColumnTypeBool},
	{KeyCompress, flattypes.ColumnTypeString},
}

// columnType maps a value kind to the FlatGeobuf column type storing it.
func columnType(k Kind) (flattypes.ColumnType, bool) {
	switch k {
	case KindBool:
		return flattypes.ColumnTypeBool, true
	case KindInt:
		return flattypes.ColumnTypeLong, true
	case KindFloat:
		return flattypes.ColumnTypeDouble, true
	case KindString:
		return flattypes.ColumnTypeString, true
	}
	return 0, false
}

// buildColumns creates the writer columns of the index schema.
func buildColumns(builder *flatbuffers.Builder) []*writer.Column {
	columns := make([]*writer.Column, 0, len(indexColumns))
	for _, c := range indexColumns {
		col := writer.NewColumn(builder)
		col.SetName(c.name)
		col.SetTitle(c.name) // Set title to match name for JS library compatibility
		col.SetType(c.typ)
		col.SetNullable(true)
		columns = append(columns, col)
	}
	return columns
}

// encodeProperties encodes the location and profile columns of one feature.
// The format is: [2-byte column index][value bytes]... repeated for each
// present value. Values whose kind does not match the column are skipped.
func encodeProperties(location string, p *Profile) []byte {
	var buf bytes.Buffer

	for i, c := range indexColumns {
		var v Value
		if i == 0 {
			v = String(location)
		} else {
			var ok bool
			if v, ok = p.Get(c.name); !ok {
				continue
			}
		}
		if typ, ok := columnType(v.kind); !ok || typ != c.typ {
			continue
		}

		// Write column index (uint16, little-endian)
		indexBytes := make([]byte, 2)
		binary.LittleEndian.PutUint16(indexBytes, uint16(i))
		buf.Write(indexBytes)

		writePropertyValue(&buf, v)
	}

	return buf.Bytes()
}

// writePropertyValue writes a single property value to the buffer.
func writePropertyValue(buf *bytes.Buffer, v Value) {
	switch v.kind {
	case KindBool:
		if v.num != 0 {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}

	case KindInt, KindFloat:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, v.num)
		buf.Write(b)

	case KindString:
		// Strings are length prefixed (uint32, little-endian)
		lenBytes := make([]byte, 4)
		binary.LittleEndian.PutUint32(lenBytes, uint32(len(v.str)))
		buf.Write(lenBytes)
		buf.WriteString(v.str)
	}
}

// decodeProperties decodes FlatGeobuf binary properties into the location and
// a profile of the remaining columns.
func decodeProperties(data []byte, header *flattypes.Header) (string, *Profile) {
	var location string
	p := &Profile{values: make(map[string]Value)}
	if len(data) == 0 || header == nil {
		return location, p
	}

	offset := 0
	for offset < len(data) {
		// Need at least 2 bytes for column index
		if offset+2 > len(data) {
			break
		}

		// Read column index
		colIndex := binary.LittleEndian.Uint16(data[offset : offset+2])
		offset += 2

		// Validate column index
		if int(colIndex) >= header.ColumnsLength() {
			break
		}

		// Get column info
		var col flattypes.Column
		if !header.Columns(&col, int(colIndex)) {
			break
		}

		colName := string(col.Name())
		value, bytesRead := readPropertyValue(data[offset:], col.Type())
		if bytesRead == 0 {
			break
		}
		offset += bytesRead

		if colName == indexColumns[0].name {
			location, _ = value.Str()
			continue
		}
		// Columns written by other tools may not fit profile key rules.
		// Those are left out of the profile.
		if err := p.Set(colName, value); err != nil {
			continue
		}
	}

	return location, p
}

// readPropertyValue reads a property value from the buffer.
// Returns the value and number of bytes read; 0 bytes means the value could
// not be read.
func readPropertyValue(data []byte, colType flattypes.ColumnType) (Value, int) {
	switch colType {
	case flattypes.ColumnTypeBool:
		if len(data) < 1 {
			return Value{}, 0
		}
		return Bool(data[0] != 0), 1

	case flattypes.ColumnTypeByte:
		if len(data) < 1 {
			return Value{}, 0
		}
		return Int(int64(int8(data[0]))), 1

	case flattypes.ColumnTypeUByte:
		if len(data) < 1 {
			return Value{}, 0
		}
		return Int(int64(data[0])), 1

	case flattypes.ColumnTypeShort:
		if len(data) < 2 {
			return Value{}, 0
		}
		return Int(int64(int16(binary.LittleEndian.Uint16(data[:2])))), 2

	case flattypes.ColumnTypeUShort:
		if len(data) < 2 {
			return Value{}, 0
		}
		return Int(int64(binary.LittleEndian.Uint16(data[:2]))), 2

	case flattypes.ColumnTypeInt:
		if len(data) < 4 {
			return Value{}, 0
		}
		return Int(int64(int32(binary.LittleEndian.Uint32(data[:4])))), 4

	case flattypes.ColumnTypeUInt:
		if len(data) < 4 {
			return Value{}, 0
		}
		return Int(int64(binary.LittleEndian.Uint32(data[:4]))), 4

	case flattypes.ColumnTypeLong, flattypes.ColumnTypeULong:
		if len(data) < 8 {
			return Value{}, 0
		}
		return Int(int64(binary.LittleEndian.Uint64(data[:8]))), 8

	case flattypes.ColumnTypeFloat:
		if len(data) < 4 {
			return Value{}, 0
		}
		bits := binary.LittleEndian.Uint32(data[:4])
		return Float(float64(math.Float32frombits(bits))), 4

	case flattypes.ColumnTypeDouble:
		if len(data) < 8 {
			return Value{}, 0
		}
		bits := binary.LittleEndian.Uint64(data[:8])
		return Float(math.Float64frombits(bits)), 8

	case flattypes.ColumnTypeString, flattypes.ColumnTypeDateTime, flattypes.ColumnTypeJson:
		if len(data) < 4 {
			return Value{}, 0
		}
		length := int(binary.LittleEndian.Uint32(data[:4]))
		if length < 0 || len(data) < 4+length {
			return Value{}, 0
		}
		return String(string(data[4 : 4+length])), 4 + length

	default:
		return Value{}, 0
	}
}
