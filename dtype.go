package rasterprofile

import "fmt"

// DataType is a raster pixel type.
type DataType int

const (
	// Unknown is the zero, unset pixel type.
	Unknown DataType = iota
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
	Complex64
	Complex128
)

var dataTypeNames = [...]string{
	Unknown:    "unknown",
	Int8:       "int8",
	Uint8:      "uint8",
	Int16:      "int16",
	Uint16:     "uint16",
	Int32:      "int32",
	Uint32:     "uint32",
	Int64:      "int64",
	Uint64:     "uint64",
	Float32:    "float32",
	Float64:    "float64",
	Complex64:  "complex64",
	Complex128: "complex128",
}

var dataTypeSizes = [...]int{
	Int8:       1,
	Uint8:      1,
	Int16:      2,
	Uint16:     2,
	Int32:      4,
	Uint32:     4,
	Int64:      8,
	Uint64:     8,
	Float32:    4,
	Float64:    8,
	Complex64:  8,
	Complex128: 16,
}

// ParseDataType returns the DataType named by s, e.g. "uint16".
func ParseDataType(s string) (DataType, error) {
	for i, name := range dataTypeNames {
		if i > 0 && name == s {
			return DataType(i), nil
		}
	}
	return Unknown, fmt.Errorf("unknown data type %q", s)
}

func (dt DataType) String() string {
	if dt < 0 || int(dt) >= len(dataTypeNames) {
		return dataTypeNames[Unknown]
	}
	return dataTypeNames[dt]
}

// Size returns the number of bytes one pixel of dt occupies.
func (dt DataType) Size() int {
	if dt <= 0 || int(dt) >= len(dataTypeSizes) {
		return 0
	}
	return dataTypeSizes[dt]
}
