package rasterprofile

import (
	"fmt"
	"math"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTransform
	KindCRS
)

var kindNames = [...]string{
	KindNull:      "null",
	KindBool:      "bool",
	KindInt:       "int",
	KindFloat:     "float",
	KindString:    "string",
	KindTransform: "transform",
	KindCRS:       "crs",
}

func (k Kind) String() string {
	if int(k) >= len(kindNames) {
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Value is a single profile value. The zero Value is Null.
type Value struct {
	kind Kind
	num  uint64 // bool, int64 or float64 bits
	str  string
	t    Transform
	crs  CRS
}

// Null returns the explicit "no value" Value, e.g. nodata=None.
func Null() Value { return Value{} }

func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.num = 1
	}
	return v
}

func Int(i int64) Value { return Value{kind: KindInt, num: uint64(i)} }

func Float(f float64) Value { return Value{kind: KindFloat, num: math.Float64bits(f)} }

func String(s string) Value { return Value{kind: KindString, str: s} }

// Affine wraps a Transform.
func Affine(t Transform) Value { return Value{kind: KindTransform, t: t} }

func CRSValue(c CRS) Value { return Value{kind: KindCRS, crs: c} }

// ValueOf converts a plain Go value to a Value.
func ValueOf(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint:
		return Int(int64(v)), nil
	case uint8:
		return Int(int64(v)), nil
	case uint16:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case uint64:
		if v > math.MaxInt64 {
			return Value{}, fmt.Errorf("%w: %d overflows int64", ErrUnsupportedValue, v)
		}
		return Int(int64(v)), nil
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case string:
		return String(v), nil
	case Transform:
		return Affine(v), nil
	case [6]float64:
		return Affine(Transform(v)), nil
	case CRS:
		return CRSValue(v), nil
	case *CRS:
		if v == nil {
			return Null(), nil
		}
		return CRSValue(*v), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, x)
	}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() (bool, bool) {
	return v.num != 0, v.kind == KindBool
}

func (v Value) Int() (int64, bool) {
	return int64(v.num), v.kind == KindInt
}

func (v Value) Float() (float64, bool) {
	return math.Float64frombits(v.num), v.kind == KindFloat
}

// Number returns an int or float value as float64.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(int64(v.num)), true
	case KindFloat:
		return math.Float64frombits(v.num), true
	}
	return 0, false
}

func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) Transform() (Transform, bool) {
	return v.t, v.kind == KindTransform
}

func (v Value) CRS() (CRS, bool) {
	return v.crs, v.kind == KindCRS
}

// Interface returns the Go value held by v (nil for Null).
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.num != 0
	case KindInt:
		return int64(v.num)
	case KindFloat:
		return math.Float64frombits(v.num)
	case KindString:
		return v.str
	case KindTransform:
		return v.t
	case KindCRS:
		return v.crs
	}
	return nil
}

// Equal reports whether v and o hold the same kind and value.
// NaN floats equal each other, also as transform coefficients.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool, KindInt:
		return v.num == o.num
	case KindFloat:
		return floatEqual(math.Float64frombits(v.num), math.Float64frombits(o.num))
	case KindString:
		return v.str == o.str
	case KindTransform:
		for i := range v.t {
			if !floatEqual(v.t[i], o.t[i]) {
				return false
			}
		}
		return true
	case KindCRS:
		return v.crs == o.crs
	}
	return false
}

func floatEqual(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.num != 0)
	case KindInt:
		return strconv.FormatInt(int64(v.num), 10)
	case KindFloat:
		return strconv.FormatFloat(math.Float64frombits(v.num), 'g', -1, 64)
	case KindString:
		return v.str
	case KindTransform:
		return v.t.String()
	case KindCRS:
		return v.crs.String()
	}
	return ""
}
