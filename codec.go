package rasterprofile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	flatbuffers "github.com/google/flatbuffers/go"
)

// Binary layout, as a flatbuffers schema:
//
//	table Entry   { key: string; kind: ubyte; value: [ubyte]; }
//
// A crs value is the EPSG code as 8 bytes followed by the name and the WKT,
// each as a uint32 length and raw bytes.
//	table Profile { version: ushort; entries: [Entry]; }
//	root_type Profile; file_identifier "RPRF";
const (
	codecIdentifier = "RPRF"
	codecVersion    = 2

	// vtable offsets of fields 0, 1, 2
	slot0 = 4
	slot1 = 6
	slot2 = 8
)

// Marshal encodes p losslessly, preserving key order and value kinds.
func Marshal(p *Profile) ([]byte, error) {
	builder := flatbuffers.NewBuilder(256)

	entries := make([]flatbuffers.UOffsetT, 0, p.Len())
	for k, v := range p.All() {
		raw, err := encodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		key := builder.CreateString(k)
		val := builder.CreateByteVector(raw)

		builder.StartObject(3)
		builder.PrependUOffsetTSlot(0, key, 0)
		builder.PrependByteSlot(1, byte(v.kind), 0)
		builder.PrependUOffsetTSlot(2, val, 0)
		entries = append(entries, builder.EndObject())
	}

	builder.StartVector(4, len(entries), 4)
	for i := len(entries) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(entries[i])
	}
	vec := builder.EndVector(len(entries))

	builder.StartObject(2)
	builder.PrependUint16Slot(0, codecVersion, 0)
	builder.PrependUOffsetTSlot(1, vec, 0)
	root := builder.EndObject()
	builder.FinishWithFileIdentifier(root, []byte(codecIdentifier))

	return builder.FinishedBytes(), nil
}

// Unmarshal decodes data produced by Marshal. Decoded keys are validated the
// same way as Set, so a stored "affine" key is rejected.
func Unmarshal(data []byte) (p *Profile, err error) {
	if len(data) < 8 || string(data[4:8]) != codecIdentifier {
		return nil, fmt.Errorf("%w: missing %s identifier", ErrInvalidData, codecIdentifier)
	}

	// Out-of-range offsets in corrupt input panic inside the flatbuffers accessors.
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("%w: %v", ErrInvalidData, r)
		}
	}()

	root := flatbuffers.Table{Bytes: data, Pos: flatbuffers.GetUOffsetT(data)}
	if o := flatbuffers.UOffsetT(root.Offset(slot0)); o != 0 {
		if version := root.GetUint16(o + root.Pos); version != codecVersion {
			return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidData, version)
		}
	}

	p = &Profile{values: make(map[string]Value)}
	o := flatbuffers.UOffsetT(root.Offset(slot1))
	if o == 0 {
		return p, nil
	}
	n := root.VectorLen(o)
	for j := 0; j < n; j++ {
		x := root.Vector(o) + flatbuffers.UOffsetT(j)*4
		x = root.Indirect(x)
		entry := flatbuffers.Table{Bytes: data, Pos: x}

		var key string
		if ko := flatbuffers.UOffsetT(entry.Offset(slot0)); ko != 0 {
			key = string(entry.ByteVector(ko + entry.Pos))
		}
		var kind Kind
		if ko := flatbuffers.UOffsetT(entry.Offset(slot1)); ko != 0 {
			kind = Kind(entry.GetByte(ko + entry.Pos))
		}
		var raw []byte
		if ko := flatbuffers.UOffsetT(entry.Offset(slot2)); ko != 0 {
			raw = entry.ByteVector(ko + entry.Pos)
		}

		v, err := decodeValue(kind, raw)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		if err := p.Set(key, v); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p *Profile) MarshalBinary() ([]byte, error) {
	return Marshal(p)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. p is replaced.
func (p *Profile) UnmarshalBinary(data []byte) error {
	q, err := Unmarshal(data)
	if err != nil {
		return err
	}
	*p = *q
	return nil
}

// encodeValue writes the little-endian payload of a value.
func encodeValue(v Value) ([]byte, error) {
	var buf bytes.Buffer

	switch v.kind {
	case KindNull:
		// no payload

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
		buf.WriteString(v.str)

	case KindTransform:
		b := make([]byte, 8)
		for _, f := range v.t {
			binary.LittleEndian.PutUint64(b, math.Float64bits(f))
			buf.Write(b)
		}

	case KindCRS:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(int64(v.crs.Code)))
		buf.Write(b)
		for _, str := range []string{v.crs.Name, v.crs.WKT} {
			buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(len(str))))
			buf.WriteString(str)
		}

	default:
		return nil, fmt.Errorf("%w: kind %s", ErrUnsupportedValue, v.kind)
	}

	return buf.Bytes(), nil
}

// decodeValue reads a payload written by encodeValue.
func decodeValue(kind Kind, data []byte) (Value, error) {
	short := func(want int) error {
		return fmt.Errorf("%w: %s payload is %d bytes, want %d", ErrInvalidData, kind, len(data), want)
	}

	switch kind {
	case KindNull:
		if len(data) != 0 {
			return Value{}, short(0)
		}
		return Null(), nil

	case KindBool:
		if len(data) != 1 {
			return Value{}, short(1)
		}
		return Bool(data[0] != 0), nil

	case KindInt, KindFloat:
		if len(data) != 8 {
			return Value{}, short(8)
		}
		return Value{kind: kind, num: binary.LittleEndian.Uint64(data)}, nil

	case KindString:
		return String(string(data)), nil

	case KindTransform:
		if len(data) != 48 {
			return Value{}, short(48)
		}
		var t Transform
		for i := range t {
			t[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
		}
		return Affine(t), nil

	case KindCRS:
		if len(data) < 8 {
			return Value{}, short(8)
		}
		c := CRS{Code: int(int64(binary.LittleEndian.Uint64(data)))}
		rest := data[8:]
		var fields [2]string
		for i := range fields {
			if len(rest) < 4 {
				return Value{}, fmt.Errorf("%w: truncated crs payload", ErrInvalidData)
			}
			n := binary.LittleEndian.Uint32(rest)
			rest = rest[4:]
			if uint64(n) > uint64(len(rest)) {
				return Value{}, fmt.Errorf("%w: truncated crs payload", ErrInvalidData)
			}
			fields[i], rest = string(rest[:n]), rest[n:]
		}
		if len(rest) != 0 {
			return Value{}, fmt.Errorf("%w: %d trailing bytes in crs payload", ErrInvalidData, len(rest))
		}
		c.Name, c.WKT = fields[0], fields[1]
		return CRSValue(c), nil

	default:
		return Value{}, fmt.Errorf("%w: unknown kind %d", ErrInvalidData, kind)
	}
}
