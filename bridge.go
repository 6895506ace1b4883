package rasterprofile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Open opens or creates a dataset through e.
//
// In ModeRead and ModeUpdate the dataset at path is opened and base and
// overrides are ignored, although overrides are still validated. In ModeWrite and ModeWriteRead, overrides are laid
// over a copy of base (base itself is never modified) and the result is
// translated into CreateParams for e.Create. Invalid overrides fail before e
// is called. Engine failures are returned as *CreationError.
func Open(e Engine, path string, mode Mode, base *Profile, overrides ...Item) (Dataset, error) {
	if !mode.Creates() {
		for _, it := range overrides {
			if err := validate(it.Key, it.Value); err != nil {
				return nil, err
			}
		}
		ds, err := e.Open(path, mode)
		if err != nil {
			return nil, err
		}
		return ds, nil
	}

	merged := base.Clone()
	if err := merged.UpdateItems(overrides...); err != nil {
		return nil, err
	}
	params, err := CreateParamsOf(merged)
	if err != nil {
		return nil, err
	}

	ds, err := e.Create(path, mode, params)
	if err != nil {
		var ce *CreationError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, &CreationError{Path: path, Err: err}
	}
	return ds, nil
}

// CreateParamsOf translates a profile into engine creation parameters.
// Typed keys fill the typed fields; tiling, compression, interleave and any
// unrecognized keys become upper-case KEY=VALUE options in key order.
//
// With tiled=true and no blockxsize, a positive blockysize is the strip
// height of a row-organized source profile and is not passed on, so the
// engine's tile defaults apply. Other block sizes reach the engine.
func CreateParamsOf(p *Profile) (CreateParams, error) {
	var params CreateParams
	tiled, _ := p.GetBool(KeyTiled)
	_, hasBlockX := p.Get(KeyBlockXSize)

	for k, v := range p.All() {
		switch k {
		case KeyDriver:
			params.Driver, _ = v.Str()
		case KeyDType:
			params.DataType, _ = v.Str()
		case KeyWidth:
			params.Width = intOf(v)
		case KeyHeight:
			params.Height = intOf(v)
		case KeyCount:
			n := intOf(v)
			params.Count = &n
		case KeyNodata:
			if f, ok := v.Number(); ok {
				params.Nodata = &f
			}
		case KeyTransform:
			if t, ok := v.Transform(); ok {
				params.Transform = &t
			}
		case KeyCRS:
			switch {
			case v.IsNull():
			case v.Kind() == KindString:
				c, err := ParseCRS(v.str)
				if err != nil {
					return CreateParams{}, fmt.Errorf("key %q: %w", k, err)
				}
				params.CRS = c
			default:
				c, _ := v.CRS()
				params.CRS = &c
			}
		case KeyBlockYSize:
			if i, ok := v.Int(); ok && i > 0 && tiled && !hasBlockX {
				continue
			}
			params.Options = append(params.Options, optionOf(k, v))
		default:
			if v.IsNull() {
				continue
			}
			params.Options = append(params.Options, optionOf(k, v))
		}
	}
	return params, nil
}

func intOf(v Value) int {
	i, _ := v.Int()
	return int(i)
}

// optionOf formats a key/value pair as a driver creation option.
func optionOf(key string, v Value) string {
	var s string
	switch v.kind {
	case KindBool:
		s = "NO"
		if b, _ := v.Bool(); b {
			s = "YES"
		}
	case KindString:
		s = strings.ToUpper(v.str)
	case KindInt:
		i, _ := v.Int()
		s = strconv.FormatInt(i, 10)
	default:
		s = v.String()
	}
	return strings.ToUpper(key) + "=" + s
}

// FromDataset derives a profile from ds's current structure. The result is a
// snapshot; call again after the dataset changes.
//
// Block sizes follow the storage layout: a tiled dataset reports tiled=true
// with blockxsize and blockysize, a row-organized one reports tiled=false and
// only blockysize, the strip height, when the engine has one.
func FromDataset(ds Dataset) (*Profile, error) {
	if ds.Closed() {
		return nil, ErrClosed
	}
	s, err := ds.Structure()
	if err != nil {
		return nil, fmt.Errorf("reading structure of %s: %w", ds.Name(), err)
	}
	return StructureProfile(s)
}

// StructureProfile returns the derived profile of a structure, following the
// block size rules of FromDataset.
func StructureProfile(s Structure) (*Profile, error) {
	items := []Item{
		KV(KeyDriver, String(s.Driver)),
		KV(KeyDType, String(s.DataType.String())),
	}
	if s.Nodata != nil {
		items = append(items, KV(KeyNodata, Float(*s.Nodata)))
	}
	items = append(items,
		KV(KeyWidth, Int(int64(s.Width))),
		KV(KeyHeight, Int(int64(s.Height))),
		KV(KeyCount, Int(int64(s.Count))),
	)
	if s.CRS != nil {
		items = append(items, KV(KeyCRS, CRSValue(*s.CRS)))
	}
	transform := Identity()
	if s.Transform != nil {
		transform = *s.Transform
	}
	items = append(items, KV(KeyTransform, Affine(transform)))

	if s.Tiled {
		items = append(items,
			KV(KeyBlockXSize, Int(int64(s.BlockXSize))),
			KV(KeyBlockYSize, Int(int64(s.BlockYSize))),
		)
	} else if s.BlockYSize > 0 {
		items = append(items, KV(KeyBlockYSize, Int(int64(s.BlockYSize))))
	}
	items = append(items, KV(KeyTiled, Bool(s.Tiled)))

	if s.Compression != "" && !strings.EqualFold(s.Compression, "none") {
		items = append(items, KV(KeyCompress, String(strings.ToLower(s.Compression))))
	}
	if s.Interleave != "" {
		items = append(items, KV(KeyInterleave, String(strings.ToLower(s.Interleave))))
	}

	return New(items...)
}

// ProfileStructure is the inverse of StructureProfile. A profile without
// blockxsize describes strips as wide as the dataset.
func ProfileStructure(p *Profile) (Structure, error) {
	var s Structure
	var err error

	s.Driver, _ = p.GetString(KeyDriver)
	if name, ok := p.GetString(KeyDType); ok {
		if s.DataType, err = ParseDataType(name); err != nil {
			return Structure{}, fmt.Errorf("%w %q: %v", ErrInvalidValue, KeyDType, err)
		}
	}
	width, _ := p.GetInt(KeyWidth)
	height, _ := p.GetInt(KeyHeight)
	count, _ := p.GetInt(KeyCount)
	s.Width, s.Height, s.Count = int(width), int(height), int(count)

	s.Tiled, _ = p.GetBool(KeyTiled)
	bx, ok := p.GetInt(KeyBlockXSize)
	if !ok && !s.Tiled {
		bx = width
	}
	by, _ := p.GetInt(KeyBlockYSize)
	s.BlockXSize, s.BlockYSize = int(bx), int(by)

	s.Interleave, _ = p.GetString(KeyInterleave)
	s.Compression, _ = p.GetString(KeyCompress)

	if f, ok := p.GetFloat(KeyNodata); ok {
		s.Nodata = &f
	}
	if t, ok := p.GetTransform(KeyTransform); ok {
		s.Transform = &t
	}
	if c, ok := p.GetCRS(KeyCRS); ok {
		s.CRS = c
	}
	return s, nil
}
