package rasterprofile

import (
	"fmt"
	"iter"
	"sort"
	"strings"
)

// Well-known profile keys.
const (
	KeyDriver      = "driver"
	KeyDType       = "dtype"
	KeyNodata      = "nodata"
	KeyWidth       = "width"
	KeyHeight      = "height"
	KeyCount       = "count"
	KeyCRS         = "crs"
	KeyTransform   = "transform"
	KeyBlockXSize  = "blockxsize"
	KeyBlockYSize  = "blockysize"
	KeyTiled       = "tiled"
	KeyCompress    = "compress"
	KeyInterleave  = "interleave"
	KeyPhotometric = "photometric"
)

// legacyTransformKey is the old name for KeyTransform. It may never be set.
const legacyTransformKey = "affine"

// keyKinds lists the kinds each well-known key accepts. Other keys accept any kind.
var keyKinds = map[string][]Kind{
	KeyDriver:      {KindString},
	KeyDType:       {KindString},
	KeyNodata:      {KindInt, KindFloat, KindNull},
	KeyWidth:       {KindInt},
	KeyHeight:      {KindInt},
	KeyCount:       {KindInt},
	KeyCRS:         {KindCRS, KindString, KindNull},
	KeyTransform:   {KindTransform, KindNull},
	KeyBlockXSize:  {KindInt},
	KeyBlockYSize:  {KindInt},
	KeyTiled:       {KindBool},
	KeyCompress:    {KindString},
	KeyInterleave:  {KindString},
	KeyPhotometric: {KindString},
}

// validate is run on every mutation.
func validate(key string, v Value) error {
	if key == legacyTransformKey {
		return fmt.Errorf("%w %q: use %q instead", ErrForbiddenKey, key, KeyTransform)
	}
	kinds, ok := keyKinds[key]
	if !ok {
		return nil
	}
	for _, k := range kinds {
		if v.kind == k {
			return nil
		}
	}
	return fmt.Errorf("%w %q: got %s", ErrInvalidValue, key, v.kind)
}

// Item is a single key/value pair used to build or update a Profile.
type Item struct {
	Key   string
	Value Value
}

// KV returns an Item.
func KV(key string, v Value) Item {
	return Item{Key: key, Value: v}
}

// Profile is an insertion-ordered mapping of raster creation parameters.
// A missing key means "use the engine default". Profiles are not safe for
// concurrent mutation.
type Profile struct {
	keys   []string
	values map[string]Value
}

// New returns a profile holding items applied left to right; later items win.
func New(items ...Item) (*Profile, error) {
	p := &Profile{values: make(map[string]Value, len(items))}
	if err := p.UpdateItems(items...); err != nil {
		return nil, err
	}
	return p, nil
}

// FromMap builds a profile from plain Go values. Keys are inserted in sorted
// order since map iteration order is random.
func FromMap(m map[string]any) (*Profile, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := &Profile{values: make(map[string]Value, len(m))}
	for _, k := range keys {
		v, err := ValueOf(m[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		if err := p.Set(k, v); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Merge overlays profiles left to right onto a new profile. Nil profiles are skipped.
func Merge(profiles ...*Profile) *Profile {
	out := &Profile{values: make(map[string]Value)}
	for _, p := range profiles {
		out.Update(p)
	}
	return out
}

func (p *Profile) init() {
	if p.values == nil {
		p.values = make(map[string]Value)
	}
}

// Get returns the value stored under key.
func (p *Profile) Get(key string) (Value, bool) {
	if p == nil {
		return Value{}, false
	}
	v, ok := p.values[key]
	return v, ok
}

// Has reports whether key is present.
func (p *Profile) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Set stores v under key. Setting the legacy "affine" key always fails with
// ErrForbiddenKey; a well-known key given the wrong kind fails with
// ErrInvalidValue. On failure the profile is unchanged.
func (p *Profile) Set(key string, v Value) error {
	if err := validate(key, v); err != nil {
		return err
	}
	p.init()
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = v
	return nil
}

// Delete removes key and reports whether it was present.
func (p *Profile) Delete(key string) bool {
	if _, ok := p.values[key]; !ok {
		return false
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
	return true
}

func (p *Profile) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Keys returns the keys in insertion order.
func (p *Profile) Keys() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// All iterates key/value pairs in insertion order.
func (p *Profile) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, k := range p.Keys() {
			if !yield(k, p.values[k]) {
				return
			}
		}
	}
}

// Update overlays src onto p: every key of src is copied, overwriting keys of
// the same name; keys only in p are left alone.
func (p *Profile) Update(src *Profile) {
	if src == nil {
		return
	}
	p.init()
	for _, k := range src.keys {
		if _, ok := p.values[k]; !ok {
			p.keys = append(p.keys, k)
		}
		p.values[k] = src.values[k]
	}
}

// UpdateItems sets each item in order. It stops at the first invalid item;
// items before it have been applied.
func (p *Profile) UpdateItems(items ...Item) error {
	for _, it := range items {
		if err := p.Set(it.Key, it.Value); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an independent copy of p.
func (p *Profile) Clone() *Profile {
	return Merge(p)
}

// Equal reports whether p and o hold the same keys with equal values.
// Key order is not compared.
func (p *Profile) Equal(o *Profile) bool {
	if p.Len() != o.Len() {
		return false
	}
	for k, v := range p.All() {
		ov, ok := o.Get(k)
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// GetInt returns an int value.
func (p *Profile) GetInt(key string) (int64, bool) {
	v, ok := p.Get(key)
	if !ok {
		return 0, false
	}
	return v.Int()
}

// GetFloat returns an int or float value as float64.
func (p *Profile) GetFloat(key string) (float64, bool) {
	v, ok := p.Get(key)
	if !ok {
		return 0, false
	}
	return v.Number()
}

func (p *Profile) GetString(key string) (string, bool) {
	v, ok := p.Get(key)
	if !ok {
		return "", false
	}
	return v.Str()
}

func (p *Profile) GetBool(key string) (bool, bool) {
	v, ok := p.Get(key)
	if !ok {
		return false, false
	}
	return v.Bool()
}

func (p *Profile) GetTransform(key string) (Transform, bool) {
	v, ok := p.Get(key)
	if !ok {
		return Transform{}, false
	}
	return v.Transform()
}

// GetCRS returns the crs stored under key, parsing string values.
func (p *Profile) GetCRS(key string) (*CRS, bool) {
	v, ok := p.Get(key)
	if !ok {
		return nil, false
	}
	if c, ok := v.CRS(); ok {
		return &c, true
	}
	if s, ok := v.Str(); ok {
		c, err := ParseCRS(s)
		return c, err == nil
	}
	return nil, false
}

func (p *Profile) String() string {
	var sb strings.Builder
	sb.WriteString("Profile{")
	i := 0
	for k, v := range p.All() {
		if i > 0 {
			sb.WriteString(", ")
		}
		i++
		sb.WriteString(k)
		sb.WriteByte('=')
		if v.kind == KindString {
			sb.WriteString(fmt.Sprintf("%q", v.str))
		} else {
			sb.WriteString(v.String())
		}
	}
	sb.WriteByte('}')
	return sb.String()
}
