// Package gtiff resolves creation parameters into the structure a GDAL-like
// driver would give the new dataset: default pixel type and band count,
// tile or strip layout, interleave and compression. It rejects parameter
// combinations the driver cannot represent.
package gtiff

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	rasterprofile "github.com/tingold/orb-rasterprofile"
)

const (
	// DefaultDriver is used when parameters name no driver.
	DefaultDriver = "GTiff"

	defaultTileSize = 256

	// stripBytes is the target size of one uncompressed strip.
	stripBytes = 8192
)

type driver struct {
	name        string
	dtypes      map[rasterprofile.DataType]bool // nil means every type
	maxBands    int                             // 0 means unlimited
	options     map[string]bool
	layout      func(s *rasterprofile.Structure, opts map[string]string) error
	compression string
}

var drivers = map[string]*driver{
	"gtiff": {
		name: "GTiff",
		options: set("TILED", "BLOCKXSIZE", "BLOCKYSIZE", "COMPRESS", "INTERLEAVE",
			"PHOTOMETRIC", "PREDICTOR", "ZLEVEL", "BIGTIFF", "NUM_THREADS"),
		layout: gtiffLayout,
	},
	"png": {
		name:     "PNG",
		dtypes:   map[rasterprofile.DataType]bool{rasterprofile.Uint8: true, rasterprofile.Uint16: true},
		maxBands: 4,
		options:  set("ZLEVEL", "WORLDFILE"),
		layout:   scanlineLayout,
	},
	"jpeg": {
		name:        "JPEG",
		dtypes:      map[rasterprofile.DataType]bool{rasterprofile.Uint8: true},
		maxBands:    4,
		options:     set("QUALITY", "WORLDFILE"),
		layout:      scanlineLayout,
		compression: "jpeg",
	},
}

var compressions = set("NONE", "LZW", "DEFLATE", "ZSTD", "PACKBITS", "JPEG")

func set(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

// Drivers returns the supported driver names.
func Drivers() []string {
	return []string{"GTiff", "PNG", "JPEG"}
}

// Resolve returns the structure a dataset created with params would have.
func Resolve(params rasterprofile.CreateParams) (rasterprofile.Structure, error) {
	name := params.Driver
	if name == "" {
		name = DefaultDriver
	}
	drv, ok := drivers[strings.ToLower(name)]
	if !ok {
		return rasterprofile.Structure{}, fmt.Errorf("unknown driver %q", name)
	}
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%s: %s", drv.name, fmt.Sprintf(format, args...))
	}

	dtName := params.DataType
	if dtName == "" {
		dtName = rasterprofile.Uint8.String()
	}
	dt, err := rasterprofile.ParseDataType(dtName)
	if err != nil {
		return rasterprofile.Structure{}, fail("%v", err)
	}
	if drv.dtypes != nil && !drv.dtypes[dt] {
		return rasterprofile.Structure{}, fail("data type %s is not supported by this driver", dt)
	}

	if params.Width <= 0 || params.Height <= 0 {
		return rasterprofile.Structure{}, fail("Attempt to create %dx%d dataset is illegal, sizes must be larger than zero",
			params.Width, params.Height)
	}
	count := 1
	if params.Count != nil {
		count = *params.Count
	}
	if count <= 0 || (drv.maxBands > 0 && count > drv.maxBands) {
		return rasterprofile.Structure{}, fail("Attempt to create dataset with %d bands is illegal", count)
	}
	// Row sizes are computed in int and must not overflow.
	if size := max(1, dt.Size()); count > math.MaxInt/size || params.Width > math.MaxInt/(size*count) {
		return rasterprofile.Structure{}, fail("Attempt to create %dx%d dataset with %d bands is illegal, a scanline of %s exceeds the addressable size",
			params.Width, params.Height, count, dt)
	}

	opts := make(map[string]string, len(params.Options))
	for _, o := range params.Options {
		k, v, ok := strings.Cut(o, "=")
		if !ok {
			return rasterprofile.Structure{}, fail("malformed creation option %q", o)
		}
		k = strings.ToUpper(strings.TrimSpace(k))
		if !drv.options[k] {
			return rasterprofile.Structure{}, fail("creation option %q is not supported", k)
		}
		opts[k] = strings.TrimSpace(v)
	}

	s := rasterprofile.Structure{
		Driver:      drv.name,
		DataType:    dt,
		Width:       params.Width,
		Height:      params.Height,
		Count:       count,
		Compression: drv.compression,
	}
	if params.Nodata != nil {
		v := *params.Nodata
		s.Nodata = &v
	}
	if params.Transform != nil {
		t := *params.Transform
		s.Transform = &t
	}
	if params.CRS != nil {
		c := *params.CRS
		s.CRS = &c
	}

	if err := drv.layout(&s, opts); err != nil {
		return rasterprofile.Structure{}, fail("%v", err)
	}
	return s, nil
}

func gtiffLayout(s *rasterprofile.Structure, opts map[string]string) error {
	tiled, err := boolOption(opts, "TILED")
	if err != nil {
		return err
	}

	switch v := strings.ToUpper(opts["INTERLEAVE"]); v {
	case "":
		s.Interleave = "pixel"
		if s.Count == 1 {
			s.Interleave = "band"
		}
	case "PIXEL", "BAND":
		s.Interleave = strings.ToLower(v)
	default:
		return fmt.Errorf("INTERLEAVE=%s is not supported", v)
	}

	comp := strings.ToUpper(opts["COMPRESS"])
	if comp == "" {
		comp = "NONE"
	}
	if !compressions[comp] {
		return fmt.Errorf("COMPRESS=%s is not supported", comp)
	}
	if comp == "JPEG" && s.DataType != rasterprofile.Uint8 {
		return fmt.Errorf("JPEG compression is only supported for uint8, not %s", s.DataType)
	}
	s.Compression = strings.ToLower(comp)

	if v, ok := opts["PREDICTOR"]; ok && v != "1" && v != "2" && v != "3" {
		return fmt.Errorf("PREDICTOR=%s is not supported", v)
	}
	if v, ok := opts["ZLEVEL"]; ok {
		if n, err := strconv.Atoi(v); err != nil || n < 1 || n > 9 {
			return fmt.Errorf("ZLEVEL=%s must be between 1 and 9", v)
		}
	}

	if tiled {
		s.Tiled = true
		if s.BlockXSize, err = tileOption(opts, "BLOCKXSIZE"); err != nil {
			return err
		}
		if s.BlockYSize, err = tileOption(opts, "BLOCKYSIZE"); err != nil {
			return err
		}
		return nil
	}

	// Strips: BLOCKXSIZE is ignored but must still be well formed.
	if _, ok := opts["BLOCKXSIZE"]; ok {
		if _, err := positiveOption(opts, "BLOCKXSIZE"); err != nil {
			return err
		}
	}
	s.BlockXSize = s.Width
	rows := 0
	if _, ok := opts["BLOCKYSIZE"]; ok {
		if rows, err = positiveOption(opts, "BLOCKYSIZE"); err != nil {
			return err
		}
	} else {
		samples := 1
		if s.Interleave == "pixel" {
			samples = s.Count
		}
		rows = stripBytes / (s.Width * s.DataType.Size() * samples)
	}
	s.BlockYSize = max(1, min(rows, s.Height))
	return nil
}

// scanlineLayout is used by formats stored one pixel-interleaved row at a time.
func scanlineLayout(s *rasterprofile.Structure, _ map[string]string) error {
	s.Interleave = "pixel"
	s.BlockXSize = s.Width
	s.BlockYSize = 1
	return nil
}

func boolOption(opts map[string]string, key string) (bool, error) {
	v, ok := opts[key]
	if !ok {
		return false, nil
	}
	switch strings.ToUpper(v) {
	case "YES", "TRUE", "ON", "1":
		return true, nil
	case "NO", "FALSE", "OFF", "0":
		return false, nil
	}
	return false, fmt.Errorf("%s=%s is not a boolean", key, v)
}

func positiveOption(opts map[string]string, key string) (int, error) {
	v := opts[key]
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s=%s must be a positive integer", key, v)
	}
	return n, nil
}

func tileOption(opts map[string]string, key string) (int, error) {
	if _, ok := opts[key]; !ok {
		return defaultTileSize, nil
	}
	n, err := positiveOption(opts, key)
	if err != nil {
		return 0, err
	}
	if n%16 != 0 {
		return 0, fmt.Errorf("%s=%d: tile size must be a multiple of 16", key, n)
	}
	return n, nil
}
