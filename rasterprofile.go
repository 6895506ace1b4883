// Package rasterprofile provides validated raster creation profiles.
// A Profile describes how a raster dataset should be created, or how an
// existing one is structured: size, band count, pixel type, tiling,
// compression, nodata, georeferencing transform and driver options.
// Profiles compose by overlay and are handed to an Engine to create datasets;
// FromDataset derives a Profile back from a dataset's actual structure.
package rasterprofile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Common errors returned by this package.
var (
	ErrForbiddenKey     = errors.New("rasterprofile: forbidden key")
	ErrInvalidValue     = errors.New("rasterprofile: invalid value for key")
	ErrUnsupportedValue = errors.New("rasterprofile: unsupported value type")
	ErrInvalidData      = errors.New("rasterprofile: invalid data")
	ErrCreation         = errors.New("rasterprofile: dataset creation failed")
	ErrClosed           = errors.New("rasterprofile: dataset is closed")
	ErrNotFound         = errors.New("rasterprofile: dataset not found")
	ErrNoFootprint      = errors.New("rasterprofile: profile has no footprint")
)

// CreationError reports an engine's refusal to create a dataset.
// Its message is the engine's own diagnostic, unchanged.
type CreationError struct {
	Path string
	Err  error
}

func (e *CreationError) Error() string {
	return e.Err.Error()
}

func (e *CreationError) Unwrap() error {
	return e.Err
}

// Is reports ErrCreation as a match so callers can tell creation failures
// apart from validation failures.
func (e *CreationError) Is(target error) bool {
	return target == ErrCreation
}

// CRS represents a coordinate reference system.
type CRS struct {
	Code int    // EPSG code (e.g., 4326 for WGS84)
	Name string // CRS name
	WKT  string // Well-Known Text representation
}

// WGS84 returns the standard WGS84 CRS (EPSG:4326).
func WGS84() *CRS {
	return &CRS{
		Code: 4326,
		Name: "WGS 84",
	}
}

// EPSG returns a CRS identified only by its EPSG code.
func EPSG(code int) *CRS {
	return &CRS{Code: code}
}

// ParseCRS accepts "EPSG:<code>" (case insensitive) or a WKT string.
func ParseCRS(s string) (*CRS, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty crs", ErrInvalidValue)
	}
	if len(s) > 5 && strings.EqualFold(s[:5], "epsg:") {
		code, err := strconv.Atoi(s[5:])
		if err != nil || code <= 0 {
			return nil, fmt.Errorf("%w: bad epsg code %q", ErrInvalidValue, s)
		}
		return EPSG(code), nil
	}
	return &CRS{WKT: s}, nil
}

// String returns "EPSG:<code>" when a code is known, the WKT otherwise.
func (c CRS) String() string {
	switch {
	case c.Code > 0:
		return "EPSG:" + strconv.Itoa(c.Code)
	case c.WKT != "":
		return c.WKT
	default:
		return c.Name
	}
}
