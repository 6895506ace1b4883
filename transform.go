package rasterprofile

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Transform is an affine pixel-to-world mapping in (a, b, c, d, e, f) order:
//
//	x = a*col + b*row + c
//	y = d*col + e*row + f
type Transform [6]float64

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{1, 0, 0, 0, 1, 0}
}

// FromGDAL converts a GDAL geotransform (c, a, b, f, d, e) to a Transform.
func FromGDAL(gt [6]float64) Transform {
	return Transform{gt[1], gt[2], gt[0], gt[4], gt[5], gt[3]}
}

// GDAL returns t in GDAL geotransform order.
func (t Transform) GDAL() [6]float64 {
	return [6]float64{t[2], t[0], t[1], t[5], t[3], t[4]}
}

// IsIdentity reports whether t is the identity transform.
func (t Transform) IsIdentity() bool {
	return t == Identity()
}

// Apply maps a pixel coordinate to world coordinates.
func (t Transform) Apply(col, row float64) orb.Point {
	return orb.Point{
		t[0]*col + t[1]*row + t[2],
		t[3]*col + t[4]*row + t[5],
	}
}

// Footprint returns the world polygon covered by a width x height grid.
func (t Transform) Footprint(width, height int) orb.Polygon {
	w, h := float64(width), float64(height)
	ring := orb.Ring{
		t.Apply(0, 0),
		t.Apply(w, 0),
		t.Apply(w, h),
		t.Apply(0, h),
		t.Apply(0, 0),
	}
	return orb.Polygon{ring}
}

// Bounds returns the world bounding box of a width x height grid.
func (t Transform) Bounds(width, height int) orb.Bound {
	return t.Footprint(width, height).Bound()
}

func (t Transform) String() string {
	return fmt.Sprintf("Transform(%g, %g, %g, %g, %g, %g)", t[0], t[1], t[2], t[3], t[4], t[5])
}
