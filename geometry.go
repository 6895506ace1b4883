package rasterprofile

import (
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

// footprintToFGB converts a footprint polygon to a FlatGeobuf writer.Geometry.
func footprintToFGB(poly orb.Polygon, builder *flatbuffers.Builder) *writer.Geometry {
	if len(poly) == 0 {
		return nil
	}

	g := writer.NewGeometry(builder)
	g.SetType(flattypes.GeometryTypePolygon)
	xy, ends := polygonToXYEnds(poly)
	g.SetXY(xy)
	g.SetEnds(ends)
	return g
}

// polygonToXYEnds flattens poly into interleaved coordinates and the
// cumulative point count at the end of each ring.
func polygonToXYEnds(poly orb.Polygon) ([]float64, []uint32) {
	var xy []float64
	ends := make([]uint32, len(poly))
	for i, ring := range poly {
		for _, pt := range ring {
			xy = append(xy, pt.X(), pt.Y())
		}
		ends[i] = uint32(len(xy) / 2)
	}
	return xy, ends
}

// footprintFromFGB reads a polygon back. Other geometry types yield nil.
// Without ring ends all points form one ring.
func footprintFromFGB(g *flattypes.Geometry) orb.Polygon {
	if g == nil || g.Type() != flattypes.GeometryTypePolygon {
		return nil
	}

	points := g.XyLength() / 2
	ends := []uint32{uint32(points)}
	if n := g.EndsLength(); n > 0 {
		ends = make([]uint32, n)
		for i := range ends {
			ends[i] = g.Ends(i)
		}
	}

	poly := orb.Polygon{}
	var start uint32
	for _, end := range ends {
		if end < start || int(end) > points {
			break
		}
		ring := make(orb.Ring, 0, end-start)
		for j := int(start); j < int(end); j++ {
			ring = append(ring, orb.Point{g.Xy(2 * j), g.Xy(2*j + 1)})
		}
		if len(ring) > 0 {
			poly = append(poly, ring)
		}
		start = end
	}
	return poly
}

// Footprint returns the world footprint of a profile's pixel grid.
// A profile without a transform is placed with the identity transform.
func Footprint(p *Profile) (orb.Polygon, error) {
	width, okW := p.GetInt(KeyWidth)
	height, okH := p.GetInt(KeyHeight)
	if !okW || !okH || width <= 0 || height <= 0 {
		return nil, ErrNoFootprint
	}
	t, ok := p.GetTransform(KeyTransform)
	if !ok {
		t = Identity()
	}
	return t.Footprint(int(width), int(height)), nil
}
