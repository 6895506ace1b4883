package rasterprofile

import (
	"io"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

// IndexOptions configures footprint index writing.
type IndexOptions struct {
	Name         string // Layer name
	Description  string // Layer description
	IncludeIndex bool   // Include spatial index (default: true)
	CRS          *CRS   // Coordinate reference system of the footprints (optional)
}

// DefaultIndexOptions returns default options for writing a footprint index.
func DefaultIndexOptions() *IndexOptions {
	return &IndexOptions{
		Name:         "footprints",
		IncludeIndex: true,
	}
}

// IndexEntry is one dataset of a footprint index.
type IndexEntry struct {
	Location string
	Profile  *Profile // needs width and height; transform defaults to identity
}

// IndexCRS returns the CRS of the first entry that has one, or nil.
func IndexCRS(entries []IndexEntry) *CRS {
	for _, e := range entries {
		if e.Profile == nil {
			continue
		}
		if c, ok := e.Profile.GetCRS(KeyCRS); ok {
			return c
		}
	}
	return nil
}

// WriteIndex writes a FlatGeobuf tile index with one polygon per entry: the
// world footprint of the entry's pixel grid, with its location, driver,
// dtype, size, band count, tiling and compression as attributes.
func WriteIndex(w io.Writer, entries []IndexEntry, opts *IndexOptions) error {
	if opts == nil {
		opts = DefaultIndexOptions()
	}

	if len(entries) == 0 {
		return ErrNoFootprint
	}

	footprints := make([]orb.Polygon, len(entries))
	for i, e := range entries {
		fp, err := Footprint(e.Profile)
		if err != nil {
			return err
		}
		footprints[i] = fp
	}

	builder := flatbuffers.NewBuilder(4096)

	header := writer.NewHeader(builder)
	header.SetGeometryType(flattypes.GeometryTypePolygon)

	if opts.Name != "" {
		header.SetName(opts.Name)
	}
	if opts.Description != "" {
		header.SetDescription(opts.Description)
	}
	header.SetColumns(buildColumns(builder))

	if opts.CRS != nil {
		crs := writer.NewCrs(builder)
		crs.SetOrg("EPSG") // Default organization
		if opts.CRS.Code > 0 {
			crs.SetCode(int32(opts.CRS.Code))
		}
		if opts.CRS.Name != "" {
			crs.SetName(opts.CRS.Name)
		}
		// WKT is stored in the description
		if opts.CRS.WKT != "" {
			crs.SetDescription(opts.CRS.WKT)
		}
		header.SetCrs(crs)
	}

	gen := &footprintGenerator{
		entries:    entries,
		footprints: footprints,
	}

	fgbWriter := writer.NewWriter(header, opts.IncludeIndex, gen, nil)

	_, err := fgbWriter.Write(w)
	return err
}

// footprintGenerator generates one feature per index entry.
type footprintGenerator struct {
	entries    []IndexEntry
	footprints []orb.Polygon
	index      int
}

func (g *footprintGenerator) Generate() *writer.Feature {
	if g.index >= len(g.entries) {
		return nil
	}

	e := g.entries[g.index]
	fp := g.footprints[g.index]
	g.index++

	builder := flatbuffers.NewBuilder(1024)
	fgbGeom := footprintToFGB(fp, builder)
	if fgbGeom == nil {
		return g.Generate() // Skip empty footprints
	}

	feature := writer.NewFeature(builder)
	feature.SetGeometry(fgbGeom)

	if propBytes := encodeProperties(e.Location, e.Profile); len(propBytes) > 0 {
		feature.SetProperties(propBytes)
	}

	return feature
}
