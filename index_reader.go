package rasterprofile

import (
	"errors"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"
)

// ErrNoIndex is returned when a footprint index was written without its
// spatial index, which the reader needs to iterate features.
var ErrNoIndex = errors.New("rasterprofile: footprint file has no spatial index")

// IndexHeader contains metadata about a footprint index file.
type IndexHeader struct {
	Name          string     // Layer name
	Description   string     // Layer description
	FeaturesCount uint64     // Number of datasets in the file
	Envelope      [4]float64 // Bounding box [minX, minY, maxX, maxY]
	CRS           *CRS       // Coordinate reference system
	HasIndex      bool       // Whether the file has a spatial index
	Columns       []string   // Attribute column names
}

// IndexRecord is one dataset read back from a footprint index.
type IndexRecord struct {
	Location  string
	Footprint orb.Polygon
	Profile   *Profile // the attribute columns other than location
}

// IndexReader provides read access to a footprint index.
type IndexReader struct {
	fgb *flatgeobuf.FlatGeoBuf
}

// NewIndexReader creates a reader from a file path.
// The file is memory-mapped for efficient access.
func NewIndexReader(path string) (*IndexReader, error) {
	fgb, err := flatgeobuf.New(path)
	if err != nil {
		return nil, err
	}

	return &IndexReader{fgb: fgb}, nil
}

// NewIndexReaderFromData creates a reader from byte data.
func NewIndexReaderFromData(data []byte) (*IndexReader, error) {
	fgb, err := flatgeobuf.NewWithData(data)
	if err != nil {
		return nil, err
	}

	return &IndexReader{fgb: fgb}, nil
}

// Header returns metadata about the index file.
func (r *IndexReader) Header() *IndexHeader {
	h := r.fgb.Header()
	if h == nil {
		return nil
	}

	header := &IndexHeader{
		Name:          string(h.Name()),
		Description:   string(h.Description()),
		FeaturesCount: h.FeaturesCount(),
		HasIndex:      h.IndexNodeSize() > 0,
	}

	if h.EnvelopeLength() >= 4 {
		header.Envelope = [4]float64{
			h.Envelope(0),
			h.Envelope(1),
			h.Envelope(2),
			h.Envelope(3),
		}
	}

	var crs flattypes.Crs
	if h.Crs(&crs) != nil {
		header.CRS = &CRS{
			Code: int(crs.Code()),
			Name: string(crs.Name()),
			WKT:  string(crs.Description()),
		}
	}

	colLen := h.ColumnsLength()
	for i := 0; i < colLen; i++ {
		var col flattypes.Column
		if h.Columns(&col, i) {
			header.Columns = append(header.Columns, string(col.Name()))
		}
	}

	return header
}

// ReadAll reads every record, using the header envelope as search bounds.
func (r *IndexReader) ReadAll() ([]IndexRecord, error) {
	h := r.fgb.Header()

	if h.FeaturesCount() == 0 {
		return nil, nil
	}
	// The official Go implementation can only iterate features through the index.
	if h.IndexNodeSize() == 0 || h.EnvelopeLength() < 4 {
		return nil, ErrNoIndex
	}

	features, err := r.fgb.Search(h.Envelope(0), h.Envelope(1), h.Envelope(2), h.Envelope(3))
	if err != nil {
		return nil, err
	}
	return convertFeatures(features, h), nil
}

// Search returns the records whose footprint bounding boxes intersect bounds.
func (r *IndexReader) Search(bounds orb.Bound) ([]IndexRecord, error) {
	h := r.fgb.Header()

	if h.IndexNodeSize() == 0 {
		return nil, ErrNoIndex
	}

	features, err := r.fgb.Search(bounds.Min[0], bounds.Min[1], bounds.Max[0], bounds.Max[1])
	if err != nil {
		return nil, err
	}
	return convertFeatures(features, h), nil
}

// Close releases resources associated with the reader.
func (r *IndexReader) Close() error {
	// FlatGeoBuf has no Close; dropping the reference lets GC reclaim the mapping.
	r.fgb = nil
	return nil
}

func convertFeatures(features []*flattypes.Feature, header *flattypes.Header) []IndexRecord {
	records := make([]IndexRecord, 0, len(features))
	for _, fgbFeature := range features {
		if rec, ok := convertFeature(fgbFeature, header); ok {
			records = append(records, rec)
		}
	}
	return records
}

// convertFeature converts a FlatGeobuf feature to an IndexRecord.
func convertFeature(fgbFeature *flattypes.Feature, header *flattypes.Header) (IndexRecord, bool) {
	if fgbFeature == nil {
		return IndexRecord{}, false
	}

	var geomObj flattypes.Geometry
	fp := footprintFromFGB(fgbFeature.Geometry(&geomObj))
	if fp == nil {
		return IndexRecord{}, false
	}

	var propsBytes []byte
	if propsLen := fgbFeature.PropertiesLength(); propsLen > 0 && header.ColumnsLength() > 0 {
		propsBytes = make([]byte, propsLen)
		for i := 0; i < propsLen; i++ {
			propsBytes[i] = byte(fgbFeature.Properties(i))
		}
	}
	location, p := decodeProperties(propsBytes, header)

	return IndexRecord{Location: location, Footprint: fp, Profile: p}, true
}
