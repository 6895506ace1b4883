package rasterprofile

// DefaultGTiffProfile returns a fresh profile with GeoTIFF-friendly defaults:
// 256x256 tiles, band interleave, LZW compression, uint8 pixels and nodata 0.
// Overrides are applied on top, so they replace defaults of the same key and
// add any other keys. The only possible error is an invalid override.
func DefaultGTiffProfile(overrides ...Item) (*Profile, error) {
	p, err := New(
		KV(KeyTiled, Bool(true)),
		KV(KeyBlockXSize, Int(256)),
		KV(KeyBlockYSize, Int(256)),
		KV(KeyInterleave, String("band")),
		KV(KeyCompress, String("lzw")),
		KV(KeyDType, String(Uint8.String())),
		KV(KeyNodata, Float(0)),
	)
	if err != nil {
		return nil, err
	}
	if err := p.UpdateItems(overrides...); err != nil {
		return nil, err
	}
	return p, nil
}
