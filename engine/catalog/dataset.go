package catalog

import (
	"fmt"

	"github.com/segmentio/ksuid"

	rasterprofile "github.com/tingold/orb-rasterprofile"
)

// Dataset is a handle on a catalog dataset. Metadata is read from the store
// on every call, so changes made through another handle are visible.
type Dataset struct {
	engine *Engine
	path   string
	id     ksuid.KSUID
	mode   rasterprofile.Mode
	closed bool
}

var _ rasterprofile.Dataset = (*Dataset)(nil)

func (d *Dataset) Name() string { return d.path }

// ID returns the id assigned when the dataset was created.
func (d *Dataset) ID() ksuid.KSUID { return d.id }

func (d *Dataset) Mode() rasterprofile.Mode { return d.mode }

func (d *Dataset) Closed() bool { return d.closed }

// Close is idempotent.
func (d *Dataset) Close() error {
	d.closed = true
	return nil
}

// Structure reads the stored structure.
func (d *Dataset) Structure() (rasterprofile.Structure, error) {
	if d.closed {
		return rasterprofile.Structure{}, rasterprofile.ErrClosed
	}
	_, s, err := d.engine.get(d.path)
	return s, err
}

// SetNodata sets or, with nil, clears the nodata value.
func (d *Dataset) SetNodata(nodata *float64) error {
	return d.modify(func(s *rasterprofile.Structure) {
		if nodata == nil {
			s.Nodata = nil
			return
		}
		v := *nodata
		s.Nodata = &v
	})
}

// SetTransform sets the pixel-to-world transform.
func (d *Dataset) SetTransform(t rasterprofile.Transform) error {
	return d.modify(func(s *rasterprofile.Structure) {
		s.Transform = &t
	})
}

// SetCRS sets or, with nil, clears the coordinate reference system.
func (d *Dataset) SetCRS(crs *rasterprofile.CRS) error {
	return d.modify(func(s *rasterprofile.Structure) {
		if crs == nil {
			s.CRS = nil
			return
		}
		c := *crs
		s.CRS = &c
	})
}

func (d *Dataset) modify(fn func(*rasterprofile.Structure)) error {
	if d.closed {
		return rasterprofile.ErrClosed
	}
	if !d.mode.Writable() {
		return fmt.Errorf("%w: %s", ErrReadOnly, d.path)
	}
	return d.engine.update(d.path, fn)
}
