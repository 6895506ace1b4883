// Package catalog is a raster engine that keeps dataset structure in a
// pebble key-value store. It applies GDAL-like driver rules when datasets are
// created and re-reads the stored structure on every metadata query.
// Pixel data is not stored.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/segmentio/ksuid"

	rasterprofile "github.com/tingold/orb-rasterprofile"
	"github.com/tingold/orb-rasterprofile/internal/gtiff"
)

// Common errors returned by this package.
var (
	ErrReadOnly = errors.New("catalog: dataset opened read-only")
	ErrMode     = errors.New("catalog: invalid mode")
	ErrCorrupt  = errors.New("catalog: corrupt record")
)

const (
	// keyPrefix namespaces dataset records; a record is stored under keyPrefix+path.
	keyPrefix = "ds/"

	idLen = len(ksuid.Nil)
)

// Options configures an Engine.
type Options struct {
	Logger *slog.Logger // defaults to slog.Default()
	Sync   bool         // fsync every write
}

// DefaultOptions returns default engine options.
func DefaultOptions() *Options {
	return &Options{
		Logger: slog.Default(),
		Sync:   true,
	}
}

// Engine implements rasterprofile.Engine on top of pebble.
type Engine struct {
	db        *pebble.DB
	log       *slog.Logger
	writeOpts *pebble.WriteOptions

	// mu serializes read-modify-write of records.
	mu sync.Mutex
}

var _ rasterprofile.Engine = (*Engine)(nil)

// Open opens or creates a catalog in dir.
func Open(dir string, opts *Options) (*Engine, error) {
	return open(dir, &pebble.Options{}, opts)
}

// OpenInMemory returns a catalog that lives only in memory.
func OpenInMemory(opts *Options) (*Engine, error) {
	return open("", &pebble.Options{FS: vfs.NewMem()}, opts)
}

func open(dir string, pebbleOpts *pebble.Options, opts *Options) (*Engine, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	db, err := pebble.Open(dir, pebbleOpts)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	writeOpts := pebble.NoSync
	if opts.Sync {
		writeOpts = pebble.Sync
	}
	return &Engine{db: db, log: logger, writeOpts: writeOpts}, nil
}

// Close closes the underlying store. Open datasets become unusable.
func (e *Engine) Close() error {
	return e.db.Close()
}

// Create resolves params with the driver rules and stores the resulting
// structure under path, replacing any dataset already there.
func (e *Engine) Create(path string, mode rasterprofile.Mode, params rasterprofile.CreateParams) (rasterprofile.Dataset, error) {
	if !mode.Creates() {
		return nil, fmt.Errorf("%w: create with mode %q", ErrMode, mode)
	}
	s, err := gtiff.Resolve(params)
	if err != nil {
		e.log.Debug("dataset rejected", "path", path, "error", err)
		return nil, err
	}

	id := ksuid.New()
	e.mu.Lock()
	err = e.put(path, id, s)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	e.log.Info("dataset created",
		"path", path,
		"id", id.String(),
		"driver", s.Driver,
		"dtype", s.DataType.String(),
		"size", fmt.Sprintf("%dx%dx%d", s.Width, s.Height, s.Count),
		"tiled", s.Tiled,
	)
	return &Dataset{engine: e, path: path, id: id, mode: mode}, nil
}

// Open opens the dataset stored under path in ModeRead or ModeUpdate.
func (e *Engine) Open(path string, mode rasterprofile.Mode) (rasterprofile.Dataset, error) {
	return e.OpenDataset(path, mode)
}

// OpenDataset is Open returning the concrete handle, which also carries the
// metadata setters.
func (e *Engine) OpenDataset(path string, mode rasterprofile.Mode) (*Dataset, error) {
	if mode.Creates() {
		return nil, fmt.Errorf("%w: open with mode %q", ErrMode, mode)
	}
	id, _, err := e.get(path)
	if err != nil {
		return nil, err
	}
	return &Dataset{engine: e, path: path, id: id, mode: mode}, nil
}

// Remove deletes the dataset stored under path.
func (e *Engine) Remove(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, _, err := e.get(path); err != nil {
		return err
	}
	if err := e.db.Delete([]byte(keyPrefix+path), e.writeOpts); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	e.log.Info("dataset removed", "path", path)
	return nil
}

// List returns the stored dataset paths in key order.
func (e *Engine) List() ([]string, error) {
	iter, err := e.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: prefixEnd([]byte(keyPrefix)),
	})
	if err != nil {
		return nil, fmt.Errorf("listing catalog: %w", err)
	}
	defer iter.Close()

	var paths []string
	for iter.First(); iter.Valid(); iter.Next() {
		paths = append(paths, strings.TrimPrefix(string(iter.Key()), keyPrefix))
	}
	return paths, iter.Error()
}

// Entries returns the footprint index entries of the named datasets, or of
// every stored dataset when no paths are given.
func (e *Engine) Entries(paths ...string) ([]rasterprofile.IndexEntry, error) {
	if len(paths) == 0 {
		var err error
		if paths, err = e.List(); err != nil {
			return nil, err
		}
	}

	entries := make([]rasterprofile.IndexEntry, 0, len(paths))
	for _, path := range paths {
		_, s, err := e.get(path)
		if err != nil {
			return nil, err
		}
		p, err := rasterprofile.StructureProfile(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
		}
		entries = append(entries, rasterprofile.IndexEntry{Location: path, Profile: p})
	}
	return entries, nil
}

func prefixEnd(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	end[len(end)-1]++
	return end
}

// A record is the 20-byte dataset id followed by the structure encoded as a
// derived profile.
func (e *Engine) put(path string, id ksuid.KSUID, s rasterprofile.Structure) error {
	p, err := rasterprofile.StructureProfile(s)
	if err != nil {
		return err
	}
	data, err := p.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	record := append(id.Bytes(), data...)
	if err := e.db.Set([]byte(keyPrefix+path), record, e.writeOpts); err != nil {
		return fmt.Errorf("storing %s: %w", path, err)
	}
	return nil
}

func (e *Engine) get(path string) (ksuid.KSUID, rasterprofile.Structure, error) {
	value, closer, err := e.db.Get([]byte(keyPrefix + path))
	if errors.Is(err, pebble.ErrNotFound) {
		return ksuid.Nil, rasterprofile.Structure{}, fmt.Errorf("%w: %s", rasterprofile.ErrNotFound, path)
	}
	if err != nil {
		return ksuid.Nil, rasterprofile.Structure{}, fmt.Errorf("reading %s: %w", path, err)
	}
	defer closer.Close()

	if len(value) < idLen {
		return ksuid.Nil, rasterprofile.Structure{}, fmt.Errorf("%w: %s: short record", ErrCorrupt, path)
	}
	id, err := ksuid.FromBytes(value[:idLen])
	if err != nil {
		return ksuid.Nil, rasterprofile.Structure{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	p, err := rasterprofile.Unmarshal(value[idLen:])
	if err != nil {
		return ksuid.Nil, rasterprofile.Structure{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	s, err := rasterprofile.ProfileStructure(p)
	if err != nil {
		return ksuid.Nil, rasterprofile.Structure{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return id, s, nil
}

// update applies fn to the stored structure of a dataset.
func (e *Engine) update(path string, fn func(*rasterprofile.Structure)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, s, err := e.get(path)
	if err != nil {
		return err
	}
	fn(&s)
	return e.put(path, id, s)
}
