package rasterprofile

import "fmt"

// Mode selects how a dataset is opened.
type Mode int

const (
	ModeRead      Mode = iota // "r"
	ModeUpdate                // "r+"
	ModeWrite                 // "w"
	ModeWriteRead             // "w+"
)

var modeNames = [...]string{"r", "r+", "w", "w+"}

// ParseMode parses "r", "r+", "w" or "w+".
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("rasterprofile: invalid mode %q", s)
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// Writable reports whether datasets opened in m accept writes.
func (m Mode) Writable() bool {
	return m != ModeRead
}

// Creates reports whether m creates a new dataset.
func (m Mode) Creates() bool {
	return m == ModeWrite || m == ModeWriteRead
}

// CreateParams is a merged profile translated for an engine. Zero fields mean
// "engine default".
type CreateParams struct {
	Driver    string
	Width     int
	Height    int
	Count     *int // nil means the driver default
	DataType  string
	Nodata    *float64
	Transform *Transform
	CRS       *CRS

	// Options are driver creation options in KEY=VALUE form,
	// e.g. TILED=YES, BLOCKXSIZE=256, COMPRESS=LZW.
	Options []string
}

// Structure is the structural metadata an engine reports for an open dataset.
type Structure struct {
	Driver   string
	DataType DataType
	Width    int
	Height   int
	Count    int

	// Tiled is true when storage is organized in fixed blocks. When false,
	// BlockYSize is the strip height (0 if the engine has none) and
	// BlockXSize is the full width.
	Tiled      bool
	BlockXSize int
	BlockYSize int

	Interleave  string // "pixel", "band" or ""
	Compression string // "" or "none" when uncompressed

	Nodata    *float64
	Transform *Transform
	CRS       *CRS
}

// Engine is the raster engine that creates and opens datasets.
type Engine interface {
	// Create creates a dataset at path. Rejected parameters produce an error
	// carrying the engine's diagnostic.
	Create(path string, mode Mode, params CreateParams) (Dataset, error)

	// Open opens an existing dataset.
	Open(path string, mode Mode) (Dataset, error)
}

// Dataset is an open dataset handle owned by the caller.
type Dataset interface {
	Name() string
	// Structure re-reads the dataset's current structural metadata.
	Structure() (Structure, error)
	Closed() bool
	Close() error
}
