package rasterprofile_test

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	rasterprofile "github.com/tingold/orb-rasterprofile"
	"github.com/tingold/orb-rasterprofile/engine/catalog"
)

func openEngine(t *testing.T) *catalog.Engine {
	t.Helper()
	e, err := catalog.OpenInMemory(nil)
	if err != nil {
		t.Fatalf("OpenInMemory failed: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func mustProfile(t *testing.T, items ...rasterprofile.Item) *rasterprofile.Profile {
	t.Helper()
	p, err := rasterprofile.New(items...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

func mustDerive(t *testing.T, ds rasterprofile.Dataset) *rasterprofile.Profile {
	t.Helper()
	p, err := rasterprofile.FromDataset(ds)
	if err != nil {
		t.Fatalf("FromDataset failed: %v", err)
	}
	return p
}

func intKey(p *rasterprofile.Profile, key string) int64 {
	v, _ := p.GetInt(key)
	return v
}

// rgbProfile describes a 3-band byte image stored in row strips.
func rgbProfile(t *testing.T) *rasterprofile.Profile {
	return mustProfile(t,
		rasterprofile.KV(rasterprofile.KeyDriver, rasterprofile.String("GTiff")),
		rasterprofile.KV(rasterprofile.KeyDType, rasterprofile.String("uint8")),
		rasterprofile.KV(rasterprofile.KeyWidth, rasterprofile.Int(791)),
		rasterprofile.KV(rasterprofile.KeyHeight, rasterprofile.Int(718)),
		rasterprofile.KV(rasterprofile.KeyCount, rasterprofile.Int(3)),
		rasterprofile.KV(rasterprofile.KeyInterleave, rasterprofile.String("pixel")),
		rasterprofile.KV(rasterprofile.KeyTransform, rasterprofile.Affine(rasterprofile.Transform{300, 0, 101985, 0, -300, 2826915})),
		rasterprofile.KV(rasterprofile.KeyCRS, rasterprofile.String("EPSG:32618")),
	)
}

func TestOpen_DefaultProfileWritable(t *testing.T) {
	e := openEngine(t)
	base, err := rasterprofile.DefaultGTiffProfile()
	if err != nil {
		t.Fatal(err)
	}

	ds, err := rasterprofile.Open(e, "test.tif", rasterprofile.ModeWrite, base,
		rasterprofile.KV(rasterprofile.KeyWidth, rasterprofile.Int(100)),
		rasterprofile.KV(rasterprofile.KeyHeight, rasterprofile.Int(100)),
		rasterprofile.KV(rasterprofile.KeyCount, rasterprofile.Int(1)),
	)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ds.Close()

	if ds.Closed() {
		t.Error("expected a newly created dataset to be open")
	}
	if ds.Name() != "test.tif" {
		t.Errorf("expected name test.tif, got %q", ds.Name())
	}

	// base is not modified by the overrides.
	if base.Has(rasterprofile.KeyWidth) {
		t.Error("Open modified the base profile")
	}
}

func TestFromDataset_Tiled(t *testing.T) {
	e := openEngine(t)
	base, _ := rasterprofile.DefaultGTiffProfile()

	ds, err := rasterprofile.Open(e, "tiled.tif", rasterprofile.ModeWrite, base,
		rasterprofile.KV(rasterprofile.KeyWidth, rasterprofile.Int(512)),
		rasterprofile.KV(rasterprofile.KeyHeight, rasterprofile.Int(512)),
	)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ds.Close()

	p := mustDerive(t, ds)
	if tiled, _ := p.GetBool(rasterprofile.KeyTiled); !tiled {
		t.Error("expected tiled=true")
	}
	if bx, by := intKey(p, rasterprofile.KeyBlockXSize), intKey(p, rasterprofile.KeyBlockYSize); bx != 256 || by != 256 {
		t.Errorf("expected 256x256 blocks, got %dx%d", bx, by)
	}
	if c, _ := p.GetString(rasterprofile.KeyCompress); c != "lzw" {
		t.Errorf("expected compress lzw, got %q", c)
	}
	if il, _ := p.GetString(rasterprofile.KeyInterleave); il != "band" {
		t.Errorf("expected band interleave, got %q", il)
	}
	if n, ok := p.GetFloat(rasterprofile.KeyNodata); !ok || n != 0 {
		t.Errorf("expected nodata 0, got %v (%v)", n, ok)
	}
	if tr, _ := p.GetTransform(rasterprofile.KeyTransform); !tr.IsIdentity() {
		t.Errorf("expected identity transform, got %v", tr)
	}
	if p.Has("affine") {
		t.Error("derived profile carries the legacy affine key")
	}
}

func TestFromDataset_Untiled(t *testing.T) {
	e := openEngine(t)

	ds, err := rasterprofile.Open(e, "rgb.tif", rasterprofile.ModeWrite, rgbProfile(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ds.Close()

	p := mustDerive(t, ds)
	if tiled, ok := p.GetBool(rasterprofile.KeyTiled); !ok || tiled {
		t.Errorf("expected tiled=false, got %v (%v)", tiled, ok)
	}
	if p.Has(rasterprofile.KeyBlockXSize) {
		t.Error("expected no blockxsize for a striped dataset")
	}
	if by := intKey(p, rasterprofile.KeyBlockYSize); by != 3 {
		t.Errorf("expected strip height 3, got %d", by)
	}
	if c, ok := p.GetCRS(rasterprofile.KeyCRS); !ok || c.Code != 32618 {
		t.Errorf("expected EPSG:32618, got %v", c)
	}
	want := rasterprofile.Transform{300, 0, 101985, 0, -300, 2826915}
	if tr, _ := p.GetTransform(rasterprofile.KeyTransform); tr != want {
		t.Errorf("expected transform %v, got %v", want, tr)
	}

	wantKeys := []string{"driver", "dtype", "width", "height", "count", "crs", "transform", "blockysize", "tiled", "interleave"}
	if !slices.Equal(p.Keys(), wantKeys) {
		t.Errorf("expected keys %v, got %v", wantKeys, p.Keys())
	}
}

func TestOpen_UntiledToTiled(t *testing.T) {
	e := openEngine(t)

	src, err := rasterprofile.Open(e, "rgb.tif", rasterprofile.ModeWrite, rgbProfile(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	derived := mustDerive(t, src)
	src.Close()

	dst, err := rasterprofile.Open(e, "rgb-tiled.tif", rasterprofile.ModeWrite, derived,
		rasterprofile.KV(rasterprofile.KeyTiled, rasterprofile.Bool(true)))
	if err != nil {
		t.Fatalf("Open tiled copy failed: %v", err)
	}
	defer dst.Close()

	p := mustDerive(t, dst)
	if tiled, _ := p.GetBool(rasterprofile.KeyTiled); !tiled {
		t.Error("expected tiled=true")
	}
	if bx, by := intKey(p, rasterprofile.KeyBlockXSize), intKey(p, rasterprofile.KeyBlockYSize); bx != 256 || by != 256 {
		t.Errorf("expected 256x256 blocks, got %dx%d", bx, by)
	}
	for _, k := range []string{rasterprofile.KeyWidth, rasterprofile.KeyHeight, rasterprofile.KeyCount} {
		if intKey(p, k) != intKey(derived, k) {
			t.Errorf("%s changed: %d vs %d", k, intKey(p, k), intKey(derived, k))
		}
	}
}

func TestOpen_ReadRoundTrip(t *testing.T) {
	e := openEngine(t)

	w, err := rasterprofile.Open(e, "a.tif", rasterprofile.ModeWriteRead, rgbProfile(t))
	if err != nil {
		t.Fatal(err)
	}
	written := mustDerive(t, w)
	w.Close()

	r, err := rasterprofile.Open(e, "a.tif", rasterprofile.ModeRead, nil)
	if err != nil {
		t.Fatalf("Open for reading failed: %v", err)
	}
	defer r.Close()

	if read := mustDerive(t, r); !read.Equal(written) {
		t.Errorf("profile changed after reopen:\n got:  %v\n want: %v", read, written)
	}
}

func TestFromDataset_Closed(t *testing.T) {
	e := openEngine(t)
	ds, err := rasterprofile.Open(e, "a.tif", rasterprofile.ModeWrite, rgbProfile(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := ds.Close(); err != nil {
		t.Fatal(err)
	}
	if !ds.Closed() {
		t.Error("expected closed dataset")
	}
	if _, err := rasterprofile.FromDataset(ds); !errors.Is(err, rasterprofile.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestFromDataset_Snapshot(t *testing.T) {
	e := openEngine(t)
	if _, err := rasterprofile.Open(e, "a.tif", rasterprofile.ModeWrite, rgbProfile(t)); err != nil {
		t.Fatal(err)
	}

	ds, err := e.OpenDataset("a.tif", rasterprofile.ModeUpdate)
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Close()

	before := mustDerive(t, ds)
	nodata := -9999.0
	if err := ds.SetNodata(&nodata); err != nil {
		t.Fatalf("SetNodata failed: %v", err)
	}

	if before.Has(rasterprofile.KeyNodata) {
		t.Error("earlier profile changed after the dataset was modified")
	}
	after := mustDerive(t, ds)
	if n, ok := after.GetFloat(rasterprofile.KeyNodata); !ok || n != nodata {
		t.Errorf("expected nodata %v, got %v (%v)", nodata, n, ok)
	}
}

func TestOpen_CreationFailure(t *testing.T) {
	e := openEngine(t)

	_, err := rasterprofile.Open(e, "bad.tif", rasterprofile.ModeWrite, rgbProfile(t),
		rasterprofile.KV(rasterprofile.KeyWidth, rasterprofile.Int(0)))
	if err == nil {
		t.Fatal("expected creation to fail")
	}
	if !errors.Is(err, rasterprofile.ErrCreation) {
		t.Errorf("expected ErrCreation, got %v", err)
	}

	var ce *rasterprofile.CreationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CreationError, got %T", err)
	}
	if ce.Path != "bad.tif" {
		t.Errorf("expected path bad.tif, got %q", ce.Path)
	}
	want := "GTiff: Attempt to create 0x718 dataset is illegal, sizes must be larger than zero"
	if err.Error() != want {
		t.Errorf("expected engine message %q, got %q", want, err.Error())
	}

	if _, err := e.Open("bad.tif", rasterprofile.ModeRead); !errors.Is(err, rasterprofile.ErrNotFound) {
		t.Errorf("failed creation left a dataset behind: %v", err)
	}
}

// recordingEngine records the parameters it is asked to create with.
type recordingEngine struct {
	calls  int
	params rasterprofile.CreateParams
	err    error
}

func (e *recordingEngine) Create(path string, mode rasterprofile.Mode, params rasterprofile.CreateParams) (rasterprofile.Dataset, error) {
	e.calls++
	e.params = params
	if e.err != nil {
		return nil, e.err
	}
	return nil, fmt.Errorf("recordingEngine: no datasets")
}

func (e *recordingEngine) Open(path string, mode rasterprofile.Mode) (rasterprofile.Dataset, error) {
	return nil, rasterprofile.ErrNotFound
}

func TestOpen_InvalidOverrideSkipsEngine(t *testing.T) {
	e := &recordingEngine{}
	base, _ := rasterprofile.DefaultGTiffProfile()

	_, err := rasterprofile.Open(e, "a.tif", rasterprofile.ModeWrite, base,
		rasterprofile.KV("affine", rasterprofile.Affine(rasterprofile.Identity())))
	if !errors.Is(err, rasterprofile.ErrForbiddenKey) {
		t.Errorf("expected ErrForbiddenKey, got %v", err)
	}
	if errors.Is(err, rasterprofile.ErrCreation) {
		t.Error("validation failure reported as creation failure")
	}
	if e.calls != 0 {
		t.Errorf("engine called %d times", e.calls)
	}
}

func TestOpen_CreationErrorNotRewrapped(t *testing.T) {
	inner := &rasterprofile.CreationError{Path: "x", Err: errors.New("disk full")}
	e := &recordingEngine{err: inner}

	_, err := rasterprofile.Open(e, "a.tif", rasterprofile.ModeWrite, rgbProfile(t))
	var ce *rasterprofile.CreationError
	if !errors.As(err, &ce) || ce != inner {
		t.Errorf("expected the engine's CreationError, got %#v", err)
	}
}

func TestOpen_ReadModesIgnoreProfile(t *testing.T) {
	e := &recordingEngine{}
	_, err := rasterprofile.Open(e, "a.tif", rasterprofile.ModeUpdate, nil,
		rasterprofile.KV(rasterprofile.KeyWidth, rasterprofile.Int(10)))
	if !errors.Is(err, rasterprofile.ErrNotFound) {
		t.Errorf("expected the engine's ErrNotFound, got %v", err)
	}
	if e.calls != 0 {
		t.Error("read mode called Create")
	}
}

func TestOpen_ReadModesValidateOverrides(t *testing.T) {
	e := &recordingEngine{}
	for _, mode := range []rasterprofile.Mode{rasterprofile.ModeRead, rasterprofile.ModeUpdate} {
		_, err := rasterprofile.Open(e, "a.tif", mode, nil,
			rasterprofile.KV("affine", rasterprofile.Null()))
		if !errors.Is(err, rasterprofile.ErrForbiddenKey) {
			t.Errorf("%s: expected ErrForbiddenKey, got %v", mode, err)
		}

		_, err = rasterprofile.Open(e, "a.tif", mode, nil,
			rasterprofile.KV(rasterprofile.KeyWidth, rasterprofile.String("wide")))
		if !errors.Is(err, rasterprofile.ErrInvalidValue) {
			t.Errorf("%s: expected ErrInvalidValue, got %v", mode, err)
		}
	}
}

func TestOpen_InvalidBlockSizeWhenTiling(t *testing.T) {
	e := openEngine(t)

	for _, size := range []int64{-16, 0} {
		path := fmt.Sprintf("block%d.tif", size)
		_, err := rasterprofile.Open(e, path, rasterprofile.ModeWrite, nil,
			rasterprofile.KV(rasterprofile.KeyWidth, rasterprofile.Int(64)),
			rasterprofile.KV(rasterprofile.KeyHeight, rasterprofile.Int(64)),
			rasterprofile.KV(rasterprofile.KeyTiled, rasterprofile.Bool(true)),
			rasterprofile.KV(rasterprofile.KeyBlockYSize, rasterprofile.Int(size)),
		)
		if !errors.Is(err, rasterprofile.ErrCreation) {
			t.Errorf("blockysize=%d: expected ErrCreation, got %v", size, err)
			continue
		}
		want := fmt.Sprintf("GTiff: BLOCKYSIZE=%d must be a positive integer", size)
		if err.Error() != want {
			t.Errorf("blockysize=%d: expected %q, got %q", size, want, err.Error())
		}
	}

	paths, err := e.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 0 {
		t.Errorf("rejected datasets were stored: %v", paths)
	}
}

func TestOpen_ExplicitZeroBands(t *testing.T) {
	e := openEngine(t)

	_, err := rasterprofile.Open(e, "empty.tif", rasterprofile.ModeWrite, rgbProfile(t),
		rasterprofile.KV(rasterprofile.KeyCount, rasterprofile.Int(0)))
	if !errors.Is(err, rasterprofile.ErrCreation) {
		t.Fatalf("expected ErrCreation, got %v", err)
	}
	if want := "GTiff: Attempt to create dataset with 0 bands is illegal"; err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}

	// Without a count the driver default of one band applies.
	p := rgbProfile(t)
	p.Delete(rasterprofile.KeyCount)
	ds, err := rasterprofile.Open(e, "single.tif", rasterprofile.ModeWrite, p)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ds.Close()
	if n := intKey(mustDerive(t, ds), rasterprofile.KeyCount); n != 1 {
		t.Errorf("expected 1 band, got %d", n)
	}
}

func TestOpen_OversizedWidth(t *testing.T) {
	e := openEngine(t)

	_, err := rasterprofile.Open(e, "huge.tif", rasterprofile.ModeWrite, nil,
		rasterprofile.KV(rasterprofile.KeyWidth, rasterprofile.Int(1<<62)),
		rasterprofile.KV(rasterprofile.KeyHeight, rasterprofile.Int(1)),
		rasterprofile.KV(rasterprofile.KeyDType, rasterprofile.String("float32")),
		rasterprofile.KV(rasterprofile.KeyTiled, rasterprofile.Bool(false)),
	)
	if !errors.Is(err, rasterprofile.ErrCreation) {
		t.Errorf("expected ErrCreation, got %v", err)
	}
}

func TestFromDataset_CodecRoundTrip(t *testing.T) {
	e := openEngine(t)

	for _, tt := range []struct {
		path string
		base *rasterprofile.Profile
	}{
		{"strips.tif", rgbProfile(t)},
		{"tiles.tif", func() *rasterprofile.Profile {
			p, _ := rasterprofile.DefaultGTiffProfile(
				rasterprofile.KV(rasterprofile.KeyWidth, rasterprofile.Int(512)),
				rasterprofile.KV(rasterprofile.KeyHeight, rasterprofile.Int(512)),
			)
			return p
		}()},
	} {
		ds, err := rasterprofile.Open(e, tt.path, rasterprofile.ModeWrite, tt.base)
		if err != nil {
			t.Fatalf("%s: Open failed: %v", tt.path, err)
		}
		derived := mustDerive(t, ds)
		ds.Close()

		data, err := rasterprofile.Marshal(derived)
		if err != nil {
			t.Fatalf("%s: Marshal failed: %v", tt.path, err)
		}
		back, err := rasterprofile.Unmarshal(data)
		if err != nil {
			t.Fatalf("%s: Unmarshal failed: %v", tt.path, err)
		}
		if !derived.Equal(back) {
			t.Errorf("%s: round trip changed the profile: got %v, want %v", tt.path, back, derived)
		}
		if !slices.Equal(derived.Keys(), back.Keys()) {
			t.Errorf("%s: round trip changed key order: got %v, want %v", tt.path, back.Keys(), derived.Keys())
		}
	}
}

func TestCreateParamsOf(t *testing.T) {
	nodata := 0.0
	tests := []struct {
		name    string
		profile *rasterprofile.Profile
		want    rasterprofile.CreateParams
	}{
		{
			name: "defaults",
			profile: func() *rasterprofile.Profile {
				p, _ := rasterprofile.DefaultGTiffProfile()
				return p
			}(),
			want: rasterprofile.CreateParams{
				DataType: "uint8",
				Nodata:   &nodata,
				Options:  []string{"TILED=YES", "BLOCKXSIZE=256", "BLOCKYSIZE=256", "INTERLEAVE=BAND", "COMPRESS=LZW"},
			},
		},
		{
			name: "strip height dropped when tiling",
			profile: mustProfile(t,
				rasterprofile.KV(rasterprofile.KeyBlockYSize, rasterprofile.Int(3)),
				rasterprofile.KV(rasterprofile.KeyTiled, rasterprofile.Bool(true)),
			),
			want: rasterprofile.CreateParams{Options: []string{"TILED=YES"}},
		},
		{
			name: "invalid block size passed on when tiling",
			profile: mustProfile(t,
				rasterprofile.KV(rasterprofile.KeyTiled, rasterprofile.Bool(true)),
				rasterprofile.KV(rasterprofile.KeyBlockYSize, rasterprofile.Int(-16)),
			),
			want: rasterprofile.CreateParams{Options: []string{"TILED=YES", "BLOCKYSIZE=-16"}},
		},
		{
			name: "explicit zero count",
			profile: mustProfile(t,
				rasterprofile.KV(rasterprofile.KeyCount, rasterprofile.Int(0)),
			),
			want: rasterprofile.CreateParams{Count: ptr(0)},
		},
		{
			name: "strip height kept for strips",
			profile: mustProfile(t,
				rasterprofile.KV(rasterprofile.KeyTiled, rasterprofile.Bool(false)),
				rasterprofile.KV(rasterprofile.KeyBlockYSize, rasterprofile.Int(3)),
			),
			want: rasterprofile.CreateParams{Options: []string{"TILED=NO", "BLOCKYSIZE=3"}},
		},
		{
			name: "driver options and nulls",
			profile: mustProfile(t,
				rasterprofile.KV(rasterprofile.KeyDriver, rasterprofile.String("GTiff")),
				rasterprofile.KV(rasterprofile.KeyWidth, rasterprofile.Int(10)),
				rasterprofile.KV(rasterprofile.KeyHeight, rasterprofile.Int(20)),
				rasterprofile.KV(rasterprofile.KeyCount, rasterprofile.Int(2)),
				rasterprofile.KV(rasterprofile.KeyNodata, rasterprofile.Null()),
				rasterprofile.KV(rasterprofile.KeyTransform, rasterprofile.Null()),
				rasterprofile.KV("predictor", rasterprofile.Int(2)),
				rasterprofile.KV("bigtiff", rasterprofile.String("if_safer")),
				rasterprofile.KV("num_threads", rasterprofile.Null()),
			),
			want: rasterprofile.CreateParams{
				Driver: "GTiff", Width: 10, Height: 20, Count: ptr(2),
				Options: []string{"PREDICTOR=2", "BIGTIFF=IF_SAFER"},
			},
		},
	}

	for _, tt := range tests {
		got, err := rasterprofile.CreateParamsOf(tt.profile)
		if err != nil {
			t.Errorf("%s: CreateParamsOf failed: %v", tt.name, err)
			continue
		}
		if got.Driver != tt.want.Driver || got.Width != tt.want.Width || got.Height != tt.want.Height ||
			!equalPtr(got.Count, tt.want.Count) || got.DataType != tt.want.DataType {
			t.Errorf("%s: unexpected typed fields %+v", tt.name, got)
		}
		if (got.Nodata == nil) != (tt.want.Nodata == nil) || (got.Nodata != nil && *got.Nodata != *tt.want.Nodata) {
			t.Errorf("%s: unexpected nodata %v", tt.name, got.Nodata)
		}
		if !slices.Equal(got.Options, tt.want.Options) {
			t.Errorf("%s: expected options %v, got %v", tt.name, tt.want.Options, got.Options)
		}
	}
}

func TestCreateParamsOf_CRS(t *testing.T) {
	p := mustProfile(t, rasterprofile.KV(rasterprofile.KeyCRS, rasterprofile.String("EPSG:3857")))
	params, err := rasterprofile.CreateParamsOf(p)
	if err != nil {
		t.Fatal(err)
	}
	if params.CRS == nil || params.CRS.Code != 3857 {
		t.Errorf("expected EPSG:3857, got %v", params.CRS)
	}

	p = mustProfile(t, rasterprofile.KV(rasterprofile.KeyCRS, rasterprofile.String("EPSG:x")))
	if _, err := rasterprofile.CreateParamsOf(p); !errors.Is(err, rasterprofile.ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
}

func TestStructureProfile_RoundTrip(t *testing.T) {
	nodata := 255.0
	tr := rasterprofile.Transform{0.5, 0, 10, 0, -0.5, 20}
	structures := []rasterprofile.Structure{
		{
			Driver: "GTiff", DataType: rasterprofile.Uint16, Width: 300, Height: 200, Count: 4,
			Tiled: true, BlockXSize: 128, BlockYSize: 64, Interleave: "pixel", Compression: "deflate",
			Nodata: &nodata, Transform: &tr, CRS: rasterprofile.EPSG(4326),
		},
		{
			Driver: "GTiff", DataType: rasterprofile.Uint8, Width: 791, Height: 718, Count: 3,
			BlockXSize: 791, BlockYSize: 3, Interleave: "pixel", Transform: &tr,
		},
	}

	for i, s := range structures {
		p, err := rasterprofile.StructureProfile(s)
		if err != nil {
			t.Fatalf("%d: StructureProfile failed: %v", i, err)
		}
		back, err := rasterprofile.ProfileStructure(p)
		if err != nil {
			t.Fatalf("%d: ProfileStructure failed: %v", i, err)
		}
		q, err := rasterprofile.StructureProfile(back)
		if err != nil {
			t.Fatal(err)
		}
		if !p.Equal(q) {
			t.Errorf("%d: round trip changed profile:\n %v\n %v", i, p, q)
		}
		if back.BlockXSize != s.BlockXSize || back.BlockYSize != s.BlockYSize || back.Tiled != s.Tiled {
			t.Errorf("%d: blocks changed: %+v", i, back)
		}
	}
}

func ptr[T any](v T) *T { return &v }

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
