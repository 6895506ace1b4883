package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	rasterprofile "github.com/tingold/orb-rasterprofile"
	"github.com/tingold/orb-rasterprofile/internal/config"
)

// testEnv is a config file pointing at a catalog in a temporary directory.
type testEnv struct {
	dir        string
	configPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{dir: dir, configPath: filepath.Join(dir, "config.yaml")}

	cfg := config.DefaultConfig()
	cfg.CatalogDir = filepath.Join(dir, "catalog")
	cfg.Logging.Level = "error"
	require.NoError(t, config.SaveConfig(cfg, env.configPath))
	return env
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func parseProfile(t *testing.T, out string) *rasterprofile.Profile {
	t.Helper()
	p := &rasterprofile.Profile{}
	require.NoError(t, yaml.Unmarshal([]byte(out), p), out)
	return p
}

func TestDefaultsCommand(t *testing.T) {
	env := newTestEnv(t)

	t.Run("plain", func(t *testing.T) {
		out, err := env.run(t, "defaults")
		require.NoError(t, err)

		want, err := rasterprofile.DefaultGTiffProfile()
		require.NoError(t, err)
		assert.True(t, want.Equal(parseProfile(t, out)), out)
	})

	t.Run("overrides", func(t *testing.T) {
		out, err := env.run(t, "defaults", "--set", "count=3", "--set", "DTYPE=uint16")
		require.NoError(t, err)

		p := parseProfile(t, out)
		count, _ := p.GetInt(rasterprofile.KeyCount)
		dtype, _ := p.GetString(rasterprofile.KeyDType)
		assert.Equal(t, int64(3), count)
		assert.Equal(t, "uint16", dtype)
	})

	t.Run("forbidden key", func(t *testing.T) {
		_, err := env.run(t, "defaults", "--set", "affine=[1,0,0,0,1,0]")
		assert.ErrorIs(t, err, rasterprofile.ErrForbiddenKey)
	})

	t.Run("invalid value", func(t *testing.T) {
		_, err := env.run(t, "defaults", "--set", "width=wide")
		assert.ErrorIs(t, err, rasterprofile.ErrInvalidValue)
	})
}

func TestCreateInfoList(t *testing.T) {
	env := newTestEnv(t)

	basePath := filepath.Join(env.dir, "base.yaml")
	require.NoError(t, os.WriteFile(basePath, []byte(`driver: GTiff
dtype: uint8
width: 791
height: 718
count: 3
interleave: pixel
`), 0600))

	out, err := env.run(t, "create", "scenes/rgb.tif", "--profile", basePath)
	require.NoError(t, err)

	created := parseProfile(t, out)
	tiled, _ := created.GetBool(rasterprofile.KeyTiled)
	assert.False(t, tiled)
	assert.False(t, created.Has(rasterprofile.KeyBlockXSize))
	blockY, _ := created.GetInt(rasterprofile.KeyBlockYSize)
	assert.Equal(t, int64(3), blockY)

	out, err = env.run(t, "info", "scenes/rgb.tif")
	require.NoError(t, err)
	assert.True(t, created.Equal(parseProfile(t, out)))

	// Re-create from the derived profile as a tiled dataset.
	profilePath := filepath.Join(env.dir, "rgb.yaml")
	require.NoError(t, os.WriteFile(profilePath, []byte(out), 0600))
	out, err = env.run(t, "create", "scenes/tiled.tif", "--profile", profilePath, "--set", "tiled=true")
	require.NoError(t, err)

	tiledProfile := parseProfile(t, out)
	blockX, _ := tiledProfile.GetInt(rasterprofile.KeyBlockXSize)
	blockY, _ = tiledProfile.GetInt(rasterprofile.KeyBlockYSize)
	assert.Equal(t, int64(256), blockX)
	assert.Equal(t, int64(256), blockY)

	out, err = env.run(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "scenes/rgb.tif\nscenes/tiled.tif\n", out)

	_, err = env.run(t, "rm", "scenes/rgb.tif")
	require.NoError(t, err)
	out, err = env.run(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "scenes/tiled.tif\n", out)
}

func TestCreateErrors(t *testing.T) {
	env := newTestEnv(t)

	t.Run("engine rejects parameters", func(t *testing.T) {
		_, err := env.run(t, "create", "bad.tif", "--set", "width=0", "--set", "height=256")
		require.Error(t, err)
		assert.ErrorIs(t, err, rasterprofile.ErrCreation)
		assert.Contains(t, err.Error(), "sizes must be larger than zero")
	})

	t.Run("read mode", func(t *testing.T) {
		_, err := env.run(t, "create", "a.tif", "--mode", "r")
		assert.Error(t, err)
	})

	t.Run("missing dataset", func(t *testing.T) {
		_, err := env.run(t, "info", "missing.tif")
		assert.ErrorIs(t, err, rasterprofile.ErrNotFound)
	})
}

func TestUpdateCommand(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "create", "a.tif", "--set", "width=512", "--set", "height=512")
	require.NoError(t, err)

	out, err := env.run(t, "update", "a.tif", "--nodata", "255", "--crs", "EPSG:3857")
	require.NoError(t, err)
	p := parseProfile(t, out)
	nodata, ok := p.GetFloat(rasterprofile.KeyNodata)
	require.True(t, ok)
	assert.Equal(t, 255.0, nodata)
	crs, ok := p.GetCRS(rasterprofile.KeyCRS)
	require.True(t, ok)
	assert.Equal(t, 3857, crs.Code)

	out, err = env.run(t, "update", "a.tif", "--nodata", "none")
	require.NoError(t, err)
	assert.False(t, parseProfile(t, out).Has(rasterprofile.KeyNodata))
}

func TestIndexCommand(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "create", "a.tif", "--set", "width=100", "--set", "height=50",
		"--set", "transform=[10, 0, 1000, 0, -10, 2000]")
	require.NoError(t, err)
	_, err = env.run(t, "create", "b.tif", "--set", "width=100", "--set", "height=100")
	require.NoError(t, err)

	indexPath := filepath.Join(env.dir, "footprints.fgb")
	_, err = env.run(t, "index", indexPath)
	require.NoError(t, err)

	reader, err := rasterprofile.NewIndexReader(indexPath)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, uint64(2), reader.Header().FeaturesCount)
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	locations := []string{records[0].Location, records[1].Location}
	assert.ElementsMatch(t, []string{"a.tif", "b.tif"}, locations)
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "rasterprofile", "config.yaml")
	catalogDir := filepath.Join(dir, "catalog")

	run := func(args ...string) error {
		root := NewRootCmd()
		root.SetOut(io.Discard)
		root.SetErr(io.Discard)
		root.SetArgs(append([]string{"--config", configPath}, args...))
		return root.Execute()
	}

	require.NoError(t, run("--catalog", catalogDir, "config", "init"))
	cfg, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, catalogDir, cfg.CatalogDir)

	assert.Error(t, run("config", "init"))
	assert.NoError(t, run("config", "init", "--force"))
}

func TestServeCommand_BadAddr(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "serve", "--addr", "bad::addr::")
	assert.Error(t, err)
}
