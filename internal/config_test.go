package internal

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novaspatial/internal/spatial"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, "novaspatial", cfg.AppName)
	require.Equal(t, BackendSegment, cfg.Storage.Backend)
	require.Equal(t, 1024, cfg.Storage.PoolCapacity)
	require.Equal(t, 1<<14, cfg.Spatial.MaxCoverCells)

	g, err := cfg.Grid()
	require.NoError(t, err)
	require.Equal(t, spatial.DefaultGrid, g)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "novaspatial.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app_name: places
storage:
  backend: pebble
  workdir: /tmp/places
  pool_capacity: 64
spatial:
  grid: [8, 8, 16, 16]
  max_cover_cells: 256
server:
  addr: ":9000"
log:
  level: debug
  format: json
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "places", cfg.AppName)
	require.Equal(t, BackendPebble, cfg.Storage.Backend)
	require.Equal(t, "/tmp/places", cfg.Storage.Workdir)
	require.Equal(t, 64, cfg.Storage.PoolCapacity)
	require.Equal(t, []int{8, 8, 16, 16}, cfg.Spatial.Grid)
	require.Equal(t, 256, cfg.Spatial.MaxCoverCells)
	require.Equal(t, ":9000", cfg.Server.Addr)

	var buf bytes.Buffer
	cfg.NewLogger(&buf).Debug("config.test", "k", 1)
	require.Contains(t, buf.String(), `"msg":"config.test"`)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("NOVASPATIAL_STORAGE_POOL_CAPACITY", "32")
	t.Setenv("NOVASPATIAL_SERVER_ADDR", "0.0.0.0:1")

	cfg, err := LoadConfigFrom(strings.NewReader("storage:\n  workdir: ./x\n"))
	require.NoError(t, err)
	require.Equal(t, 32, cfg.Storage.PoolCapacity)
	require.Equal(t, "0.0.0.0:1", cfg.Server.Addr)
	require.Equal(t, "./x", cfg.Storage.Workdir)
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"backend":  "storage:\n  backend: mysql\n",
		"grid":     "spatial:\n  grid: [16, 16, 16]\n",
		"grid-pow": "spatial:\n  grid: [16, 12, 16, 16]\n",
		"pool":     "storage:\n  pool_capacity: 0\n",
		"level":    "log:\n  level: loud\n",
		"format":   "log:\n  format: xml\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfigFrom(strings.NewReader(doc))
			require.ErrorIs(t, err, ErrBadConfig)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
