package viz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novaspatial/internal/cover"
	"github.com/tuannm99/novaspatial/internal/spatial"
)

func TestCellSquare(t *testing.T) {
	c := spatial.NewCell([4]byte{0, 0, 0, 0}, 1)
	sq := CellSquare(c, spatial.DefaultGrid)
	require.Len(t, sq, 4)
	side := spatial.CellSide(1, spatial.DefaultGrid)
	require.InDelta(t, side, sq[2].X-sq[0].X, 1e-12)
	require.InDelta(t, side, sq[2].Y-sq[0].Y, 1e-12)
}

func TestRenderCover(t *testing.T) {
	r := spatial.Rect{MinLat: 48.70, MinLon: 44.49, MaxLat: 48.72, MaxLon: 44.51}
	ic, err := cover.Rect(r, cover.Options{MaxCells: 64})
	require.NoError(t, err)
	pts := []spatial.Point{{Latitude: 48.71, Longitude: 44.5}}

	dir := t.TempDir()
	for _, name := range []string{"cover.png", "cover.svg"} {
		path := filepath.Join(dir, name)
		require.NoError(t, RenderCover(path, ic.Merged(), pts, spatial.DefaultGrid))
		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Positive(t, info.Size())
	}

	require.Error(t, RenderCover(filepath.Join(dir, "cover.nope"), ic.Merged(), nil, spatial.DefaultGrid))
	require.ErrorIs(t, RenderCover(filepath.Join(dir, "empty.png"), nil, nil, spatial.DefaultGrid), ErrNothingToDraw)
	require.ErrorIs(t, RenderCover(filepath.Join(dir, "bad.png"), []spatial.Cell{{}}, nil, spatial.DefaultGrid), spatial.ErrInvalidCell)
}

func TestRenderPoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.png")
	pts := []spatial.Point{{Latitude: 10, Longitude: 10}, {Latitude: -20, Longitude: 100}}
	require.NoError(t, RenderPoints(path, pts))

	require.ErrorIs(t, RenderPoints(path, []spatial.Point{{Latitude: 100}}), spatial.ErrInvalidPoint)
}
