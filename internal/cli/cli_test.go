package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tuannm99/novaspatial/internal/engine"
	"github.com/tuannm99/novaspatial/internal/spatial"
)

type testApp struct {
	*App
	out, errb *bytes.Buffer
	workdir   string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	out, errb := &bytes.Buffer{}, &bytes.Buffer{}
	a := &testApp{App: NewApp(out, errb), out: out, errb: errb, workdir: t.TempDir()}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func (a *testApp) run(t *testing.T, args ...string) string {
	t.Helper()
	a.out.Reset()
	args = append([]string{"--workdir", a.workdir}, args...)
	require.NoError(t, a.Run(context.Background(), args), "stderr: %s", a.errb.String())
	return a.out.String()
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const placesCSV = `pk,lat,lon,depth,payload
1,48.7139,44.4984,,volgograd
2,48.9,44.8
3,-33.86,151.2,,sydney
4,48.7139,44.4984,2,oblast
`

func TestLoadAndQuery(t *testing.T) {
	a := newTestApp(t)
	csvPath := writeFile(t, t.TempDir(), "places.csv", placesCSV)

	out := a.run(t, "load", "places", "--csv", csvPath)
	require.Contains(t, out, "name: places")
	require.Contains(t, out, "rows: 4")

	var hits []engine.Hit
	out = a.run(t, "query", "point", "--format=json", "places", "48.7139", "44.4984")
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	var got []int64
	for _, h := range hits {
		got = append(got, h.PK)
	}
	require.Equal(t, []int64{4, 1}, got)
	require.Equal(t, []byte("volgograd"), hits[1].Payload)

	// negative coordinates are not flags
	out = a.run(t, "query", "point", "places", "-33.86", "151.2")
	require.Contains(t, out, "sydney")
	require.Contains(t, out, "(1 rows)")

	out = a.run(t, "query", "range", "--exact", "--format=json", "places", "48.7139", "44.4984", "3000")
	hits = nil
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	require.Len(t, hits, 2)

	out = a.run(t, "query", "rect", "--limit", "1", "--format=json", "places", "48.7", "44.49", "48.73", "44.52")
	hits = nil
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	require.Len(t, hits, 1)

	out = a.run(t, "query", "polygon", "--format=json", "places", "48.7", "44.49", "48.7", "44.52", "48.73", "44.52", "48.73", "44.49")
	hits = nil
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	got = nil
	for _, h := range hits {
		got = append(got, h.PK)
	}
	require.ElementsMatch(t, []int64{1, 4}, got)

	err := a.Run(context.Background(), []string{"--workdir", a.workdir, "query", "polygon", "places", "48.7", "44.49", "48.7", "44.52"})
	require.Error(t, err)
	err = a.Run(context.Background(), []string{"--workdir", a.workdir, "query", "polygon", "places", "48.7", "44.49", "48.7", "44.52", "48.73"})
	require.Error(t, err)

	cell, err := spatial.MakeCell(spatial.Point{Latitude: -33.86, Longitude: 151.2}, spatial.DefaultGrid)
	require.NoError(t, err)
	out = a.run(t, "query", "cell", "places", cell.String())
	require.Contains(t, out, "sydney")

	out = a.run(t, "catalog", "show")
	require.Contains(t, out, "places")
	require.Contains(t, out, "(1 rows)")

	out = a.run(t, "catalog", "show", "--format=yaml", "places")
	require.Contains(t, out, "kind: spatial")

	out = a.run(t, "catalog", "check", "places")
	require.Contains(t, out, "rows: 4")

	out = a.run(t, "catalog", "page", "places", "1")
	require.Contains(t, out, "=== Page")
	require.Contains(t, out, "kind=leaf")

	out = a.run(t, "catalog", "stats", "--format=json")
	require.Contains(t, out, `"capacity"`)

	a.run(t, "catalog", "drop", "places")
	err = a.Run(context.Background(), []string{"query", "point", "places", "0", "0"})
	require.Error(t, err)
}

func TestLoadScalar(t *testing.T) {
	a := newTestApp(t)
	csvPath := writeFile(t, t.TempDir(), "ages.csv", "key,payload\n30,c\n10,a\n20,b\n40,d\n")
	a.run(t, "load", "ages", "--kind", "scalar", "--csv", csvPath)

	out := a.run(t, "query", "scalar", "ages", "15", "35")
	require.Contains(t, out, "(2 rows)")
	require.Contains(t, out, "20 ")
	require.Contains(t, out, "30 ")
	require.NotContains(t, out, "40")
}

func TestLoadErrors(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	require.Error(t, a.Run(ctx, []string{"--workdir", a.workdir, "load", "x"}))
	require.Error(t, a.Run(ctx, []string{"--workdir", a.workdir, "load", "x", "--csv", "a", "--sqlite", "b"}))
	require.Error(t, a.Run(ctx, []string{"--workdir", a.workdir, "--format", "xml", "catalog", "show"}))

	bad := writeFile(t, t.TempDir(), "bad.csv", "1,48.7,44.5,7\n")
	err := a.Run(ctx, []string{"--workdir", a.workdir, "load", "x", "--csv", bad})
	require.ErrorIs(t, err, spatial.ErrInvalidCell)

	short := writeFile(t, t.TempDir(), "short.csv", "1,48.7\n")
	require.Error(t, a.Run(ctx, []string{"--workdir", a.workdir, "load", "x", "--csv", short}))
}

func TestEncodeAndCover(t *testing.T) {
	a := newTestApp(t)

	var res struct {
		Cells []string `json:"cells"`
	}
	out := a.run(t, "encode", "--format=json", "48.7139", "44.4984")
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Cells, spatial.MaxDepth)
	require.True(t, strings.HasSuffix(res.Cells[0], "/1"))
	require.True(t, strings.HasSuffix(res.Cells[3], "/4"))

	plot := filepath.Join(t.TempDir(), "cover.png")
	out = a.run(t, "cover", "rect", "--max-cells", "64", "--plot", plot, "48.70", "44.49", "48.72", "44.51")
	require.Contains(t, out, "leaves:")
	info, err := os.Stat(plot)
	require.NoError(t, err)
	require.Positive(t, info.Size())

	out = a.run(t, "cover", "range", "--format=json", "--", "-33.86", "151.2", "500")
	require.Contains(t, out, `"cells"`)
}

func TestHashToken(t *testing.T) {
	a := newTestApp(t)
	out := strings.TrimSpace(a.run(t, "hash-token", "s3cret"))
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(out), []byte("s3cret")))
}

type scriptReader struct {
	lines []string
}

func (s *scriptReader) Readline() (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	l := s.lines[0]
	s.lines = s.lines[1:]
	return l, nil
}

func TestShellLoop(t *testing.T) {
	a := newTestApp(t)
	a.run(t, "catalog", "show") // loads config with the temp workdir
	a.out.Reset()

	histPath := filepath.Join(t.TempDir(), "hist")
	h := NewHistory(histPath)
	rl := &scriptReader{lines: []string{
		"",
		"encode   48.7139 44.4984",
		`\help`,
		`\history`,
		`\bogus`,
		"query point nope 0 0",
		"shell",
		`\q`,
		"never reached",
	}}
	root := a.rootCmd()
	root.SetContext(context.Background())
	require.NoError(t, a.shellLoop(root, rl, h))

	out := a.out.String()
	require.Contains(t, out, "cells:")
	require.Contains(t, out, `\history`)
	require.Contains(t, out, "1  encode 48.7139 44.4984")
	require.Contains(t, out, `unknown command: \bogus`)
	require.Contains(t, a.errb.String(), "error:")
	require.Contains(t, a.errb.String(), "already in the shell")
	require.Equal(t, []string{"never reached"}, rl.lines)

	data, err := os.ReadFile(histPath)
	require.NoError(t, err)
	require.Equal(t, "encode 48.7139 44.4984\nquery point nope 0 0\nshell\n", string(data))

	h2 := NewHistory(histPath)
	require.NoError(t, h2.Load(2))
	require.Equal(t, []string{"query point nope 0 0", "shell"}, h2.Lines())
}
