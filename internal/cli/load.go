package cli

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tuannm99/novaspatial/internal/catalog"
	"github.com/tuannm99/novaspatial/internal/engine"
	"github.com/tuannm99/novaspatial/internal/spatial"
)

func (a *App) loadCmd() *cobra.Command {
	var (
		csvPath    string
		sqlitePath string
		query      string
		kind       string
	)
	cmd := &cobra.Command{
		Use:   "load <index>",
		Short: "Build an index from a CSV file or a SQLite query",
		Long: `Build (or rebuild) an index.

Spatial CSV columns: pk,lat,lon[,depth[,payload]]. Depth 0 stores the row
under its leaf cell; 1-3 store it under a coarser cell.
Scalar CSV columns: key[,payload].
A first line whose leading field is not an integer is treated as a header.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (csvPath == "") == (sqlitePath == "") {
				return errors.New("exactly one of --csv or --sqlite is required")
			}
			db, err := a.database()
			if err != nil {
				return err
			}
			ctx, name := cmd.Context(), args[0]

			var meta catalog.IndexMeta
			switch {
			case sqlitePath != "":
				if catalog.Kind(kind) != catalog.KindSpatial {
					return errors.New("--sqlite loads spatial indexes only")
				}
				meta, err = db.ImportSQLite(ctx, name, sqlitePath, query)
			case catalog.Kind(kind) == catalog.KindScalar:
				var rows []engine.ScalarRow
				if rows, err = readScalarCSV(csvPath); err == nil {
					meta, err = db.LoadScalar(ctx, name, rows)
				}
			case catalog.Kind(kind) == catalog.KindSpatial:
				var places []engine.Place
				if places, err = readPlacesCSV(csvPath); err == nil {
					meta, err = db.LoadSpatial(ctx, name, places)
				}
			default:
				return fmt.Errorf("%w: %q", catalog.ErrBadKind, kind)
			}
			if err != nil {
				return err
			}
			return a.print(meta)
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV file to load")
	cmd.Flags().StringVar(&sqlitePath, "sqlite", "", "SQLite database to import")
	cmd.Flags().StringVar(&query, "query", engine.DefaultImportQuery, "SQLite query returning pk, lat, lon[, payload]")
	cmd.Flags().StringVar(&kind, "kind", string(catalog.KindSpatial), "index kind: spatial or scalar")
	return cmd
}

// readCSV returns the records of path without a leading header line.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var out [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(out) == 0 && len(rec) > 0 {
			if _, perr := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64); perr != nil {
				continue
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseFloat(line int, name, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: %s: %w", line, name, err)
	}
	return v, nil
}

func readPlacesCSV(path string) ([]engine.Place, error) {
	recs, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	places := make([]engine.Place, 0, len(recs))
	for i, rec := range recs {
		line := i + 1
		if len(rec) < 3 {
			return nil, fmt.Errorf("line %d: want pk,lat,lon[,depth[,payload]], got %d fields", line, len(rec))
		}
		var p engine.Place
		if p.PK, err = strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64); err != nil {
			return nil, fmt.Errorf("line %d: pk: %w", line, err)
		}
		if p.Point.Latitude, err = parseFloat(line, "lat", rec[1]); err != nil {
			return nil, err
		}
		if p.Point.Longitude, err = parseFloat(line, "lon", rec[2]); err != nil {
			return nil, err
		}
		if len(rec) > 3 && strings.TrimSpace(rec[3]) != "" {
			if p.Depth, err = strconv.Atoi(strings.TrimSpace(rec[3])); err != nil {
				return nil, fmt.Errorf("line %d: depth: %w", line, err)
			}
			if p.Depth < 0 || p.Depth > spatial.MaxDepth {
				return nil, fmt.Errorf("line %d: %w: depth %d", line, spatial.ErrInvalidCell, p.Depth)
			}
		}
		if len(rec) > 4 {
			p.Payload = []byte(rec[4])
		}
		places = append(places, p)
	}
	return places, nil
}

func readScalarCSV(path string) ([]engine.ScalarRow, error) {
	recs, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	rows := make([]engine.ScalarRow, 0, len(recs))
	for i, rec := range recs {
		var r engine.ScalarRow
		if r.Key, err = strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64); err != nil {
			return nil, fmt.Errorf("line %d: key: %w", i+1, err)
		}
		if len(rec) > 1 {
			r.Payload = []byte(rec[1])
		}
		rows = append(rows, r)
	}
	return rows, nil
}
