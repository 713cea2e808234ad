package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/tuannm99/novaspatial/internal/catalog"
	"github.com/tuannm99/novaspatial/internal/engine"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func checkFormat(f string) error {
	switch f {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q", f)
}

func (a *App) print(v any) error {
	switch a.format {
	case formatJSON:
		enc := json.NewEncoder(a.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		return writeYAML(a.Out, v)
	}

	switch v := v.(type) {
	case []engine.Hit:
		printHits(a.Out, v)
	case []engine.ScalarHit:
		printScalarHits(a.Out, v)
	case []catalog.IndexMeta:
		printIndexes(a.Out, v)
	default:
		return writeYAML(a.Out, v)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func printHits(w io.Writer, hits []engine.Hit) {
	rows := make([][]string, 0, len(hits))
	for _, h := range hits {
		lat, lon := "NULL", "NULL"
		if h.Point != nil {
			lat = strconv.FormatFloat(h.Point.Latitude, 'f', -1, 64)
			lon = strconv.FormatFloat(h.Point.Longitude, 'f', -1, 64)
		}
		rows = append(rows, []string{strconv.FormatInt(h.PK, 10), h.Cell.String(), lat, lon, string(h.Payload)})
	}
	printTable(w, []string{"pk", "cell", "lat", "lon", "payload"}, rows)
}

func printScalarHits(w io.Writer, hits []engine.ScalarHit) {
	rows := make([][]string, 0, len(hits))
	for _, h := range hits {
		rows = append(rows, []string{strconv.FormatInt(h.Key, 10), string(h.Payload)})
	}
	printTable(w, []string{"key", "payload"}, rows)
}

func printIndexes(w io.Writer, list []catalog.IndexMeta) {
	rows := make([][]string, 0, len(list))
	for _, m := range list {
		rows = append(rows, []string{
			m.Name,
			string(m.Kind),
			strconv.Itoa(int(m.File)),
			m.Root().String(),
			strconv.Itoa(m.Height),
			strconv.Itoa(m.Rows),
		})
	}
	printTable(w, []string{"name", "kind", "file", "root", "height", "rows"}, rows)
}

// printTable draws a psql-style table followed by the row count.
func printTable(w io.Writer, cols []string, rows [][]string) {
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len(c)
	}
	for _, row := range rows {
		for i := range cols {
			if len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
	}

	printRow := func(values []string) {
		for i := range cols {
			if i > 0 {
				fmt.Fprint(w, " | ")
			}
			fmt.Fprint(w, padRight(values[i], widths[i]))
		}
		fmt.Fprintln(w)
	}

	printRow(cols)
	for i := range cols {
		if i > 0 {
			fmt.Fprint(w, "-+-")
		}
		fmt.Fprint(w, strings.Repeat("-", widths[i]))
	}
	fmt.Fprintln(w)
	for _, row := range rows {
		printRow(row)
	}
	fmt.Fprintf(w, "(%d rows)\n", len(rows))
}

func padRight(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}
