package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tuannm99/novaspatial/internal/engine"
	"github.com/tuannm99/novaspatial/internal/spatial"
)

func parseFloats(args []string, names ...string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		v, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[i] = v
	}
	return out, nil
}

func (a *App) queryCmd() *cobra.Command {
	var (
		limit int
		exact bool
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a query against an index",
	}
	cmd.PersistentFlags().IntVar(&limit, "limit", 0, "stop after this many rows (0 = all)")

	session := func() (*engine.Session, error) {
		db, err := a.database()
		if err != nil {
			return nil, err
		}
		return db.NewSession(), nil
	}

	point := &cobra.Command{
		Use:   "point <index> <lat> <lon>",
		Short: "Rows whose cell contains the point",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseFloats(args[1:], "lat", "lon")
			if err != nil {
				return err
			}
			s, err := session()
			if err != nil {
				return err
			}
			hits, err := s.QueryPoint(cmd.Context(), args[0], spatial.Point{Latitude: v[0], Longitude: v[1]}, engine.QueryOptions{Limit: limit})
			if err != nil {
				return err
			}
			return a.print(hits)
		},
	}

	rect := &cobra.Command{
		Use:   "rect <index> <min_lat> <min_lon> <max_lat> <max_lon>",
		Short: "Rows inside a lat/lon rectangle (may include border cells)",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseFloats(args[1:], "min_lat", "min_lon", "max_lat", "max_lon")
			if err != nil {
				return err
			}
			s, err := session()
			if err != nil {
				return err
			}
			r := spatial.Rect{MinLat: v[0], MinLon: v[1], MaxLat: v[2], MaxLon: v[3]}
			hits, err := s.QueryRect(cmd.Context(), args[0], r, engine.QueryOptions{Limit: limit})
			if err != nil {
				return err
			}
			return a.print(hits)
		},
	}

	rng := &cobra.Command{
		Use:   "range <index> <lat> <lon> <meters>",
		Short: "Rows within a radius of a point",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseFloats(args[1:], "lat", "lon", "meters")
			if err != nil {
				return err
			}
			s, err := session()
			if err != nil {
				return err
			}
			center := spatial.Point{Latitude: v[0], Longitude: v[1]}
			hits, err := s.QueryRange(cmd.Context(), args[0], center, v[2], engine.QueryOptions{Limit: limit, Exact: exact})
			if err != nil {
				return err
			}
			return a.print(hits)
		},
	}
	rng.Flags().BoolVar(&exact, "exact", false, "drop rows whose stored point is outside the radius")

	polygon := &cobra.Command{
		Use:   "polygon <index> <lat> <lon> <lat> <lon> <lat> <lon> [<lat> <lon>...]",
		Short: "Rows whose stored point lies inside a lat/lon ring",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 7 || len(args)%2 == 0 {
				return fmt.Errorf("want an index and at least 3 lat/lon pairs, got %d args", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ring := make([]spatial.Point, 0, len(args)/2)
			for i := 1; i < len(args); i += 2 {
				v, err := parseFloats(args[i:i+2], fmt.Sprintf("lat %d", len(ring)), fmt.Sprintf("lon %d", len(ring)))
				if err != nil {
					return err
				}
				ring = append(ring, spatial.Point{Latitude: v[0], Longitude: v[1]})
			}
			s, err := session()
			if err != nil {
				return err
			}
			hits, err := s.QueryPolygon(cmd.Context(), args[0], ring, engine.QueryOptions{Limit: limit})
			if err != nil {
				return err
			}
			return a.print(hits)
		},
	}

	cell := &cobra.Command{
		Use:   "cell <index> <cell>",
		Short: "Rows intersecting a cell, e.g. 9ca343b1 or 9ca30000/2",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := spatial.ParseCell(args[1])
			if err != nil {
				return err
			}
			s, err := session()
			if err != nil {
				return err
			}
			hits, err := s.QueryCell(cmd.Context(), args[0], c, engine.QueryOptions{Limit: limit})
			if err != nil {
				return err
			}
			return a.print(hits)
		},
	}

	scalar := &cobra.Command{
		Use:   "scalar <index> <lo> <hi>",
		Short: "Rows of a scalar index with lo <= key <= hi",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			lo, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("lo: %w", err)
			}
			hi, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("hi: %w", err)
			}
			s, err := session()
			if err != nil {
				return err
			}
			hits, err := s.ScalarRange(cmd.Context(), args[0], lo, hi, limit)
			if err != nil {
				return err
			}
			return a.print(hits)
		},
	}

	// negative coordinates must not be read as flags
	for _, c := range []*cobra.Command{point, rect, rng, polygon, scalar} {
		c.Flags().SetInterspersed(false)
	}
	cmd.AddCommand(point, rect, rng, polygon, cell, scalar)
	return cmd
}
