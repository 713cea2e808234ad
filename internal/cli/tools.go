package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tuannm99/novaspatial/internal/api/middleware"
	"github.com/tuannm99/novaspatial/internal/cellset"
	"github.com/tuannm99/novaspatial/internal/cover"
	"github.com/tuannm99/novaspatial/internal/spatial"
	"github.com/tuannm99/novaspatial/internal/viz"
)

type encodeResult struct {
	Point  spatial.Point  `json:"point" yaml:"point"`
	Cells  []spatial.Cell `json:"cells" yaml:"cells"`
	Center spatial.Point  `json:"center" yaml:"center"`
}

func (a *App) grid() (spatial.Grid, error) {
	cfg, err := a.config()
	if err != nil {
		return spatial.Grid{}, err
	}
	return cfg.Grid()
}

func (a *App) encodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode <lat> <lon>",
		Short: "Print the cell of a point at every depth",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseFloats(args, "lat", "lon")
			if err != nil {
				return err
			}
			grid, err := a.grid()
			if err != nil {
				return err
			}
			p := spatial.Point{Latitude: v[0], Longitude: v[1]}
			leaf, err := spatial.MakeCell(p, grid)
			if err != nil {
				return err
			}
			res := encodeResult{Point: p, Center: spatial.CellCenter(leaf, grid)}
			for d := 1; d <= spatial.MaxDepth; d++ {
				res.Cells = append(res.Cells, leaf.Parent(d))
			}
			return a.print(res)
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

type coverResult struct {
	Leaves int            `json:"leaves" yaml:"leaves"`
	Cells  []spatial.Cell `json:"cells" yaml:"cells"`
}

func (a *App) coverCmd() *cobra.Command {
	var (
		maxCells int
		plotPath string
	)
	cmd := &cobra.Command{
		Use:   "cover",
		Short: "Print the covering cells of a region",
	}
	cmd.PersistentFlags().IntVar(&maxCells, "max-cells", 0, "raster budget (0 = config spatial.max_cover_cells)")
	cmd.PersistentFlags().StringVar(&plotPath, "plot", "", "also draw the covering to this image (png, svg, pdf)")

	options := func() (cover.Options, error) {
		cfg, err := a.config()
		if err != nil {
			return cover.Options{}, err
		}
		grid, err := cfg.Grid()
		if err != nil {
			return cover.Options{}, err
		}
		opts := cover.Options{Grid: grid, MaxCells: cfg.Spatial.MaxCoverCells}
		if maxCells > 0 {
			opts.MaxCells = maxCells
		}
		return opts, nil
	}
	finish := func(ic *cellset.IntervalCell, opts cover.Options, pts []spatial.Point) error {
		merged := ic.Merged()
		if plotPath != "" {
			if err := viz.RenderCover(plotPath, merged, pts, opts.Grid); err != nil {
				return err
			}
		}
		return a.print(coverResult{Leaves: ic.Size(), Cells: merged})
	}

	rect := &cobra.Command{
		Use:   "rect <min_lat> <min_lon> <max_lat> <max_lon>",
		Short: "Cover a lat/lon rectangle",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseFloats(args, "min_lat", "min_lon", "max_lat", "max_lon")
			if err != nil {
				return err
			}
			opts, err := options()
			if err != nil {
				return err
			}
			r := spatial.Rect{MinLat: v[0], MinLon: v[1], MaxLat: v[2], MaxLon: v[3]}
			ic, err := cover.Rect(r, opts)
			if err != nil {
				return err
			}
			return finish(ic, opts, []spatial.Point{
				{Latitude: r.MinLat, Longitude: r.MinLon},
				{Latitude: r.MaxLat, Longitude: r.MaxLon},
			})
		},
	}

	rng := &cobra.Command{
		Use:   "range <lat> <lon> <meters>",
		Short: "Cover a circle",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseFloats(args, "lat", "lon", "meters")
			if err != nil {
				return err
			}
			opts, err := options()
			if err != nil {
				return err
			}
			center := spatial.Point{Latitude: v[0], Longitude: v[1]}
			ic, err := cover.Range(center, v[2], opts)
			if err != nil {
				return err
			}
			return finish(ic, opts, []spatial.Point{center})
		},
	}
	rect.Flags().SetInterspersed(false)
	rng.Flags().SetInterspersed(false)
	cmd.AddCommand(rect, rng)
	return cmd
}

func (a *App) hashTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token <token>",
		Short: "Print the bcrypt hash to put in server.token_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := middleware.HashToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.Out, h)
			return nil
		},
	}
}
