// Package cli implements the novaspatial admin command line and shell.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tuannm99/novaspatial/internal"
	"github.com/tuannm99/novaspatial/internal/engine"
)

// App carries state shared by every command of one process, so the shell
// can run many command lines against one open database.
type App struct {
	Out io.Writer
	Err io.Writer

	cfg     *internal.NovaSpatialConfig
	db      *engine.Database
	inShell bool

	// per command line
	cfgPath string
	workdir string
	format  string
}

func NewApp(out, errw io.Writer) *App {
	return &App{Out: out, Err: errw}
}

// Run executes one command line.
func (a *App) Run(ctx context.Context, args []string) error {
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(a.Out)
	root.SetErr(a.Err)
	return root.ExecuteContext(ctx)
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

func (a *App) config() (*internal.NovaSpatialConfig, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := internal.LoadConfig(a.cfgPath)
	if err != nil {
		return nil, err
	}
	if a.workdir != "" {
		cfg.Storage.Workdir = a.workdir
	}
	slog.SetDefault(cfg.NewLogger(a.Err))
	a.cfg = cfg
	return cfg, nil
}

func (a *App) database() (*engine.Database, error) {
	if a.db != nil {
		return a.db, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	db, err := engine.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.db = db
	return db, nil
}

func (a *App) rootCmd() *cobra.Command {
	a.cfgPath, a.workdir, a.format = "", "", formatTable
	root := &cobra.Command{
		Use:           "novaspatial",
		Short:         "novaspatial - read-only spatial index tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(a.format); err != nil {
				return err
			}
			_, err := a.config()
			return err
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "config file (yaml)")
	root.PersistentFlags().StringVar(&a.workdir, "workdir", "", "override storage.workdir")
	root.PersistentFlags().StringVarP(&a.format, "format", "o", formatTable, "output format: table, json or yaml")

	root.AddCommand(
		a.loadCmd(),
		a.queryCmd(),
		a.catalogCmd(),
		a.encodeCmd(),
		a.coverCmd(),
		a.hashTokenCmd(),
		a.shellCmd(),
	)
	return root
}
