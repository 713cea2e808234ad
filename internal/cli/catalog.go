package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func (a *App) catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and maintain the index catalog",
	}

	show := &cobra.Command{
		Use:   "show [index]",
		Short: "List indexes, or show one in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				list, err := db.Indexes()
				if err != nil {
					return err
				}
				return a.print(list)
			}
			m, err := db.Index(args[0])
			if err != nil {
				return err
			}
			return a.print(m)
		},
	}

	check := &cobra.Command{
		Use:   "check <index>",
		Short: "Walk an index and verify its page structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}
			rep, err := db.NewSession().CheckIndex(args[0])
			if err != nil {
				return err
			}
			return a.print(rep)
		},
	}

	drop := &cobra.Command{
		Use:   "drop <index>",
		Short: "Remove an index and its pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}
			if err := db.DropIndex(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.Out, "dropped %s\n", args[0])
			return nil
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show buffer pool counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}
			return a.print(db.PoolStats())
		},
	}

	page := &cobra.Command{
		Use:   "page <index> <page>",
		Short: "Dump one raw page of an index (0 is the meta page)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("page: %w", err)
			}
			db, err := a.database()
			if err != nil {
				return err
			}
			return db.DumpPage(a.Out, args[0], uint32(n))
		},
	}

	cmd.AddCommand(show, check, drop, stats, page)
	return cmd
}
