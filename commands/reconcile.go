package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

type reconcileOptions struct {
	table int
	all   bool
}

func NewReconcileCommand(root *RootOptions) *cobra.Command {
	opts := &reconcileOptions{}
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute table balances from their open orders",
		Long:  "Recompute one table (--table) or every table from the order ledger. Safe to run repeatedly.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if opts.all && opts.table > 0 {
				return errors.New("use either --table or --all")
			}
			cfg, err := root.load()
			if err != nil {
				return err
			}
			a, err := root.open(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			out := json.NewEncoder(cmd.OutOrStdout())
			if opts.table > 0 {
				table, err := a.Engine.Reconcile(ctx, opts.table)
				if err != nil {
					return err
				}
				return out.Encode(table)
			}
			if err := a.Engine.ReconcileAll(ctx); err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}
			tables, err := a.Backend.Tables.ListTables(ctx)
			if err != nil {
				return err
			}
			return out.Encode(tables)
		},
	}
	cmd.Flags().IntVarP(&opts.table, "table", "t", 0, "reconcile only this table")
	cmd.Flags().BoolVar(&opts.all, "all", false, "reconcile every table (the default)")
	return cmd
}
