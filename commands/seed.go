package commands

import (
	"context"
	"fmt"

	"go-restaurant-pos/app"

	"github.com/spf13/cobra"
)

func NewSeedCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Provision demo tables and menu",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := root.load()
			if err != nil {
				return err
			}
			cfg.SeedDemo = false
			a, err := root.open(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			if err := app.Seed(ctx, a.Backend); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "demo data ready")
			return nil
		},
	}
}
