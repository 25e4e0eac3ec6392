package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewToolsCmd creates the tools command.
func NewToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the aggregated tool catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all tools exposed by the configured providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			app, err := BuildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			catalog := app.Router.ListTools(ctx)
			for _, d := range catalog {
				fmt.Printf("%-24s [%s] %s\n", d.Name, d.ProviderID, d.Description)
			}
			fmt.Printf("\n%d tools from %d providers\n", len(catalog), len(app.Router.Providers()))
			return nil
		},
	})

	return cmd
}
