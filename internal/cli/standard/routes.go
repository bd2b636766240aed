package standard

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newRoutesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Inspect the routing table",
	}
	cmd.AddCommand(newRoutesListCmd())
	return cmd
}

func newRoutesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			routes, err := api.ListRoutes(ctx)
			if err != nil {
				return err
			}
			if len(routes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No routes configured")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-22s %-36s %-18s %-7s %-14s %-14s\n", "NAME", "PATH", "LEGEND", "TO", "LEGACY", "NEW")
			for _, route := range routes {
				fmt.Fprintf(cmd.OutOrStdout(), "%-22s %-36s %-18s %-7s %-14s %-14s\n",
					route.Name, route.Path, route.Legend, route.RouteTo, route.Legacy, route.New)
			}
			return nil
		},
	}
}
