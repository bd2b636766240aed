// Package standard implements the Cobra-based btmsctl command set.
package standard

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Execute runs the Cobra-based CLI entry point.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "btmsctl",
		Short: "BTMS gateway command-line interface",
		Long:  "btmsctl inspects a running gateway's routing table and manages its dead-letter queues.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringP("api", "a", envOrDefault("BTMS_ADMIN_API", "http://127.0.0.1:8091"), "gateway admin base URL")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newRoutesCmd())
	cmd.AddCommand(newDLQCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the btmsctl client version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "btmsctl (prototype)\n")
		},
	}
}
