package standard

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newDLQCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Manage dead-letter queues",
	}
	cmd.AddCommand(newDLQListCmd())
	cmd.AddCommand(newDLQRedriveCmd())
	cmd.AddCommand(newDLQDrainCmd())
	cmd.AddCommand(newDLQRemoveCmd())
	return cmd
}

func newDLQListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <queue>",
		Short: "List dead-lettered messages on a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			messages, err := api.ListDead(ctx, args[0])
			if err != nil {
				return err
			}
			if len(messages) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No dead-lettered messages")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-38s %-20s %-9s %-20s %s\n", "ID", "MRN", "ATTEMPTS", "ENQUEUED", "LAST ERROR")
			for _, msg := range messages {
				fmt.Fprintf(cmd.OutOrStdout(), "%-38s %-20s %-9d %-20s %s\n",
					msg.ID, msg.ResourceID, msg.Attempts, msg.EnqueuedAt.Format(time.RFC3339), msg.LastError)
			}
			return nil
		},
	}
}

func newDLQRedriveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redrive <queue>",
		Short: "Return dead-lettered messages to the queue for reprocessing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			moved, err := api.Redrive(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Redriven %d message(s) on %s\n", moved, args[0])
			return nil
		},
	}
}

func newDLQDrainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drain <queue>",
		Short: "Delete every dead-lettered message on a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			removed, err := api.Drain(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Drained %d message(s) from %s\n", removed, args[0])
			return nil
		},
	}
}

func newDLQRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <message-id>",
		Short: "Delete a single message by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			if err := api.Remove(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}
