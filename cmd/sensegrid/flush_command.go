package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sensegrid/internal/ipc"
)

func newFlushCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Ask the daemon to flush the queue now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Flush(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Flush requested")
				return nil
			})
		},
	}
}
