package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sensegrid/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, status)
				}
				printStatus(cmd, status)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit status as JSON")
	return cmd
}

func printStatus(cmd *cobra.Command, status *ipc.StatusResponse) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	runningKind := statusError
	if status.Running {
		runningKind = statusOK
	}
	onlineKind := statusWarn
	onlineText := "backend unreachable"
	if status.Online {
		onlineKind = statusOK
		onlineText = "backend reachable"
	}

	fmt.Fprintln(out, "Daemon:")
	fmt.Fprintln(out, renderStatusLine("Running", runningKind, yesNo(status.Running), colorize))
	if status.Running {
		fmt.Fprintln(out, renderStatusLine("PID", statusInfo, fmt.Sprintf("%d", status.PID), colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Connectivity", onlineKind, onlineText, colorize))
	fmt.Fprintln(out, renderStatusLine("Database", statusInfo, status.QueueDBPath, colorize))

	stats := status.QueueStats
	queueKind := statusOK
	if stats.Failed > 0 {
		queueKind = statusError
	} else if stats.Pending > 0 {
		queueKind = statusWarn
	}
	fmt.Fprintln(out, "Queue:")
	fmt.Fprintln(out, renderStatusLine("Summary", queueKind,
		fmt.Sprintf("%d pending, %d synced, %d failed", stats.Pending, stats.Synced, stats.Failed), colorize))
}
