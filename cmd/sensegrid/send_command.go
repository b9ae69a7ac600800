package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sensegrid/internal/ipc"
)

func newSendCommand(ctx *commandContext) *cobra.Command {
	var sensor string
	var action string
	var rawCommand string
	var homeID string
	var roomID string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "send <device-id>",
		Short: "Send an actuator command to a device",
		Long: `Send an actuator command to a device through the daemon.

The command is delivered directly when the backend is reachable and queued
for later delivery otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targetID := strings.TrimSpace(args[0])
			payload, err := buildCommandPayload(sensor, action, rawCommand)
			if err != nil {
				return err
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Send(targetID, payload, homeID, roomID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if resp.Delivered {
					fmt.Fprintf(out, "Command delivered to %s\n", targetID)
					return nil
				}
				if resp.Entry != nil {
					fmt.Fprintf(out, "Backend unavailable; command queued as %s\n", resp.Entry.ID)
					return nil
				}
				fmt.Fprintln(out, "Command accepted")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sensor, "sensor", "", "Sensor the command addresses (e.g. temperature)")
	cmd.Flags().StringVar(&action, "action", "", "Action to apply (e.g. ON, OFF)")
	cmd.Flags().StringVar(&rawCommand, "json-command", "", "Raw JSON command payload (overrides --sensor/--action)")
	cmd.Flags().StringVar(&homeID, "home", "", "Home identifier forwarded with the command")
	cmd.Flags().StringVar(&roomID, "room", "", "Room identifier forwarded with the command")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the result as JSON")
	return cmd
}

func buildCommandPayload(sensor, action, rawCommand string) (json.RawMessage, error) {
	if raw := strings.TrimSpace(rawCommand); raw != "" {
		if !json.Valid([]byte(raw)) {
			return nil, errors.New("--json-command is not valid JSON")
		}
		return json.RawMessage(raw), nil
	}

	sensor = strings.TrimSpace(sensor)
	action = strings.TrimSpace(action)
	if sensor == "" || action == "" {
		return nil, errors.New("either --json-command or both --sensor and --action are required")
	}
	payload, err := json.Marshal(map[string]string{"sensor": sensor, "action": action})
	if err != nil {
		return nil, fmt.Errorf("encode command: %w", err)
	}
	return payload, nil
}
