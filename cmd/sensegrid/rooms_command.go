package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sensegrid/internal/backend"
	"sensegrid/internal/ipc"
)

func newRoomsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Show the rooms the backend currently knows about",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Rooms()
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if len(resp.Rooms) == 0 {
					fmt.Fprintln(out, "No rooms reported by the backend")
					return nil
				}
				headers := []string{"Room", "Device", "Sensors", "Actions", "Last Seen"}
				rows := buildRoomRows(resp.Rooms)
				fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft}))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit rooms as JSON")
	return cmd
}

func buildRoomRows(rooms []backend.Room) [][]string {
	rows := make([][]string, 0, len(rooms))
	for _, room := range rooms {
		name := strings.TrimSpace(room.RoomName)
		if name == "" {
			name = room.RoomID
		}
		rows = append(rows, []string{
			name,
			room.DeviceID,
			formatSensorReadings(room.Sensors),
			formatActuatorStates(room.Actions),
			formatLastSeen(room.LastSeen),
		})
	}
	return rows
}

func formatSensorReadings(sensors map[string]float64) string {
	if len(sensors) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(sensors))
	for key := range sensors {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%g", key, sensors[key]))
	}
	return strings.Join(parts, " ")
}

func formatActuatorStates(actions map[string]string) string {
	if len(actions) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(actions))
	for key := range actions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", key, actions[key]))
	}
	return strings.Join(parts, " ")
}

func formatLastSeen(lastSeen int64) string {
	if lastSeen <= 0 {
		return "never"
	}
	return time.Unix(lastSeen, 0).Local().Format("2006-01-02 15:04:05")
}
