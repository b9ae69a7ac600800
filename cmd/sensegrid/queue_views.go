package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sensegrid/internal/ipc"
)

const commandPreviewLimit = 40

func buildQueueListRows(entries []ipc.EntryView) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			shortID(entry.ID),
			entry.TargetID,
			commandPreview(entry.Command),
			entry.Status,
			fmt.Sprintf("%d/%d", entry.RetryCount, entry.MaxRetries),
			formatDisplayTime(entry.CreatedAt),
		})
	}
	return rows
}

func printEntryDetail(cmd *cobra.Command, entry ipc.EntryView) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:          %s\n", entry.ID)
	fmt.Fprintf(out, "Target:      %s\n", entry.TargetID)
	fmt.Fprintf(out, "Command:     %s\n", strings.TrimSpace(string(entry.Command)))
	if entry.HomeID != "" {
		fmt.Fprintf(out, "Home:        %s\n", entry.HomeID)
	}
	if entry.RoomID != "" {
		fmt.Fprintf(out, "Room:        %s\n", entry.RoomID)
	}
	fmt.Fprintf(out, "Status:      %s\n", entry.Status)
	fmt.Fprintf(out, "Retries:     %d/%d\n", entry.RetryCount, entry.MaxRetries)
	fmt.Fprintf(out, "Created:     %s\n", formatDisplayTime(entry.CreatedAt))
	if entry.LastRetryAt != nil {
		fmt.Fprintf(out, "Last retry:  %s\n", formatDisplayTime(*entry.LastRetryAt))
	}
	if entry.LastError != "" {
		fmt.Fprintf(out, "Last error:  %s\n", entry.LastError)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func commandPreview(command []byte) string {
	preview := strings.TrimSpace(string(command))
	if len(preview) > commandPreviewLimit {
		preview = preview[:commandPreviewLimit-3] + "..."
	}
	return preview
}

func formatDisplayTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Local().Format("2006-01-02 15:04:05")
}
