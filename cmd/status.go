package cmd

import (
	"fmt"
	"hotfolder/internal/model"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		var snap model.SessionSnapshot
		if err := getJSON("/status", &snap); err != nil {
			return err
		}

		fmt.Printf("%-10s %-30s %-30s %-6s %-12s %-8s %s\n",
			"STATE", "ROOT", "DEST", "MODE", "TRANSFERRED", "FAILED", "LAST EVENT")

		lastEvent := "-"
		if snap.LastEvent != nil {
			lastEvent = snap.LastEvent.Format("2006-01-02 15:04:05")
		}

		fmt.Printf("%-10s %-30s %-30s %-6s %-12d %-8d %s\n",
			snap.State, snap.Watch.Root, snap.Transfer.DestDir, snap.Transfer.Mode,
			snap.Transferred, snap.Failed, lastEvent)

		if snap.StartedAt != nil && snap.State == model.SessionRunning {
			fmt.Printf("           uptime: %s\n", time.Since(*snap.StartedAt).Round(time.Second))
		}
		if snap.Overflows > 0 {
			fmt.Printf("           missed events: queue overflowed %d time(s)\n", snap.Overflows)
		}
		if snap.Fault != "" {
			fmt.Printf("           fault: %s\n", snap.Fault)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
