package cmd

import (
	"fmt"
	"hotfolder/internal/model"
	"hotfolder/internal/repository"

	"github.com/spf13/cobra"
)

var historyN int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View past monitoring sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		var records []model.SessionRecord
		if err := getJSON(fmt.Sprintf("/sessions?n=%d", historyN), &records); err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("no sessions yet")
			return nil
		}

		var stats repository.Stats
		if err := getJSON("/sessions/stats", &stats); err != nil {
			return err
		}
		fmt.Printf("%d sessions (%d errored), %d transferred, %d failed\n\n",
			stats.Sessions, stats.Errored, stats.Transferred, stats.Failed)

		for _, r := range records {
			status := "✓"
			if r.State == model.SessionErrored {
				status = "✗"
			}

			ended := "running"
			if r.EndedAt != nil {
				ended = r.EndedAt.Format("2006-01-02 15:04:05")
			}

			fmt.Printf("%s [%s - %s] %-4s %s -> %s (%d transferred, %d failed)\n",
				status,
				r.StartedAt.Format("2006-01-02 15:04:05"),
				ended,
				r.Mode,
				r.Root,
				r.DestDir,
				r.Transferred,
				r.Failed,
			)
			if r.Fault != "" {
				fmt.Printf("    %s\n", r.Fault)
			}
		}

		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyN, "n", 20, "number of sessions to show")
	rootCmd.AddCommand(historyCmd)
}
