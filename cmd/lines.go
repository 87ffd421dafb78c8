package cmd

import (
	"fmt"
	"hotfolder/internal/model"

	"github.com/spf13/cobra"
)

var linesN int

var linesCmd = &cobra.Command{
	Use:   "lines",
	Short: "Show the most recent status lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		var lines []model.StatusLine
		if err := getJSON(fmt.Sprintf("/lines?n=%d", linesN), &lines); err != nil {
			return err
		}

		if len(lines) == 0 {
			fmt.Println("no transfers yet")
			return nil
		}

		for _, l := range lines {
			fmt.Printf("[%s] %s\n", l.Time.Format("2006-01-02 15:04:05"), l.Text)
		}

		return nil
	},
}

func init() {
	linesCmd.Flags().IntVar(&linesN, "n", 20, "number of lines to show")
	rootCmd.AddCommand(linesCmd)
}
