package cmd

import (
	"fmt"
	"hotfolder/internal/autostart"
	"os"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Start the watcher at login and begin monitoring immediately",
	RunE: func(cmd *cobra.Command, args []string) error {
		as := autostart.New()

		installed, err := as.IsInstalled()
		if err != nil {
			return fmt.Errorf("failed to check autostart: %w", err)
		}
		if installed {
			fmt.Println("hotfolder is already registered for autostart")
			return nil
		}

		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}

		if err := as.Install(execPath); err != nil {
			return err
		}

		fmt.Printf("hotfolder registered for autostart, watching %s\n", cfg.Directory.HFPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
