package cmd

import (
	"fmt"
	"hotfolder/internal/daemon"
	"hotfolder/internal/model"

	"github.com/spf13/cobra"
)

var (
	sessionRoot string
	sessionDest string
	sessionMode string
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Control the monitoring session of a running daemon",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start monitoring",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := daemon.StartRequest{Root: sessionRoot, Dest: sessionDest, Mode: sessionMode}

		var snap model.SessionSnapshot
		if err := postJSON("/session/start", req, &snap); err != nil {
			return err
		}

		fmt.Printf("monitoring %s -> %s (%s)\n", snap.Watch.Root, snap.Transfer.DestDir, snap.Transfer.Mode)
		return nil
	},
}

var sessionStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop monitoring",
	RunE: func(cmd *cobra.Command, args []string) error {
		var snap model.SessionSnapshot
		if err := postJSON("/session/stop", nil, &snap); err != nil {
			return err
		}

		fmt.Printf("monitoring stopped: %d transferred, %d failed\n", snap.Transferred, snap.Failed)
		return nil
	},
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear a failed session so it can be started again",
	RunE: func(cmd *cobra.Command, args []string) error {
		var snap model.SessionSnapshot
		if err := postJSON("/session/reset", nil, &snap); err != nil {
			return err
		}

		fmt.Printf("session %s\n", snap.State)
		return nil
	},
}

func init() {
	sessionStartCmd.Flags().StringVar(&sessionRoot, "root", "", "hot folder to watch (default from config)")
	sessionStartCmd.Flags().StringVar(&sessionDest, "dest", "", "destination folder (default from config)")
	sessionStartCmd.Flags().StringVar(&sessionMode, "mode", "", "move or copy (default from config)")
	sessionCmd.AddCommand(sessionStartCmd, sessionStopCmd, sessionResetCmd)
	rootCmd.AddCommand(sessionCmd)
}
