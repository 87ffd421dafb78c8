package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the saved settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "hot folder:      %s\n", cfg.Directory.HFPath)
		_, _ = fmt.Fprintf(out, "destination:     %s\n", cfg.Directory.DestPath)
		_, _ = fmt.Fprintf(out, "mode:            %s\n", cfg.TransferConfig().Mode)
		_, _ = fmt.Fprintf(out, "start on launch: %t\n", cfg.StartOnLaunch)
		_, _ = fmt.Fprintf(out, "daemon port:     %d\n", cfg.DaemonPort)
		_, _ = fmt.Fprintf(out, "database:        %s\n", cfg.DBPath)
		_, _ = fmt.Fprintf(out, "config dir:      %s\n", cfg.Dir)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set [root|dest|mode|start_on_launch] [value]",
	Short: "Change one setting and save it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}

		if err := cfg.Save(); err != nil {
			return err
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s set to %s\n", args[0], args[1])
		return nil
	},
}

var configImportCmd = &cobra.Command{
	Use:   "import [config.ini]",
	Short: "Import hfPath, destPath and moveFiles from a legacy config.ini",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ImportINI(args[0]); err != nil {
			return err
		}

		if err := cfg.Save(); err != nil {
			return err
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %s\n", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configImportCmd)
	rootCmd.AddCommand(configCmd)
}
