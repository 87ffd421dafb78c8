package cmd

import (
	"fmt"
	"hotfolder/internal/config"
	"hotfolder/internal/db"
	"hotfolder/internal/logger"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg       *config.Config
	debug     bool
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "hotfolder",
	Short: "Move or copy every new file from a hot folder to a destination",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		logger.Init(debug)

		var err error
		if configDir != "" {
			cfg, err = config.LoadFrom(configDir)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return err
		}

		dbCmds := map[string]bool{
			"watch": true,
		}
		if dbCmds[cmd.Name()] {
			if err := db.Init(cfg.DBPath); err != nil {
				return err
			}
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func daemonURL(path string) string {
	return fmt.Sprintf("http://localhost:%d%s", cfg.DaemonPort, path)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.hotfolder)")
}
