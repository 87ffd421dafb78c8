package cmd

import (
	"fmt"
	"hotfolder/internal/logger"
	"hotfolder/internal/model"
	"hotfolder/internal/transfer"

	"github.com/spf13/cobra"
)

var (
	transferDest string
	transferCopy bool
)

var transferCmd = &cobra.Command{
	Use:   "transfer [file]...",
	Short: "Move or copy files to the destination once, without watching",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Sync()

		dest := cfg.Directory.DestPath
		if transferDest != "" {
			dest = transferDest
		}

		mode := cfg.TransferConfig().Mode
		if cmd.Flags().Changed("copy") {
			mode = model.ModeFromMoveFlag(!transferCopy)
		}

		out := cmd.OutOrStdout()
		h := transfer.New(transfer.WithReporter(func(line model.StatusLine) {
			_, _ = fmt.Fprintln(out, line.Text)
		}))

		var failed int
		for _, src := range args {
			if _, err := h.Handle(src, dest, mode); err != nil {
				failed++
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d transfers failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	transferCmd.Flags().StringVar(&transferDest, "dest", "", "destination folder (default from config)")
	transferCmd.Flags().BoolVar(&transferCopy, "copy", false, "copy instead of move (default from config)")
	rootCmd.AddCommand(transferCmd)
}
