package cmd

import (
	"context"
	"fmt"
	"hotfolder/internal/daemon"
	"hotfolder/internal/db"
	"hotfolder/internal/logger"
	"hotfolder/internal/model"
	"hotfolder/internal/repository"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchStart bool
	watchRoot  string
	watchDest  string
	watchCopy  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the daemon and print a status line for every transfer",
	RunE:  runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	defer logger.Sync()
	defer func() {
		_ = db.Close()
	}()

	out := cmd.OutOrStdout()
	ctrl := daemon.NewController(cfg, repository.NewSessionRepository())

	ctrl.OnStatus(func(line model.StatusLine) {
		_, _ = fmt.Fprintln(out, line.Text)
	})
	ctrl.OnState(func(from, to model.SessionState, snap model.SessionSnapshot, err error) {
		switch to {
		case model.SessionRunning:
			_, _ = fmt.Fprintf(out, "Monitoring %s for new files...\n", snap.Watch.Root)
		case model.SessionIdle:
			if from == model.SessionRunning {
				_, _ = fmt.Fprintln(out, "Monitoring stopped.")
			}
		case model.SessionErrored:
			_, _ = fmt.Fprintf(out, "Monitoring failed: %v (run 'hotfolder session reset')\n", err)
		}
	})

	srv := daemon.NewServer(ctrl, cfg.DaemonPort)
	srv.Start()

	logger.Log.Info("hotfolder daemon started",
		zap.Int("port", cfg.DaemonPort))

	if watchStart || cfg.StartOnLaunch {
		req := daemon.StartRequest{Root: watchRoot, Dest: watchDest}
		if cmd.Flags().Changed("copy") {
			req.Mode = string(model.ModeFromMoveFlag(!watchCopy))
		}

		if _, err := ctrl.StartSession(req); err != nil {
			_, _ = fmt.Fprintf(out, "Could not start monitoring: %v\n", err)
		}
	} else {
		_, _ = fmt.Fprintln(out, "Idle. Run 'hotfolder session start' to begin monitoring.")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Log.Info("shutting down",
			zap.String("signal", sig.String()))
	case <-srv.StopCh():
		logger.Log.Info("stop requested via API")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

func init() {
	watchCmd.Flags().BoolVar(&watchStart, "start", false, "start monitoring immediately")
	watchCmd.Flags().StringVar(&watchRoot, "root", "", "hot folder to watch (overrides config)")
	watchCmd.Flags().StringVar(&watchDest, "dest", "", "destination folder (overrides config)")
	watchCmd.Flags().BoolVar(&watchCopy, "copy", false, "copy instead of move (overrides config)")
	rootCmd.AddCommand(watchCmd)
}
