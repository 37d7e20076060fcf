package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"js8bulletin/internal/app"
	logx "js8bulletin/pkg/logx"
)

var runStart bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bulletin scheduler in the foreground",
	Long: "Connects to JS8Call and keeps running until interrupted. Emissions start\n" +
		"when autostart is enabled in the settings, or with --start.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runDaemon(ctx)
	},
}

func init() {
	runCmd.Flags().BoolVar(&runStart, "start", false, "start emissions even when autostart is disabled (simulates if JS8Call is unreachable)")
	rootCmd.AddCommand(runCmd)
}

// runDaemon is shared by "run" and the OS service.
func runDaemon(ctx context.Context) error {
	rt, err := openRuntime(false)
	if err != nil {
		return err
	}
	log := rt.Logger()
	log.Info("js8 bulletin starting", logx.String("settings", rt.Options().ResolvedSettingsPath()))

	rt.Start(ctx)
	a := rt.App()
	if started, _ := a.Autostart(ctx); !started && runStart {
		if err := a.Start(ctx, app.StartOptions{AllowSimulation: true}); err != nil {
			log.Error("start failed", logx.Err(err))
		}
	}

	notifySystemd(daemon.SdNotifyReady)
	stopWatchdog := startWatchdog(ctx, log)

	err = rt.Run(ctx)

	stopWatchdog()
	notifySystemd(daemon.SdNotifyStopping)
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if cerr := rt.Close(shutdownCtx); cerr != nil && err == nil {
		err = fmt.Errorf("shutdown: %w", cerr)
	}
	return err
}

func notifySystemd(state string) {
	// Not running under systemd is not an error.
	_, _ = daemon.SdNotify(false, state)
}

// startWatchdog pings the systemd watchdog at half its interval when
// WatchdogSec is configured for the unit.
func startWatchdog(ctx context.Context, log logx.Logger) func() {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return func() {}
	}
	log.Debug("systemd watchdog enabled", logx.Duration("interval", interval))
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(interval / 2)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				notifySystemd(daemon.SdNotifyWatchdog)
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
