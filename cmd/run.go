package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	_ "firestige.xyz/strix/extensions"
	"firestige.xyz/strix/internal/config"
	"firestige.xyz/strix/internal/iface"
	"firestige.xyz/strix/internal/log"
	"firestige.xyz/strix/internal/manager"
	"firestige.xyz/strix/internal/metrics"
	"firestige.xyz/strix/pkg/extension"
)

var (
	runInterface string
	runTimeout   time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Capture frames and drive the loaded extensions",
	Long: `
Run the capture and transmit loops against the configured interface until a
SIGINT/SIGTERM arrives or the capture source ends.

Examples:
  strix run                                 # Run with ./strix.yaml
  strix run -c strix.yaml -i wlan1          # Override the interface
  strix run -c strix.yaml -t 10s            # Allow 10s for shutdown
`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runManager(); err != nil {
			exitWithError("run failed", err)
		}
	},
}

func init() {
	runCmd.Flags().StringVarP(&runInterface, "interface", "i", "",
		"monitor-mode interface (overrides config)")
	runCmd.Flags().DurationVarP(&runTimeout, "timeout", "t", 0,
		"shutdown timeout (overrides config)")
}

func runManager() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if runInterface != "" {
		cfg.Interface = runInterface
	}
	if runTimeout > 0 {
		cfg.ShutdownTimeout = runTimeout.String()
	}
	// The replay handle reads from a file; the interface name only labels
	// logs and metrics there.
	if cfg.Interface == "" && cfg.Capture.Handle == "replay" {
		cfg.Interface = "replay"
	}

	log.Init(&cfg.Log)
	logger := log.GetLogger()

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	mgr := manager.New(manager.Config{
		HandleKind: cfg.Capture.Handle,
		HandleOpts: iface.Options{
			SnapLen:      cfg.Capture.SnapLen,
			PollTimeout:  cfg.PollTimeoutDuration(),
			Promiscuous:  cfg.Capture.Promiscuous,
			RFMon:        cfg.Capture.RFMon,
			BPFFilter:    cfg.Capture.BPFFilter,
			ReplayInput:  cfg.Capture.Replay.Input,
			ReplayOutput: cfg.Capture.Replay.Output,
		},
		PollInterval: cfg.PollTimeoutDuration(),
	})
	mgr.SetInterface(cfg.Interface)

	if len(cfg.Extensions.Enabled) == 0 {
		logger.Warn("no extensions enabled, frames will only be counted")
	}
	data := extension.SharedData{
		Interface:     cfg.Interface,
		TargetBSSID:   cfg.Target.BSSID,
		TargetSSID:    cfg.Target.SSID,
		TargetChannel: cfg.Target.Channel,
		RogueAPMAC:    cfg.Target.RogueAPMAC,
		Settings:      cfg.Extensions.Settings,
	}
	if err := mgr.LoadExtensions(cfg.Extensions.Enabled, data); err != nil {
		return err
	}

	if err := mgr.Start(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	flush := time.NewTicker(cfg.FlushIntervalDuration())
	defer flush.Stop()

	running := true
	for running {
		select {
		case sig := <-sigChan:
			logger.WithField("signal", sig.String()).Info("received shutdown signal")
			running = false

		case <-mgr.Done():
			// Capture ended on its own: replay input exhausted or the
			// interface failed.
			running = false

		case <-flush.C:
			printOutput(mgr.CollectOutput())
		}
	}

	mgr.RequestStop()
	if err := mgr.Join(cfg.ShutdownTimeoutDuration()); err != nil {
		logger.WithError(err).Warn("shutdown incomplete")
	}
	printOutput(mgr.CollectOutput())

	stats := mgr.Stats()
	logger.WithFields(map[string]interface{}{
		"captured":      stats.FramesCaptured,
		"produced":      stats.FramesProduced,
		"sent":          stats.FramesSent,
		"send_errors":   stats.SendErrors,
		"ingest_errors": stats.IngestErrors,
	}).Info("run finished")

	if metricsServer != nil {
		if err := metricsServer.Stop(context.Background()); err != nil {
			logger.WithError(err).Warn("metrics server shutdown failed")
		}
	}

	if err := mgr.Err(); err != nil {
		return fmt.Errorf("capture failed: %w", err)
	}
	return nil
}

func printOutput(lines []string) {
	for _, line := range lines {
		fmt.Println(line)
	}
}
