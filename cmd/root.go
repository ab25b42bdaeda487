// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "strix",
	Short: "Strix - Wireless extension manager for 802.11 frame capture and injection",
	Long: `Strix drives a set of extensions against a monitor-mode wireless interface.
Each captured 802.11 frame is handed to every loaded extension in order; frames
the extensions return are queued and transmitted by a dedicated sender loop.

Features:
  - One capture loop, one transmit loop, bounded graceful shutdown
  - Extension plugins: probe-request recon, beacon broadcasting
  - Live capture via libpcap or offline replay from pcap files
  - Prometheus metrics endpoint (optional)`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "strix.yaml",
		"config file path")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(extensionsCmd)
	rootCmd.AddCommand(validateCmd)
}

// exitWithError prints error message and exits with code 1
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
