// adbmon watches a running BLE-ADB bridge over its USB serial console:
// it follows the firmware's [STATUS] diagnostic lines and renders slot
// states and counter rates.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "adbmon",
	Short: "Diagnostic monitor for the BLE-ADB bridge",
	Long: `adbmon talks to the bridge firmware's serial diagnostic console.

The firmware periodically prints one-line [STATUS] dumps (connection state
per slot, poll/response counters, queue depths). adbmon follows them and
renders connection state and counter deltas, or just tails the raw log.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("device", "d", "", "Serial device path (e.g. /dev/ttyACM0)")
	rootCmd.PersistentFlags().IntP("baud", "b", 0, "Baud rate (USB CDC ignores this)")
	rootCmd.PersistentFlags().StringP("config", "c", "", "TOML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(tailCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
