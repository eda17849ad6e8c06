// Command satctl is an interactive console for a running satellited
// daemon. It speaks the daemon's HTTP control surface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/satcom-control/satcom-go/internal/version"
)

var flagAddr string

var rootCmd = &cobra.Command{
	Use:     "satctl",
	Short:   "Interactive console for satellited",
	Version: version.Version,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true
		return runConsole(flagAddr)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&flagAddr, "addr", "a", "http://127.0.0.1:8475", "satellited HTTP address")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "satctl: %v\n", err)
		os.Exit(1)
	}
}
