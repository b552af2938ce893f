// Package commands implements the seaward server CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "seaward",
	Short: "Seaward token registry server",
	Long: `Seaward is a service-token registry: it stores named, versioned
service descriptions over a shared key-value store, maintains an
owner index for enumeration and quota enforcement, and keeps sibling
replicas cache-coherent through refresh notifications.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file path (default: $XDG_CONFIG_HOME/seaward/config.yaml)")
}
