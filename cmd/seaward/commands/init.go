package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seaward-io/seaward/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented sample configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		if err := config.WriteSample(path, initForce); err != nil {
			return err
		}
		fmt.Printf("Wrote sample configuration to %s\n", path)
		fmt.Println("Edit it, then run: seaward start")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
