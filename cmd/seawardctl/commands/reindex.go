package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the owner index from the token records",
	Long: `Reindex walks every token record and rebuilds the owner directory
and its shards. Readers never observe a partial index: new shards are
written under fresh keys and the directory is switched in one write.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, err := client().Reindex()
		if err != nil {
			return err
		}
		fmt.Printf("Reindexed %d token(s)\n", count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}
