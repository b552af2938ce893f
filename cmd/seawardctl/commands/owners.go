package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var ownersCmd = &cobra.Command{
	Use:   "owners",
	Short: "Show the owner directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := client().ListOwners()
		if err != nil {
			return err
		}

		owners := make([]string, 0, len(dir))
		for owner := range dir {
			owners = append(owners, owner)
		}
		sort.Strings(owners)

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Owner", "Shard Key"})
		table.SetBorder(false)
		for _, owner := range owners {
			table.Append([]string{owner, dir[owner]})
		}
		table.Render()
		fmt.Printf("\n%d owner(s)\n", len(owners))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ownersCmd)
}
