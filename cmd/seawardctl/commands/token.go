package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/seaward-io/seaward/pkg/apiclient"
	"github.com/seaward-io/seaward/pkg/token"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage tokens",
}

var (
	listOwners         []string
	listIncludeDeleted bool
	listCanManageAs    string
	listFilters        []string

	showDeleted  bool
	showOutput   string
	applyFile    string
	applyIfMatch string
	applyAdmin   bool
	deleteHard   bool
	deleteMatch  string
)

var tokenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		filters := make(map[string][]string)
		for _, f := range listFilters {
			name, value, ok := splitFilter(f)
			if !ok {
				return fmt.Errorf("invalid filter %q (expected name=value)", f)
			}
			filters[name] = append(filters[name], value)
		}

		entries, err := client().ListTokens(apiclient.ListOptions{
			Owners:          listOwners,
			IncludeDeleted:  listIncludeDeleted,
			IncludeMetadata: true,
			CanManageAs:     listCanManageAs,
			Filters:         filters,
		})
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Token", "Owner", "Deleted", "Last Update", "ETag"})
		table.SetBorder(false)
		for _, e := range entries {
			deleted := ""
			if d, _ := e["deleted"].(bool); d {
				deleted = "yes"
			}
			table.Append([]string{
				str(e["token"]),
				str(e["owner"]),
				deleted,
				str(e["last-update-time"]),
				str(e["etag"]),
			})
		}
		table.Render()
		fmt.Printf("\n%d token(s)\n", len(entries))
		return nil
	},
}

var tokenShowCmd = &cobra.Command{
	Use:   "show <token>",
	Short: "Show a token's service description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := client().GetToken(args[0], true, showDeleted)
		if err != nil {
			return err
		}

		switch showOutput {
		case "json":
			out, err := json.MarshalIndent(res.Record, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
		case "yaml":
			out, err := yaml.Marshal(map[string]any(res.Record))
			if err != nil {
				return err
			}
			fmt.Print(string(out))
		default:
			return fmt.Errorf("invalid output format %q (json, yaml)", showOutput)
		}
		fmt.Fprintf(os.Stderr, "ETag: %s\n", res.Hash)
		return nil
	},
}

var tokenApplyCmd = &cobra.Command{
	Use:   "apply <token>",
	Short: "Create or update a token from a JSON or YAML file",
	Long: `Apply reads a service description from a file (or stdin with -f -)
and posts it to the registry. Pass --if-match with the token's current
ETag to fail instead of overwriting a concurrent change; --if-match=auto
fetches the current ETag first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := readDescription(applyFile)
		if err != nil {
			return err
		}

		c := client()
		ifMatch := applyIfMatch
		if ifMatch == "auto" {
			current, err := c.GetToken(args[0], false, true)
			switch {
			case err == nil:
				ifMatch = current.Hash
			case apiclient.IsNotFound(err):
				ifMatch = ""
			default:
				return err
			}
		}

		res, err := c.UpdateToken(args[0], body, ifMatch, applyAdmin)
		if err != nil {
			return err
		}
		fmt.Println(res.Message)
		fmt.Printf("ETag: %s\n", res.Hash)
		return nil
	},
}

var tokenDeleteCmd = &cobra.Command{
	Use:   "delete <token>",
	Short: "Delete a token (soft by default)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := client().DeleteToken(args[0], deleteMatch, deleteHard)
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	},
}

func init() {
	tokenListCmd.Flags().StringSliceVarP(&listOwners, "owner", "o", nil, "restrict to owner (repeatable)")
	tokenListCmd.Flags().BoolVar(&listIncludeDeleted, "deleted", false, "include soft-deleted tokens")
	tokenListCmd.Flags().StringVar(&listCanManageAs, "can-manage-as", "", "only tokens this user could manage")
	tokenListCmd.Flags().StringSliceVar(&listFilters, "filter", nil, "parameter filter name=value (repeatable)")

	tokenShowCmd.Flags().BoolVar(&showDeleted, "deleted", false, "show the token even if soft-deleted")
	tokenShowCmd.Flags().StringVar(&showOutput, "output", "json", "output format: json or yaml")

	tokenApplyCmd.Flags().StringVarP(&applyFile, "file", "f", "", "service description file (JSON or YAML, - for stdin)")
	tokenApplyCmd.Flags().StringVar(&applyIfMatch, "if-match", "", "expected version hash (ETag), or auto")
	tokenApplyCmd.Flags().BoolVar(&applyAdmin, "admin", false, "use the administrative update mode")
	_ = tokenApplyCmd.MarkFlagRequired("file")

	tokenDeleteCmd.Flags().BoolVar(&deleteHard, "hard", false, "hard delete (administrators only)")
	tokenDeleteCmd.Flags().StringVar(&deleteMatch, "if-match", "", "expected version hash (ETag)")

	tokenCmd.AddCommand(tokenListCmd, tokenShowCmd, tokenApplyCmd, tokenDeleteCmd)
	rootCmd.AddCommand(tokenCmd)
}

// readDescription loads a service description from path, accepting JSON
// or YAML. "-" reads stdin.
func readDescription(path string) (token.Record, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var body token.Record
	if jsonErr := json.Unmarshal(data, &body); jsonErr != nil {
		if yamlErr := yaml.Unmarshal(data, &body); yamlErr != nil {
			return nil, fmt.Errorf("file is neither valid JSON (%v) nor YAML (%v)", jsonErr, yamlErr)
		}
	}
	return body, nil
}

func splitFilter(f string) (name, value string, ok bool) {
	for i := 0; i < len(f); i++ {
		if f[i] == '=' {
			return f[:i], f[i+1:], i > 0
		}
	}
	return "", "", false
}

func str(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
