// Package commands implements the seawardctl management CLI. Every
// command talks to a running seaward server over its REST API.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seaward-io/seaward/pkg/apiclient"
)

var (
	serverURL string
	asUser    string
	bearer    string
)

var rootCmd = &cobra.Command{
	Use:   "seawardctl",
	Short: "Manage a Seaward token registry",
	Long: `seawardctl manages tokens in a running Seaward registry over its
REST API: list, show, apply, and delete tokens, inspect the owner
directory, and trigger an index rebuild.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:9091",
		"seaward server base URL (env: SEAWARD_SERVER)")
	rootCmd.PersistentFlags().StringVarP(&asUser, "user", "u", "",
		"identity for header auth mode (env: SEAWARD_USER)")
	rootCmd.PersistentFlags().StringVar(&bearer, "bearer", "",
		"JWT bearer token for jwt auth mode (env: SEAWARD_BEARER)")
}

// client builds the API client from flags and environment.
func client() *apiclient.Client {
	url := serverURL
	if env := os.Getenv("SEAWARD_SERVER"); env != "" && !rootCmd.PersistentFlags().Changed("server") {
		url = env
	}
	c := apiclient.New(url)

	user := asUser
	if user == "" {
		user = os.Getenv("SEAWARD_USER")
	}
	if user == "" {
		user = os.Getenv("USER")
	}
	if user != "" {
		c.SetUser(user)
	}

	tok := bearer
	if tok == "" {
		tok = os.Getenv("SEAWARD_BEARER")
	}
	if tok != "" {
		c.SetBearer(tok)
	}
	return c
}
