// Package main provides lpci-build, which builds a rock on Launchpad for
// every platform listed in rockcraft.yaml and downloads the results.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/canonical/rocks-toolbox/src/config"
)

// version is set at build time.
var version = "dev"

// rootCmd runs a remote build of the project in the given directory.
var rootCmd = &cobra.Command{
	Use:   "lpci-build [project-dir]",
	Short: "Build a rock remotely with Launchpad CI",
	Long: `lpci-build uploads the rock project in project-dir (default: the current
directory) to a temporary Launchpad git repository, lets Launchpad CI build it
for every platform in rockcraft.yaml and downloads the resulting rocks.

The uploaded project is public. The repository is deleted when the run ends,
unless a build failed or timed out.

Every flag can also be set through an LPCI_BUILD_* environment variable,
e.g. LPCI_BUILD_LP_CREDENTIALS_B64.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
	RunE:          runBuild,
}

// historyCmd shows recorded runs.
var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded build runs",
	Long: `Lists the most recent runs recorded in the run store, or the builds of one run.

Requires --store-dsn (or LPCI_BUILD_STORE_DSN) pointing at the Postgres
database the runs were recorded in.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runHistory,
}

func init() {
	config.RegisterFlags(rootCmd.Flags())

	historyCmd.Flags().String(config.KeyStoreDSN, "", "Postgres DSN of the run store")
	historyCmd.Flags().Int("limit", 20, "Number of runs to list")
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
