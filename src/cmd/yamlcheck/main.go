// Package main provides yamlcheck, which normalizes YAML files with a
// registered rule set and validates them against the rule set's model.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/canonical/rocks-toolbox/src/logger"
	"github.com/canonical/rocks-toolbox/src/mcp"
	"github.com/canonical/rocks-toolbox/src/rules"
)

// version is set at build time.
var version = "dev"

var (
	verbose    bool
	write      bool
	configName string
)

var errFilesFailed = errors.New("some files could not be normalized")

// rootCmd normalizes the given files.
var rootCmd = &cobra.Command{
	Use:   "yamlcheck [files...]",
	Short: "Normalize and validate YAML files",
	Long: `yamlcheck applies the path rules of a configuration to each YAML file,
validates the result against the configuration's model and prints it, or
writes it back with --write. Comments and the order of untouched keys are
preserved.

Run "yamlcheck configs" to list the available configurations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(cmd)
		set, err := rules.DefaultRegistry().New(configName, log)
		if err != nil {
			return err
		}
		return checkFiles(set, args, write, cmd.OutOrStdout(), log)
	},
}

// configsCmd lists the registered configurations.
var configsCmd = &cobra.Command{
	Use:   "configs",
	Short: "List the available configurations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listConfigs(rules.DefaultRegistry(), cmd.OutOrStdout(), newLogger(cmd))
	},
}

// schemaCmd prints the JSON Schema of a configuration's model.
var schemaCmd = &cobra.Command{
	Use:   "schema [config]",
	Short: "Print the JSON Schema documents are validated against",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := configName
		if len(args) > 0 {
			name = args[0]
		}
		set, err := rules.DefaultRegistry().New(name, newLogger(cmd))
		if err != nil {
			return err
		}
		schema, err := rules.Schema(set)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(schema))
		return nil
	},
}

// mcpCmd serves the configurations as MCP tools.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the configurations as Model Context Protocol tools over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcp.NewServer(rules.DefaultRegistry(), version, newLogger(cmd)).Run()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configName, "config", rules.DefaultConfig, "Configuration to apply")
	rootCmd.Flags().BoolVarP(&write, "write", "w", false, "Write the normalized YAML back to the files")

	rootCmd.AddCommand(configsCmd, schemaCmd, mcpCmd)
}

// newLogger logs to stderr so stdout only carries documents.
func newLogger(cmd *cobra.Command) logger.Logger {
	log := logger.NewConsoleLoggerTo(cmd.ErrOrStderr(), cmd.ErrOrStderr())
	log.SetVerbose(verbose)
	return log
}

// checkFiles normalizes each file. A file that fails is reported and left
// untouched; the others are still processed.
func checkFiles(set *rules.RuleSet, files []string, write bool, out io.Writer, log logger.Logger) error {
	failed := 0
	for _, path := range files {
		if err := checkFile(set, path, write, out, log); err != nil {
			log.Error("%s: %v", path, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errFilesFailed, failed, len(files))
	}
	return nil
}

func checkFile(set *rules.RuleSet, path string, write bool, out io.Writer, log logger.Logger) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	log.Debug("Applying %s to %s", set.Name, path)
	output, err := rules.Normalize(set, data, log)
	if err != nil {
		return err
	}

	if write {
		if err := os.WriteFile(path, output, info.Mode().Perm()); err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
		log.Debug("Wrote %s", path)
		return nil
	}
	_, err = out.Write(output)
	return err
}

// listConfigs prints the registered configurations with their rules as JSON.
func listConfigs(registry *rules.Registry, out io.Writer, log logger.Logger) error {
	var configs []mcp.ConfigInfo
	for _, name := range registry.Names() {
		set, err := registry.New(name, log)
		if err != nil {
			return err
		}
		configs = append(configs, mcp.ConfigInfo{Name: name, Description: set.Description, Rules: set.Rules})
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(configs)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
