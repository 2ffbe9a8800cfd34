// Command dyntype builds, inspects and runs dynamic types described in YAML.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wippyai/dyntype"
	"github.com/wippyai/dyntype/config"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "dyntype",
	Short:         "Build and inspect runtime-generated WebAssembly types",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "dyntype.yaml", "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(runCmd)
}

// factory loads the configuration and builds a factory from it.
func factory() (*dyntype.Factory, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return dyntype.New(cfg)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
