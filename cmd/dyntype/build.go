package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var (
	buildOut     string
	buildArchive bool
)

var buildCmd = &cobra.Command{
	Use:   "build <definition.yaml>",
	Short: "Build a type from a YAML definition and write it out",
	Args:  cobra.ExactArgs(1),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "", "Output directory (default: persist.dir from config)")
	buildCmd.Flags().BoolVar(&buildArchive, "archive", false, "Write a tar.gz bundle instead of .wasm files")
}

func runBuild(cmd *cobra.Command, args []string) error {
	f, err := factory()
	if err != nil {
		return err
	}
	def, err := loadDefinition(args[0])
	if err != nil {
		return err
	}
	b, err := def.builder(f)
	if err != nil {
		return err
	}
	dt, err := b.Make()
	if err != nil {
		return err
	}

	cfg := f.Config()
	if buildOut != "" {
		cfg.Persist.Dir = buildOut
	}
	if buildArchive {
		cfg.Persist.Archive = true
	}
	paths, err := f.Persist(dt)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)
	out := cmd.OutOrStdout()
	for _, name := range names {
		fmt.Fprintf(out, "%s -> %s\n", name, paths[name])
	}
	return nil
}
