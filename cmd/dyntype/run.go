package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/dyntype/emit"
	"github.com/wippyai/dyntype/loading"
)

var runFields bool

var runCmd = &cobra.Command{
	Use:   "run <definition.yaml> <method> [args...]",
	Short: "Build a type, load it into a fresh namespace and call a method",
	Long: `Builds the type described by the definition, loads it into a new namespace
and calls the method. Definitions without a resolution use the active
strategy. Methods are named as printed by inspect; overloads as name(params).`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runFields, "fields", false, "Print field values after the call")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	f, err := factory()
	if err != nil {
		return err
	}
	def, err := loadDefinition(args[0])
	if err != nil {
		return err
	}
	if def.Resolution == "" {
		def.Resolution = "active"
	}
	b, err := def.builder(f)
	if err != nil {
		return err
	}
	dt, err := b.Make()
	if err != nil {
		return err
	}

	ns, err := f.Namespace(ctx, loading.WithName("run"))
	if err != nil {
		return err
	}
	defer ns.Close(ctx)

	loaded, err := dt.Load(ctx, ns, nil)
	if err != nil {
		return err
	}

	method, ok := dt.Metadata().Method(args[1])
	if !ok {
		return fmt.Errorf("type %s has no method %s", dt.Name(), args[1])
	}
	callArgs, err := convertArgs(method, args[2:])
	if err != nil {
		return err
	}
	result, err := loaded.Call(ctx, args[1], callArgs...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if method.Return != "void" {
		fmt.Fprintf(out, "%v\n", result)
	}
	if runFields {
		for _, field := range dt.Metadata().Fields {
			v, err := loaded.Global(ctx, field.Name)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s = %v\n", field.Name, v)
		}
	}
	return nil
}

func convertArgs(m emit.Method, raw []string) ([]any, error) {
	if len(raw) != len(m.Parameters) {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", m.Name, len(m.Parameters), len(raw))
	}
	out := make([]any, len(raw))
	for i, r := range raw {
		v, err := convertArg(r, m.Parameters[i].Type)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
