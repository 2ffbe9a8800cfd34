package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/dyntype/dynamic"
	"github.com/wippyai/dyntype/emit"
)

var (
	inspectInteractive bool
	inspectPath        string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.wasm|bundle.tar.gz>",
	Short: "Print the descriptor stored in a built type",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().BoolVarP(&inspectInteractive, "interactive", "i", false, "Browse and call members in a TUI")
	inspectCmd.Flags().StringVarP(&inspectPath, "path", "p", "", "Directory holding auxiliary types (default: persist.dir from config)")
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	memberStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	modStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// source is a type read from disk together with a locator for its
// auxiliary types.
type source struct {
	name     string
	metadata *emit.Metadata
	locator  dynamic.Locator
}

func openSource(path, auxDir string) (*source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if strings.HasSuffix(path, ".tar.gz") || strings.HasSuffix(path, ".tgz") {
		bundle, err := dynamic.ReadArchive(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		md, err := bundle.Metadata(bundle.Main())
		if err != nil {
			return nil, err
		}
		return &source{name: bundle.Main(), metadata: md, locator: bundle}, nil
	}

	md, err := emit.ReadMetadata(data)
	if err != nil {
		return nil, err
	}
	if auxDir == "" {
		auxDir = filepath.Dir(path)
	}
	self := dynamic.LocatorFunc(func(name string) (dynamic.Resolution, error) {
		if name != md.Name {
			return dynamic.Illegal(name), nil
		}
		return dynamic.Resolution{Name: name, Resolved: true, Bytes: data}, nil
	})
	return &source{name: md.Name, metadata: md, locator: dynamic.Compound(self, dynamic.ForDir(auxDir))}, nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	dir := inspectPath
	if dir == "" {
		f, err := factory()
		if err != nil {
			return err
		}
		dir = f.Config().Persist.Dir
	}
	src, err := openSource(args[0], dir)
	if err != nil {
		return err
	}

	if inspectInteractive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("interactive mode needs a terminal")
		}
		return runInteractive(src)
	}

	isTTY := false
	if f, ok := cmd.OutOrStdout().(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	printMetadata(cmd.OutOrStdout(), src.metadata, isTTY)
	return nil
}

func printMetadata(w io.Writer, md *emit.Metadata, isTTY bool) {
	render := plain
	if isTTY {
		render = styled
	}

	fmt.Fprintf(w, "%s %s\n", render(titleStyle, md.Name), render(modStyle, strings.Join(md.Modifiers, " ")))
	if md.Supertype != "" {
		fmt.Fprintf(w, "  extends %s\n", render(typeStyle, md.Supertype))
	}
	if len(md.Interfaces) > 0 {
		fmt.Fprintf(w, "  implements %s\n", render(typeStyle, strings.Join(md.Interfaces, ", ")))
	}
	for _, v := range md.TypeVariables {
		fmt.Fprintf(w, "  type variable %s %s\n", v.Symbol, render(typeStyle, strings.Join(v.Bounds, " & ")))
	}
	for _, a := range md.Annotations {
		fmt.Fprintf(w, "  @%s%s\n", a.Type, formatValues(a.Values))
	}
	if md.Initializer {
		fmt.Fprintln(w, "  has start function")
	}
	if len(md.Auxiliary) > 0 {
		fmt.Fprintf(w, "  requires %s\n", strings.Join(md.Auxiliary, ", "))
	}

	if len(md.Fields) > 0 {
		fmt.Fprintf(w, "\n%s\n", render(headerStyle, "Fields"))
		for _, f := range md.Fields {
			fmt.Fprintf(w, "  %s\n", formatField(f, render))
		}
	}
	if len(md.Methods) > 0 {
		fmt.Fprintf(w, "\n%s\n", render(headerStyle, "Methods"))
		for _, m := range md.Methods {
			fmt.Fprintf(w, "  %s\n", formatMethod(m, render))
		}
	}
}

type renderFunc func(lipgloss.Style, string) string

func plain(_ lipgloss.Style, v string) string { return v }

func styled(s lipgloss.Style, v string) string { return s.Render(v) }

func formatField(f emit.Field, render renderFunc) string {
	s := render(memberStyle, f.Name) + ": " + render(typeStyle, f.Type)
	if len(f.Modifiers) > 0 {
		s += " " + render(modStyle, strings.Join(f.Modifiers, " "))
	}
	if f.Default != nil {
		s += fmt.Sprintf(" = %v", f.Default)
	}
	return s
}

func formatMethod(m emit.Method, render renderFunc) string {
	params := make([]string, len(m.Parameters))
	for i, p := range m.Parameters {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		params[i] = name + ": " + render(typeStyle, p.Type)
	}
	s := render(memberStyle, m.Name) + "(" + strings.Join(params, ", ") + ") " + render(typeStyle, m.Return)
	if len(m.Modifiers) > 0 {
		s += " " + render(modStyle, strings.Join(m.Modifiers, " "))
	}
	s += " [" + m.Handler + "]"
	if m.Default != nil {
		s += fmt.Sprintf(" default %v", m.Default)
	}
	if m.Export != "" && m.Export != m.Name {
		s += " as " + m.Export
	}
	return s
}

func formatValues(values map[string]any) string {
	if len(values) == 0 {
		return ""
	}
	parts := make([]string, 0, len(values))
	for k, v := range values {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(parts)
	return "(" + strings.Join(parts, ", ") + ")"
}
