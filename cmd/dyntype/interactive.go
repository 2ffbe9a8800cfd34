package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/dyntype/description"
	"github.com/wippyai/dyntype/dynamic"
	"github.com/wippyai/dyntype/emit"
	"github.com/wippyai/dyntype/loading"
)

type memberKind int

const (
	memberField memberKind = iota
	memberMethod
)

type memberInfo struct {
	kind   memberKind
	field  emit.Field
	method emit.Method
}

func (mi memberInfo) callable() bool {
	return mi.kind == memberField || mi.method.Export != ""
}

// target is how a member is addressed through dynamic.Loaded.
func (mi memberInfo) target() string {
	if mi.kind == memberField {
		return mi.field.Name
	}
	return mi.method.Export
}

func (mi memberInfo) format(render renderFunc) string {
	if mi.kind == memberField {
		return formatField(mi.field, render)
	}
	return formatMethod(mi.method, render)
}

type modelState int

const (
	stateSelect modelState = iota
	stateInputArgs
	stateShowResult
)

type interactiveModel struct {
	err      error
	src      *source
	ns       *loading.Namespace
	loaded   *dynamic.Loaded
	result   string
	members  []memberInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type loadedMsg struct {
	err    error
	ns     *loading.Namespace
	loaded *dynamic.Loaded
}

type callResultMsg struct {
	err    error
	result string
}

func newInteractiveModel(src *source) *interactiveModel {
	m := &interactiveModel{src: src, state: stateSelect}
	for _, f := range src.metadata.Fields {
		m.members = append(m.members, memberInfo{kind: memberField, field: f})
	}
	for _, meth := range src.metadata.Methods {
		m.members = append(m.members, memberInfo{kind: memberMethod, method: meth})
	}
	return m
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.load
}

func (m *interactiveModel) load() tea.Msg {
	ctx := context.Background()
	ns, err := loading.New(ctx, loading.WithName("inspect"))
	if err != nil {
		return loadedMsg{err: err}
	}
	loaded, err := dynamic.Define(ctx, ns, m.src.locator, m.src.name, nil)
	if err != nil {
		ns.Close(ctx)
		return loadedMsg{err: err}
	}
	return loadedMsg{ns: ns, loaded: loaded}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state == stateInputArgs && msg.String() == "q" {
				break
			}
			if m.ns != nil {
				m.ns.Close(context.Background())
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelect && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelect && m.selected < len(m.members)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelect:
				if len(m.members) == 0 || !m.members[m.selected].callable() || m.loaded == nil {
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.call
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.call

			case stateShowResult:
				m.state = stateSelect
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelect
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelect
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.ns = msg.ns
		m.loaded = msg.loaded

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	m.inputs = nil
	mi := m.members[m.selected]
	if mi.kind == memberField {
		return
	}
	m.inputs = make([]textinput.Model, len(mi.method.Parameters))
	for i, p := range mi.method.Parameters {
		ti := textinput.New()
		ti.Placeholder = p.Type
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		ti.Prompt = name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) call() tea.Msg {
	ctx := context.Background()
	mi := m.members[m.selected]

	if mi.kind == memberField {
		v, err := m.loaded.Global(ctx, mi.target())
		if err != nil {
			return callResultMsg{err: err}
		}
		return callResultMsg{result: fmt.Sprintf("%v", v)}
	}

	args := make([]any, len(m.inputs))
	for i, input := range m.inputs {
		arg, err := convertArg(input.Value(), mi.method.Parameters[i].Type)
		if err != nil {
			return callResultMsg{err: err}
		}
		args[i] = arg
	}
	result, err := m.loaded.Call(ctx, mi.target(), args...)
	if err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: fmt.Sprintf("%v", result)}
}

// convertArg parses command-line text as a value of the named type.
// Reference parameters accept only an empty value or "null".
func convertArg(value, typ string) (any, error) {
	value = strings.TrimSpace(value)
	p, err := description.ParsePrimitive(typ)
	if err != nil {
		if value == "" || value == "null" {
			return nil, nil
		}
		return nil, fmt.Errorf("reference parameter of type %s cannot be given on the command line", typ)
	}
	switch p {
	case description.Bool:
		return strconv.ParseBool(value)
	case description.F32, description.F64:
		return strconv.ParseFloat(value, 64)
	case description.U8, description.U16, description.U32, description.U64:
		return strconv.ParseUint(value, 10, 64)
	case description.Char:
		r := []rune(value)
		if len(r) != 1 {
			return nil, fmt.Errorf("char parameter needs exactly one character, got %q", value)
		}
		return r[0], nil
	}
	return strconv.ParseInt(value, 10, 64)
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("dyntype"))
	b.WriteString(" ")
	b.WriteString(m.src.name)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelect:
		if len(m.members) == 0 {
			b.WriteString("Type declares no members.\n")
		}
		for i, mi := range m.members {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + mi.format(plain)))
			} else {
				b.WriteString("  " + mi.format(styled))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call or read • q quit"))

	case stateInputArgs:
		mi := m.members[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", memberStyle.Render(mi.target())))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(mi.method.Parameters[i].Type))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		mi := m.members[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", memberStyle.Render(mi.target())))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}
	return b.String()
}

func runInteractive(src *source) error {
	p := tea.NewProgram(newInteractiveModel(src), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
