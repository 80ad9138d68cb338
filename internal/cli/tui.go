package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/edalab/lamina/pkg/layout"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// NetListModel - Interactive net selection
// =============================================================================

// netEntry is one selectable net with its primitive count for context.
type netEntry struct {
	Name       string
	Primitives int
	Checked    bool
}

// NetListModel is the bubbletea model for multi-selecting signal nets.
type NetListModel struct {
	Nets      []netEntry
	Cursor    int
	Height    int
	Offset    int
	Confirmed bool
}

// NewNetListModel creates a net list model from the cell's nets, with the
// given names pre-checked.
func NewNetListModel(cell *layout.Cell, preselected []string) NetListModel {
	pre := map[string]bool{}
	for _, n := range preselected {
		pre[n] = true
	}
	var nets []netEntry
	for _, name := range cell.NetNames() {
		nets = append(nets, netEntry{
			Name:       name,
			Primitives: len(cell.PrimitivesOnNets([]string{name})),
			Checked:    pre[name],
		})
	}
	return NetListModel{Nets: nets, Height: 15}
}

// Selected returns the checked net names in display order.
func (m NetListModel) Selected() []string {
	var out []string
	for _, n := range m.Nets {
		if n.Checked {
			out = append(out, n.Name)
		}
	}
	return out
}

func (m NetListModel) Init() tea.Cmd {
	return nil
}

func (m NetListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Nets)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case " ":
			if len(m.Nets) > 0 {
				m.Nets[m.Cursor].Checked = !m.Nets[m.Cursor].Checked
			}
		case "enter":
			m.Confirmed = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m NetListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Signal Nets"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  space toggle  ⏎ confirm  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Nets) {
		end = len(m.Nets)
	}

	for i := m.Offset; i < end; i++ {
		n := m.Nets[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		check := "[ ]"
		if n.Checked {
			check = "[x]"
		}

		style := listNormalStyle
		if i == m.Cursor {
			style = listSelectedStyle
		}
		line := fmt.Sprintf("%s%s %s", cursor, check, n.Name)
		b.WriteString(style.Render(line))
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  (%d primitives)", n.Primitives)))
		b.WriteString("\n")
	}

	if len(m.Nets) == 0 {
		b.WriteString(listDimStyle.Render("  no nets in cell"))
		b.WriteString("\n")
	}
	return b.String()
}

// pickNets runs the interactive net picker and returns the chosen names.
// An aborted picker (q or esc) returns an empty selection.
func pickNets(cell *layout.Cell, preselected []string) ([]string, error) {
	model := NewNetListModel(cell, preselected)
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return nil, fmt.Errorf("net picker: %w", err)
	}
	m, ok := final.(NetListModel)
	if !ok || !m.Confirmed {
		return nil, nil
	}
	return m.Selected(), nil
}
