package cli

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/edalab/lamina/pkg/geometry"
	"github.com/edalab/lamina/pkg/layout"
)

func pickerCell(t *testing.T) *layout.Cell {
	t.Helper()
	cell := layout.NewCell("board")
	for _, n := range []string{"GND", "NET1", "NET2"} {
		if _, err := cell.AddNet(n); err != nil {
			t.Fatal(err)
		}
	}
	poly := geometry.Polygon{
		geometry.Pt(0, 0), geometry.Pt(1, 0), geometry.Pt(1, 1), geometry.Pt(0, 1),
	}
	if _, err := cell.AddPrimitive("NET1", "TOP", poly); err != nil {
		t.Fatal(err)
	}
	return cell
}

func keyMsg(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNetListModelToggleAndConfirm(t *testing.T) {
	m := NewNetListModel(pickerCell(t), nil)
	if len(m.Nets) != 3 {
		t.Fatalf("net count = %d, want 3", len(m.Nets))
	}

	// Move to NET1 and toggle it.
	next, _ := m.Update(keyMsg("j"))
	m = next.(NetListModel)
	next, _ = m.Update(keyMsg(" "))
	m = next.(NetListModel)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(NetListModel)
	if !m.Confirmed {
		t.Fatal("enter did not confirm")
	}

	got := m.Selected()
	if len(got) != 1 || got[0] != "NET1" {
		t.Errorf("Selected = %v, want [NET1]", got)
	}
}

func TestNetListModelPreselection(t *testing.T) {
	m := NewNetListModel(pickerCell(t), []string{"NET2"})
	got := m.Selected()
	if len(got) != 1 || got[0] != "NET2" {
		t.Errorf("preselected = %v, want [NET2]", got)
	}
}

func TestNetListModelQuitWithoutConfirm(t *testing.T) {
	m := NewNetListModel(pickerCell(t), nil)
	next, cmd := m.Update(keyMsg("q"))
	m = next.(NetListModel)
	if m.Confirmed {
		t.Error("quit should not confirm")
	}
	if cmd == nil {
		t.Error("quit should produce a tea.Quit command")
	}
}

func TestNetListModelCursorBounds(t *testing.T) {
	m := NewNetListModel(pickerCell(t), nil)

	next, _ := m.Update(keyMsg("k"))
	m = next.(NetListModel)
	if m.Cursor != 0 {
		t.Errorf("cursor moved above first entry: %d", m.Cursor)
	}

	for i := 0; i < 10; i++ {
		next, _ = m.Update(keyMsg("j"))
		m = next.(NetListModel)
	}
	if m.Cursor != len(m.Nets)-1 {
		t.Errorf("cursor = %d, want %d", m.Cursor, len(m.Nets)-1)
	}
}
