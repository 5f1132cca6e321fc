package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestTabAtXMatchesTabWidths(t *testing.T) {
	for active := 0; active < 5; active++ {
		a := App{activeTab: active}
		pos := 0

		for i := 0; i < 5; i++ {
			w := tabWidthForTest(i, active)
			x := pos + w/2 // midpoint inside this tab
			if got := a.tabAtX(x); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, x, got, i)
			}
			pos += w + 1 // separator
		}
		if got := a.tabAtX(pos + 5); got != -1 {
			t.Fatalf("active=%d x past last tab -> %d, want -1", active, got)
		}
	}
}

func TestMouseClickSwitchesTab(t *testing.T) {
	a := App{loaded: true}
	x := tabWidthForTest(0, 0) + 1 + 2 // inside "Runway"

	m, _ := a.Update(tea.MouseMsg{X: x, Y: 0, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	if got := m.(App).activeTab; got != tabRunway {
		t.Fatalf("activeTab = %d, want %d", got, tabRunway)
	}

	// Clicks below the tab bar are ignored.
	m, _ = m.(App).Update(tea.MouseMsg{X: 1, Y: 3, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	if got := m.(App).activeTab; got != tabRunway {
		t.Fatalf("activeTab after body click = %d, want %d", got, tabRunway)
	}
}

func tabWidthForTest(tabIdx, activeIdx int) int {
	nameWidths := []int{
		len("Decision"),
		len("Runway"),
		len("Debts"),
		len("Goals"),
		len("Settings"),
	}

	w := nameWidths[tabIdx] + 2 // horizontal padding in tab renderer
	if tabIdx != activeIdx {
		w += 2 // "[" and "]" around the shortcut
		if tabIdx == 4 {
			w++ // Settings appends its key
		}
	}
	return w
}
