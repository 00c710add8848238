package display

import (
	"fmt"
	"os"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"tbon/preeval"
)

// Modeled on the bubbletea sequencer TUI in icco-genidi's internal/tui:
// a single model struct, Init/Update/View, lipgloss styles built once
// and held as package-level variables. Unlike that model this
// one drives no MIDI output at all; it only paginates through an
// already-compiled score, so Update only ever reacts to navigation
// keys and never schedules a tea.Tick.

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5FD7FF"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	metaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#AFD787"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5C5C5C"))
)

type inspectorModel struct {
	name     string
	parts    []int
	timing   map[int]*preeval.PartTiming
	noteN    map[int]int
	meta     []preeval.MetaEvent
	cursor   int
	quitting bool
}

func newInspectorModel(sum Summary) inspectorModel {
	parts := make([]int, 0, len(sum.Parts))
	for n := range sum.Parts {
		parts = append(parts, n)
	}
	sort.Ints(parts)

	noteN := make(map[int]int, len(sum.Notes))
	for n, out := range sum.Notes {
		noteN[n] = len(out.Notes)
	}

	return inspectorModel{
		name:   sum.Name,
		parts:  parts,
		timing: sum.Parts,
		noteN:  noteN,
		meta:   sum.Meta,
	}
}

func (m inspectorModel) Init() tea.Cmd { return nil }

func (m inspectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.parts)-1 {
			m.cursor++
		}
	}
	return m, nil
}

func (m inspectorModel) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.name) + "\n\n")
	b.WriteString(labelStyle.Render(fmt.Sprintf("%d part(s), %d meta event(s)", len(m.parts), len(m.meta))) + "\n\n")

	for i, n := range m.parts {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		bars := 0
		if t := m.timing[n]; t != nil {
			bars = len(t.BeatMap)
		}
		b.WriteString(fmt.Sprintf("%spart %d: %d notes, %d bars\n", cursor, n, m.noteN[n], bars))
	}

	if sel := m.timing[m.parts[clamp(m.cursor, 0, len(m.parts)-1)]]; sel != nil {
		b.WriteString("\n" + labelStyle.Render("beat map:") + "\n")
		b.WriteString(metaStyle.Render(beatMapLine(sel.BeatMap)) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("↑/↓ select part · q quit") + "\n")
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func beatMapLine(beatMap []int) string {
	fields := make([]string, len(beatMap))
	for i, n := range beatMap {
		fields[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(fields, " ")
}

// RunInspector launches the interactive inspector when stdout is a
// terminal, falling back to PrintScore otherwise.
func RunInspector(sum Summary, firstBar int) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		PrintScore(sum, firstBar, false)
		return nil
	}
	p := tea.NewProgram(newInspectorModel(sum))
	_, err := p.Run()
	return err
}
