package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mthorp/stenopad/internal/steno"
)

// Messages fed into the tape program via Program.Send from the read loop.
type (
	// StrokeMsg appends a completed stroke to the tape.
	StrokeMsg struct{ Stroke steno.Stroke }
	// ChordMsg replaces the live chord line with the keys currently held.
	ChordMsg struct{ Chord steno.Stroke }
	// StatusMsg replaces the status line (device state, reloads).
	StatusMsg struct{ Text string }
)

const tapeRows = 12

// tapeModel renders strokes the way a stenotype paper tape does: one row per
// stroke, each key printed in its own fixed column.
type tapeModel struct {
	rows   []string
	chord  steno.Stroke
	status string
}

func newTapeModel() tapeModel {
	return tapeModel{status: "waiting for input"}
}

func (m tapeModel) Init() tea.Cmd {
	return nil
}

func (m tapeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
	case StrokeMsg:
		m.rows = append(m.rows, tapeRow(msg.Stroke))
		if len(m.rows) > tapeRows {
			m.rows = m.rows[len(m.rows)-tapeRows:]
		}
		m.chord = nil
	case ChordMsg:
		m.chord = msg.Chord
	case StatusMsg:
		m.status = msg.Text
	}
	return m, nil
}

func (m tapeModel) View() string {
	var b strings.Builder

	b.WriteString(Title("stenopad tape"))
	b.WriteString("\n")

	var body strings.Builder
	body.WriteString(TapeRuleStyle.Render(tapeHeader()))
	body.WriteString("\n")
	for i := len(m.rows); i < tapeRows; i++ {
		body.WriteString("\n")
	}
	for _, row := range m.rows {
		body.WriteString(TapeKeyStyle.Render(row))
		body.WriteString("\n")
	}
	b.WriteString(TapeBoxStyle.Render(strings.TrimRight(body.String(), "\n")))
	b.WriteString("\n")

	if len(m.chord) > 0 {
		b.WriteString(ChordStyle.Render("chord: " + m.chord.String()))
	} else {
		b.WriteString(Muted("chord: -"))
	}
	b.WriteString("\n")
	b.WriteString(Muted(m.status))
	b.WriteString("\n")
	b.WriteString(Muted("q to quit"))
	b.WriteString("\n")

	return b.String()
}

// tapeHeader is the column ruler: one letter per key of the alphabet.
func tapeHeader() string {
	var b strings.Builder
	for _, k := range steno.AllKeys() {
		b.WriteString(k.Letter())
	}
	return b.String()
}

// tapeRow places each of the stroke's keys in its alphabet column.
func tapeRow(stroke steno.Stroke) string {
	present := make(map[steno.Key]bool, len(stroke))
	for _, k := range stroke {
		present[k] = true
	}
	var b strings.Builder
	for _, k := range steno.AllKeys() {
		if present[k] {
			b.WriteString(k.Letter())
		} else {
			b.WriteString(" ")
		}
	}
	return b.String()
}

// NewTapeProgram creates the interactive tape program. The caller pumps
// StrokeMsg/ChordMsg/StatusMsg into it with Send and runs it on the main
// goroutine.
func NewTapeProgram() *tea.Program {
	return tea.NewProgram(newTapeModel())
}

// FormatStroke renders a stroke for plain log output.
func FormatStroke(stroke steno.Stroke) string {
	return fmt.Sprintf("%s  %s", tapeRow(stroke), stroke.String())
}
