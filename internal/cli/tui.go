package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/sheetslicer/pkg/integrations/arkhamdb"
	"github.com/matzehuels/sheetslicer/pkg/lookup"
)

var (
	pickerPromptStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	pickerDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
)

// pickerSlot is the only lookup slot the picker uses.
const pickerSlot = "picker"

// =============================================================================
// CardPicker - Interactive card search
// =============================================================================

// resultMsg carries a finished search from the coordinator.
type resultMsg lookup.Result

// CardPicker is the bubbletea model for live card search. Every keystroke
// starts a new search in one slot; results of superseded searches never
// reach the model.
type CardPicker struct {
	ctx       context.Context
	co        *lookup.Coordinator
	encounter bool

	Query    string
	Cards    []arkhamdb.Card
	Err      error
	Loading  bool
	Cursor   int
	Offset   int
	Height   int
	Selected *arkhamdb.Card
}

// NewCardPicker creates a picker over co, optionally starting with query.
func NewCardPicker(ctx context.Context, co *lookup.Coordinator, query string, includeEncounters bool) CardPicker {
	m := CardPicker{ctx: ctx, co: co, encounter: includeEncounters, Query: query, Height: 12}
	if query != "" {
		m.search()
	}
	return m
}

func (m CardPicker) Init() tea.Cmd {
	return m.waitForResult
}

// waitForResult is the single consumer of the coordinator. It is re-armed
// after every result.
func (m CardPicker) waitForResult() tea.Msg {
	res, err := m.co.Next(m.ctx)
	if err != nil {
		return nil
	}
	return resultMsg(res)
}

func (m *CardPicker) search() {
	m.Loading = true
	m.co.Search(m.ctx, pickerSlot, m.Query, m.encounter)
}

func (m CardPicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		m.Loading = false
		m.Cards = msg.Cards
		m.Err = msg.Err
		m.Cursor, m.Offset = 0, 0
		return m, m.waitForResult

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.co.Cancel(pickerSlot)
			return m, tea.Quit
		case tea.KeyEnter:
			if len(m.Cards) == 0 {
				return m, nil
			}
			card := m.Cards[m.Cursor]
			m.Selected = &card
			return m, tea.Quit
		case tea.KeyUp:
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case tea.KeyDown:
			if m.Cursor < len(m.Cards)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case tea.KeyTab:
			m.encounter = !m.encounter
			m.search()
		case tea.KeyBackspace:
			if r := []rune(m.Query); len(r) > 0 {
				m.Query = string(r[:len(r)-1])
				m.search()
			}
		case tea.KeySpace:
			m.Query += " "
			m.search()
		case tea.KeyRunes:
			m.Query += string(msg.Runes)
			m.search()
		}

	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-10, 5)
	}
	return m, nil
}

func (m CardPicker) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Find Card"))
	b.WriteString("\n")
	b.WriteString(pickerDimStyle.Render("type to search  ↑/↓ navigate  ⏎ select  tab encounter cards  esc quit"))
	b.WriteString("\n\n")
	b.WriteString(pickerPromptStyle.Render("› ") + m.Query + pickerDimStyle.Render("▏"))
	b.WriteString("\n\n")

	switch {
	case m.Err != nil:
		b.WriteString(StyleError.Render("search failed: " + m.Err.Error()))
	case m.Loading:
		b.WriteString(pickerDimStyle.Render("searching..."))
	case len([]rune(strings.TrimSpace(m.Query))) < arkhamdb.MinQueryLength:
		b.WriteString(pickerDimStyle.Render(fmt.Sprintf("type at least %d characters", arkhamdb.MinQueryLength)))
	case len(m.Cards) == 0:
		b.WriteString(pickerDimStyle.Render("no cards found; name the tile by hand with \"names set\""))
	default:
		end := min(m.Offset+m.Height, len(m.Cards))
		b.WriteString(cardTable(m.Cards[m.Offset:end], m.Offset, m.Cursor))
		b.WriteString("\n")
		b.WriteString(pickerDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Cards))))
	}

	encounter := "off"
	if m.encounter {
		encounter = "on"
	}
	b.WriteString("\n")
	b.WriteString(pickerDimStyle.Render("encounter cards: " + encounter))
	return b.String()
}
