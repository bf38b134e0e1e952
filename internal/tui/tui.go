// Package tui is the terminal version of the contacts search: three text inputs and a results
// table below them.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/render"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/ui"
	"gitlab.com/dirk.krummacker/contacts-frontend/pkg/model"
	"go.uber.org/zap"
)

const (
	firstName = iota
	lastName
	email
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	mutedStyle  = lipgloss.NewStyle().Faint(true)
	resultStyle = lipgloss.NewStyle().MarginTop(1)
)

// searchDoneMsg reports the end of a search started with enter.
type searchDoneMsg struct {
	err error
}

// Model is the bubbletea model of the search screen.
type Model struct {
	ctx       context.Context
	searcher  *ui.Searcher
	results   *ui.Results
	inputs    []textinput.Model
	focus     int
	searching bool
	searched  bool
	status    string
}

// New returns the search screen. Searches run with ctx.
func New(ctx context.Context, api ui.SearchAPI, logger *zap.Logger) Model {
	m := Model{
		ctx: ctx,
		searcher: &ui.Searcher{
			API: api,
			Render: func(contacts []model.Contact) (string, error) {
				return render.TerminalTable(contacts), nil
			},
			Logger: logger,
		},
		results: &ui.Results{},
		inputs:  make([]textinput.Model, 3),
	}
	for i, placeholder := range []string{"First Name", "Last Name", "Email"} {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.Placeholder = placeholder
		ti.CharLimit = 100
		m.inputs[i] = ti
	}
	m.inputs[firstName].Focus()
	return m
}

// Run shows the search screen until the user quits.
func Run(ctx context.Context, api ui.SearchAPI, logger *zap.Logger) error {
	_, err := tea.NewProgram(New(ctx, api, logger), tea.WithContext(ctx)).Run()
	return err
}

// Form returns the current content of the inputs.
func (m Model) Form() ui.Form {
	return ui.Form{
		FirstName: m.inputs[firstName].Value(),
		LastName:  m.inputs[lastName].Value(),
		Email:     m.inputs[email].Value(),
	}
}

// Results returns the content of the results region.
func (m Model) Results() string {
	return m.results.Content()
}

// Status returns the status line.
func (m Model) Status() string {
	return m.status
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			return m, m.focusInput((m.focus + 1) % len(m.inputs))
		case "shift+tab":
			return m, m.focusInput((m.focus + len(m.inputs) - 1) % len(m.inputs))
		case "enter":
			if m.searching {
				return m, nil
			}
			m.searching = true
			m.status = "Searching..."
			return m, m.search(m.Form())
		}
	case searchDoneMsg:
		m.searching = false
		m.searched = true
		m.status = ""
		if msg.err != nil {
			m.status = "Search failed: " + msg.err.Error()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) focusInput(i int) tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = i
	return m.inputs[m.focus].Focus()
}

// search runs outside the update loop. The results container is replaced there; the model only
// learns about the outcome.
func (m Model) search(form ui.Form) tea.Cmd {
	ctx, searcher, results := m.ctx, m.searcher, m.results
	return func() tea.Msg {
		return searchDoneMsg{err: searcher.Search(ctx, form, results)}
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Search contacts"))
	b.WriteString("\n\n")
	for _, input := range m.inputs {
		b.WriteString(input.View())
		b.WriteString("\n")
	}

	if content := m.results.Content(); content != "" {
		b.WriteString(resultStyle.Render(content))
	} else if !m.searched {
		b.WriteString(resultStyle.Render(mutedStyle.Render("Enter a name or an email address.")))
	}
	b.WriteString("\n")

	if m.status != "" {
		style := helpStyle
		if !m.searching {
			style = errorStyle
		}
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("tab: next field • enter: search • esc: quit"))
	b.WriteString("\n")
	return b.String()
}
