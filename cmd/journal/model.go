package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rxtech-lab/argo-sim/internal/journal"
	"github.com/rxtech-lab/argo-sim/internal/types"
)

// Application states.
const (
	StateRunSelect = iota
	StateSymbolInput
	StateFillDisplay
)

// Reader is the part of the journal the browser queries.
type Reader interface {
	Runs(ctx context.Context) ([]journal.RunSummary, error)
	Instructions(ctx context.Context, runID string, symbols []string) ([]types.Instruction, error)
}

// Model is the Bubble Tea model of the journal browser.
type Model struct {
	state        int
	reader       Reader
	runList      list.Model
	symbolInput  textinput.Model
	fillTable    table.Model
	runID        string
	symbols      []string
	instructions []types.Instruction
	loaded       bool
	err          error
	width        int
	height       int
}

// NewModel creates a browser over reader.
func NewModel(reader Reader) Model {
	return Model{
		state:       StateRunSelect,
		reader:      reader,
		runList:     NewRunList(),
		symbolInput: NewSymbolInput(),
		fillTable:   NewFillTable(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.loadRuns()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.state != StateSymbolInput {
				return m, tea.Quit
			}
		case "esc":
			return m.handleEsc()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.runList.SetSize(msg.Width, msg.Height-4)
		m.fillTable.SetWidth(msg.Width)
		m.fillTable.SetHeight(msg.Height - 6)

		return m, nil

	case RunsLoadedMsg:
		m.err = nil
		cmd := m.runList.SetItems(RunItems(msg.Runs))

		return m, cmd

	case InstructionsLoadedMsg:
		m.err = nil
		m.loaded = true
		m.instructions = msg.Instructions
		m.fillTable = UpdateTableRows(m.fillTable, msg.Instructions)

		return m, nil

	case LoadErrorMsg:
		m.err = msg.Err

		return m, nil
	}

	switch m.state {
	case StateRunSelect:
		return m.updateRunSelect(msg)
	case StateSymbolInput:
		return m.updateSymbolInput(msg)
	case StateFillDisplay:
		return m.updateFillDisplay(msg)
	}

	return m, nil
}

func (m Model) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case StateSymbolInput:
		m.symbolInput.Blur()
		m.state = StateRunSelect
	case StateFillDisplay:
		m.instructions = nil
		m.loaded = false
		m.symbols = nil
		m.err = nil
		m.fillTable = UpdateTableRows(m.fillTable, nil)
		m.symbolInput.Reset()
		m.state = StateSymbolInput

		return m, m.symbolInput.Focus()
	}

	return m, nil
}

func (m Model) updateRunSelect(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		if item, ok := m.runList.SelectedItem().(listItem); ok {
			m.runID = item.name
			m.state = StateSymbolInput

			return m, m.symbolInput.Focus()
		}
	}

	var cmd tea.Cmd
	m.runList, cmd = m.runList.Update(msg)

	return m, cmd
}

func (m Model) updateSymbolInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		m.symbols = ParseSymbols(m.symbolInput.Value())
		m.symbolInput.Blur()
		m.state = StateFillDisplay

		return m, m.loadInstructions()
	}

	var cmd tea.Cmd
	m.symbolInput, cmd = m.symbolInput.Update(msg)

	return m, cmd
}

func (m Model) updateFillDisplay(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.fillTable, cmd = m.fillTable.Update(msg)

	return m, cmd
}

func (m Model) loadRuns() tea.Cmd {
	reader := m.reader

	return func() tea.Msg {
		runs, err := reader.Runs(context.Background())
		if err != nil {
			return LoadErrorMsg{Err: err}
		}

		return RunsLoadedMsg{Runs: runs}
	}
}

func (m Model) loadInstructions() tea.Cmd {
	reader, runID, symbols := m.reader, m.runID, m.symbols

	return func() tea.Msg {
		instructions, err := reader.Instructions(context.Background(), runID, symbols)
		if err != nil {
			return LoadErrorMsg{Err: err}
		}

		return InstructionsLoadedMsg{Instructions: instructions}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var s strings.Builder

	switch m.state {
	case StateRunSelect:
		s.WriteString(TitleStyle.Render("Argo Sim - Journal"))
		s.WriteString("\n\n")

		if m.err != nil {
			s.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			s.WriteString("\n\n")
		}

		if len(m.runList.Items()) == 0 {
			s.WriteString("No runs recorded yet.\n")
		} else {
			s.WriteString(m.runList.View())
		}

		s.WriteString("\n")
		s.WriteString(HelpStyle.Render("Press Enter to select, q to quit"))

	case StateSymbolInput:
		s.WriteString(TitleStyle.Render("Filter Symbols"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Run %s. Enter comma-separated symbols:\n\n", m.runID))
		s.WriteString(m.symbolInput.View())
		s.WriteString("\n\n")
		s.WriteString(HelpStyle.Render("Press Enter to confirm, Esc to go back"))

	case StateFillDisplay:
		s.WriteString(TitleStyle.Render(fmt.Sprintf("Fills - %s", m.runID)))
		s.WriteString("\n\n")

		if m.err != nil {
			s.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			s.WriteString("\n\n")
		}

		switch {
		case !m.loaded:
			s.WriteString("Loading fills...\n")
		case len(m.instructions) == 0:
			s.WriteString("No fills.\n")
		default:
			s.WriteString(m.fillTable.View())
		}

		filter := "all symbols"
		if len(m.symbols) > 0 {
			filter = strings.Join(m.symbols, ", ")
		}

		s.WriteString("\n")
		s.WriteString(HelpStyle.Render(fmt.Sprintf("q: quit | Esc: back | Showing: %s", filter)))
	}

	return s.String()
}
