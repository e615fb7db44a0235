package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/rxtech-lab/argo-sim/internal/journal"
	"github.com/rxtech-lab/argo-sim/internal/types"
)

// listItem implements list.Item for the run list.
type listItem struct {
	name        string
	description string
}

func (i listItem) Title() string       { return i.name }
func (i listItem) Description() string { return i.description }
func (i listItem) FilterValue() string { return i.name }

// NewRunList creates an empty list for run selection.
func NewRunList() list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Select Run"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return l
}

// RunItems converts run summaries into list items.
func RunItems(runs []journal.RunSummary) []list.Item {
	items := make([]list.Item, 0, len(runs))

	for _, run := range runs {
		items = append(items, listItem{
			name: run.RunID,
			description: fmt.Sprintf("%d events, %s to %s", run.Events,
				run.First.Format("2006-01-02 15:04"), run.Last.Format("2006-01-02 15:04")),
		})
	}

	return items
}

// NewSymbolInput creates a text input for the symbol filter.
func NewSymbolInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "AAPL,MSFT (empty for all)"
	ti.CharLimit = 200
	ti.Width = 50
	ti.Prompt = "> "

	return ti
}

// ParseSymbols parses comma-separated symbols into a slice.
func ParseSymbols(input string) []string {
	parts := strings.Split(input, ",")
	symbols := make([]string, 0, len(parts))

	for _, p := range parts {
		s := strings.TrimSpace(strings.ToUpper(p))
		if s != "" {
			symbols = append(symbols, s)
		}
	}

	return symbols
}

// NewFillTable creates the table listing fills.
func NewFillTable() table.Model {
	columns := []table.Column{
		{Title: "Time", Width: 19},
		{Title: "Symbol", Width: 10},
		{Title: "Quantity", Width: 16},
		{Title: "Price", Width: 12},
		{Title: "Fee", Width: 8},
		{Title: "Strategy", Width: 24},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)

	t.SetStyles(s)

	return t
}

// UpdateTableRows replaces the table rows with instructions, in the given order.
func UpdateTableRows(t table.Model, instructions []types.Instruction) table.Model {
	rows := make([]table.Row, 0, len(instructions))

	for _, instruction := range instructions {
		rows = append(rows, table.Row{
			instruction.Time.Format("2006-01-02 15:04:05"),
			instruction.Asset.Symbol,
			FormatQuantity(instruction.Quantity),
			fmt.Sprintf("%.4f", instruction.Price),
			fmt.Sprintf("%.2f", instruction.Fee),
			instruction.Strategy,
		})
	}

	t.SetRows(rows)

	return t
}
