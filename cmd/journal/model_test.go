package main

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/rxtech-lab/argo-sim/internal/journal"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/stretchr/testify/assert"
)

type fakeReader struct {
	runs         []journal.RunSummary
	instructions []types.Instruction
	err          error
	symbols      []string
}

func (f *fakeReader) Runs(_ context.Context) ([]journal.RunSummary, error) {
	return f.runs, f.err
}

func (f *fakeReader) Instructions(_ context.Context, _ string, symbols []string) ([]types.Instruction, error) {
	f.symbols = symbols

	return f.instructions, f.err
}

func newFakeReader() *fakeReader {
	start := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

	return &fakeReader{
		runs: []journal.RunSummary{
			{RunID: "run-one", Events: 3, First: start, Last: start.Add(2 * time.Minute)},
		},
		instructions: []types.Instruction{
			{ID: "1", Asset: types.Equity("AAPL"), Quantity: 10, Price: 185.2, Time: start, Strategy: "breakout"},
		},
	}
}

func TestNewModel(t *testing.T) {
	m := NewModel(newFakeReader())

	assert.Equal(t, StateRunSelect, m.state)
	assert.Empty(t, m.runID)
	assert.Empty(t, m.symbols)
	assert.False(t, m.loaded)
}

func TestParseSymbols(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "single symbol", input: "AAPL", expected: []string{"AAPL"}},
		{name: "with spaces", input: "AAPL, MSFT ", expected: []string{"AAPL", "MSFT"}},
		{name: "lowercase", input: "aapl,msft", expected: []string{"AAPL", "MSFT"}},
		{name: "empty string", input: "", expected: []string{}},
		{name: "only commas", input: ",,", expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseSymbols(tt.input))
		})
	}
}

func TestBrowseFlow(t *testing.T) {
	reader := newFakeReader()
	tm := teatest.NewTestModel(t, NewModel(reader), teatest.WithInitialTermSize(120, 30))

	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return bytes.Contains(bts, []byte("run-one"))
	}, teatest.WithDuration(2*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return bytes.Contains(bts, []byte("Filter Symbols"))
	}, teatest.WithDuration(2*time.Second))

	tm.Type("aapl")
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return bytes.Contains(bts, []byte("breakout"))
	}, teatest.WithDuration(2*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))

	assert.Equal(t, []string{"AAPL"}, reader.symbols)
}

func TestEmptyJournal(t *testing.T) {
	tm := teatest.NewTestModel(t, NewModel(&fakeReader{}), teatest.WithInitialTermSize(80, 24))

	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return bytes.Contains(bts, []byte("No runs recorded yet"))
	}, teatest.WithDuration(2*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))
}

func TestStateTransitions(t *testing.T) {
	t.Run("esc from symbol input returns to run select", func(t *testing.T) {
		m := NewModel(newFakeReader())
		m.state = StateSymbolInput

		newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		assert.Equal(t, StateRunSelect, newModel.(Model).state)
	})

	t.Run("esc from fill display returns to symbol input", func(t *testing.T) {
		m := NewModel(newFakeReader())
		m.state = StateFillDisplay
		m.runID = "run-one"
		m.symbols = []string{"AAPL"}
		m.loaded = true

		newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		updated := newModel.(Model)

		assert.Equal(t, StateSymbolInput, updated.state)
		assert.Empty(t, updated.symbols)
		assert.False(t, updated.loaded)
		assert.Equal(t, "run-one", updated.runID)
	})

	t.Run("q is typed into the symbol filter", func(t *testing.T) {
		m := NewModel(newFakeReader())
		m.state = StateSymbolInput
		m.symbolInput.Focus()

		newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
		updated := newModel.(Model)

		assert.Equal(t, StateSymbolInput, updated.state)
		assert.Equal(t, "q", updated.symbolInput.Value())
	})
}

func TestLoadMessages(t *testing.T) {
	m := NewModel(newFakeReader())
	m.state = StateFillDisplay

	newModel, _ := m.Update(LoadErrorMsg{Err: fmt.Errorf("journal closed")})
	updated := newModel.(Model)
	assert.Contains(t, updated.View(), "journal closed")

	newModel, _ = updated.Update(InstructionsLoadedMsg{Instructions: newFakeReader().instructions})
	updated = newModel.(Model)
	assert.True(t, updated.loaded)
	assert.Nil(t, updated.err)
	assert.Len(t, updated.fillTable.Rows(), 1)
}

func TestLoadRunsReportsErrors(t *testing.T) {
	m := NewModel(&fakeReader{err: fmt.Errorf("boom")})

	msg, ok := m.Init()().(LoadErrorMsg)
	assert.True(t, ok)
	assert.EqualError(t, msg.Err, "boom")
}

func TestFormatQuantity(t *testing.T) {
	assert.Contains(t, FormatQuantity(5), "▲")
	assert.Contains(t, FormatQuantity(-5), "▼")
	assert.Equal(t, "0.0000", FormatQuantity(0))
}

func TestWindowResize(t *testing.T) {
	m := NewModel(newFakeReader())

	newModel, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	updated := newModel.(Model)

	assert.Equal(t, 120, updated.width)
	assert.Equal(t, 40, updated.height)
}
