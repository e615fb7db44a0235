package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type JournalTestSuite struct {
	suite.Suite
	ctx context.Context
}

func TestJournalSuite(t *testing.T) {
	suite.Run(t, new(JournalTestSuite))
}

func (suite *JournalTestSuite) SetupTest() {
	suite.ctx = context.Background()
}

func (suite *JournalTestSuite) entry(runID string, minute int) Entry {
	t := time.Date(2024, 1, 2, 9, 30+minute, 0, 0, time.UTC)
	asset := types.Equity("AAPL")

	account := types.NewAccount(1000, "USD")
	account.Positions[asset] = &types.Position{Asset: asset, Quantity: 2, AveragePrice: 100, MarketPrice: 101}

	return Entry{
		RunID:   runID,
		Event:   types.NewEvent(t, types.Bar{Asset: asset, Time: t, Open: 100, High: 102, Low: 99, Close: 101, Volume: 10}),
		Account: *account,
		Signals: []types.Signal{
			types.NewBuySignal(asset, t, "breakout", "new high"),
		},
		Instructions: []types.Instruction{
			{ID: "fill-1", Asset: asset, Quantity: 2, Price: 101, Fee: 1, Time: t, Strategy: "breakout", Reason: "new high"},
		},
	}
}

func (suite *JournalTestSuite) TestMemoryRecordsCopies() {
	memory := NewMemory()
	entry := suite.entry("run", 0)

	suite.Require().NoError(memory.Record(suite.ctx, entry))

	entry.Account.Positions[types.Equity("AAPL")].Quantity = 50

	entries := memory.Entries()
	suite.Require().Len(entries, 1)
	suite.Equal(2.0, entries[0].Account.Positions[types.Equity("AAPL")].Quantity)
}

func (suite *JournalTestSuite) TestMemoryRejectsAfterClose() {
	memory := NewMemory()
	suite.Require().NoError(memory.Close())

	err := memory.Record(suite.ctx, suite.entry("run", 0))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeJournalClosed))
}

func (suite *JournalTestSuite) TestDuckDBSummary() {
	journal, err := NewDuckDB(suite.ctx, "", nil)
	suite.Require().NoError(err)
	defer journal.Close()

	suite.Require().NoError(journal.Record(suite.ctx, suite.entry("run-a", 0)))
	suite.Require().NoError(journal.Record(suite.ctx, suite.entry("run-a", 1)))
	suite.Require().NoError(journal.Record(suite.ctx, suite.entry("run-b", 0)))

	summary, err := journal.Summary(suite.ctx, "run-a")
	suite.Require().NoError(err)
	suite.Equal(Summary{Events: 2, Signals: 2, Instructions: 2, TotalFees: 2}, summary)

	empty, err := journal.Summary(suite.ctx, "missing")
	suite.Require().NoError(err)
	suite.Equal(Summary{}, empty)
}

func (suite *JournalTestSuite) TestDuckDBEntryWithoutFills() {
	journal, err := NewDuckDB(suite.ctx, "", nil)
	suite.Require().NoError(err)
	defer journal.Close()

	entry := suite.entry("run", 0)
	entry.Signals = nil
	entry.Instructions = nil

	suite.Require().NoError(journal.Record(suite.ctx, entry))

	summary, err := journal.Summary(suite.ctx, "run")
	suite.Require().NoError(err)
	suite.Equal(1, summary.Events)
	suite.Zero(summary.Instructions)
}

func (suite *JournalTestSuite) TestDuckDBExport() {
	journal, err := NewDuckDB(suite.ctx, "", nil)
	suite.Require().NoError(err)
	defer journal.Close()

	suite.Require().NoError(journal.Record(suite.ctx, suite.entry("run", 0)))

	dir := filepath.Join(suite.T().TempDir(), "export")
	suite.Require().NoError(journal.Export(suite.ctx, dir))

	for _, table := range []string{"accounts", "signals", "instructions"} {
		_, err := os.Stat(filepath.Join(dir, table+".parquet"))
		suite.NoError(err, table)
	}
}

func (suite *JournalTestSuite) TestDuckDBRejectsAfterClose() {
	journal, err := NewDuckDB(suite.ctx, "", nil)
	suite.Require().NoError(err)
	suite.Require().NoError(journal.Close())
	suite.Require().NoError(journal.Close())

	err = journal.Record(suite.ctx, suite.entry("run", 0))
	suite.True(errors.HasCode(err, errors.ErrCodeJournalClosed))
}

func (suite *JournalTestSuite) TestRegistrySharesJournal() {
	registry := NewRegistry(nil)
	defer registry.Close()

	path := filepath.Join(suite.T().TempDir(), "journal.db")

	first, err := registry.Open(suite.ctx, path)
	suite.Require().NoError(err)
	second, err := registry.Open(suite.ctx, path)
	suite.Require().NoError(err)

	suite.Same(first.DuckDB, second.DuckDB)
	suite.Equal(2, registry.Refs(path))

	suite.Require().NoError(first.Record(suite.ctx, suite.entry("run", 0)))
	suite.Require().NoError(first.Close())
	suite.Require().NoError(first.Close())
	suite.Equal(1, registry.Refs(path))

	suite.Require().NoError(second.Record(suite.ctx, suite.entry("run", 1)))

	summary, err := second.Summary(suite.ctx, "run")
	suite.Require().NoError(err)
	suite.Equal(2, summary.Events)

	suite.Require().NoError(second.Close())
	suite.Zero(registry.Refs(path))

	err = second.Record(suite.ctx, suite.entry("run", 2))
	suite.True(errors.HasCode(err, errors.ErrCodeJournalClosed))
}

func (suite *JournalTestSuite) TestRegistryReopensAfterRelease() {
	registry := NewRegistry(nil)
	defer registry.Close()

	path := filepath.Join(suite.T().TempDir(), "journal.db")

	handle, err := registry.Open(suite.ctx, path)
	suite.Require().NoError(err)
	suite.Require().NoError(handle.Record(suite.ctx, suite.entry("run", 0)))
	suite.Require().NoError(handle.Close())

	reopened, err := registry.Open(suite.ctx, path)
	suite.Require().NoError(err)
	defer reopened.Close()

	summary, err := reopened.Summary(suite.ctx, "run")
	suite.Require().NoError(err)
	suite.Equal(1, summary.Events)
}

func (suite *JournalTestSuite) TestDuckDBRunsAndInstructions() {
	journal, err := NewDuckDB(suite.ctx, "", nil)
	suite.Require().NoError(err)
	defer journal.Close()

	second := suite.entry("run-b", 5)
	second.Instructions = append(second.Instructions, types.Instruction{
		ID:       "fill-2",
		Asset:    types.Crypto("BTC"),
		Quantity: -0.5,
		Price:    42000,
		Time:     second.Event.Time,
		Strategy: "breakout",
	})

	suite.Require().NoError(journal.Record(suite.ctx, suite.entry("run-a", 0)))
	suite.Require().NoError(journal.Record(suite.ctx, suite.entry("run-a", 1)))
	suite.Require().NoError(journal.Record(suite.ctx, second))

	runs, err := journal.Runs(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(runs, 2)
	suite.Equal("run-a", runs[0].RunID)
	suite.Equal(2, runs[0].Events)
	suite.True(runs[0].Last.After(runs[0].First))
	suite.Equal("run-b", runs[1].RunID)

	instructions, err := journal.Instructions(suite.ctx, "run-b", nil)
	suite.Require().NoError(err)
	suite.Require().Len(instructions, 2)

	filtered, err := journal.Instructions(suite.ctx, "run-b", []string{"BTC"})
	suite.Require().NoError(err)
	suite.Require().Len(filtered, 1)
	suite.Equal(types.Crypto("BTC"), filtered[0].Asset)
	suite.Equal(-0.5, filtered[0].Quantity)
	suite.Equal("fill-2", filtered[0].ID)
}
