// Package journal records what happened at every event of a run.
package journal

import (
	"context"

	"github.com/rxtech-lab/argo-sim/internal/types"
)

// Entry is the record of one processed event.
type Entry struct {
	// RunID identifies the run the entry belongs to
	RunID string
	// Event is the processed event
	Event types.Event
	// Account is the account state after the event
	Account types.Account
	// Signals are the resolved signals of the event
	Signals []types.Signal
	// Instructions are the fills of the event
	Instructions []types.Instruction
}

// Sink receives one entry per processed event.
type Sink interface {
	Record(ctx context.Context, entry Entry) error
	Close() error
}
