package main

import (
	"github.com/rxtech-lab/argo-sim/internal/journal"
	"github.com/rxtech-lab/argo-sim/internal/types"
)

// RunsLoadedMsg carries the runs found in the journal.
type RunsLoadedMsg struct {
	Runs []journal.RunSummary
}

// InstructionsLoadedMsg carries the fills of the selected run.
type InstructionsLoadedMsg struct {
	Instructions []types.Instruction
}

// LoadErrorMsg indicates a failed journal query.
type LoadErrorMsg struct {
	Err error
}
