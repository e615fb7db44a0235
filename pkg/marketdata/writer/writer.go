// Package writer stores downloaded bars in a file the backtest data source can read.
package writer

import (
	"context"

	"github.com/rxtech-lab/argo-sim/internal/types"
)

// BarWriter persists downloaded bars.
type BarWriter interface {
	// Initialize prepares the destination. It must be called before Write.
	Initialize(ctx context.Context) error
	// Write stores one bar.
	Write(bar types.Bar) error
	// Finalize flushes the written bars and returns the path of the output file.
	Finalize(ctx context.Context) (outputPath string, err error)
	// Close releases the resources held by the writer. Safe to call more than once.
	Close() error
	// OutputPath returns the configured output file path.
	OutputPath() string
}
