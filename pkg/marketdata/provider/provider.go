// Package provider downloads historical bars from market data vendors.
package provider

import (
	"context"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-sim/pkg/marketdata/writer"
)

// OnDownloadProgress reports download progress. current and total are relative to the
// start of the requested range.
type OnDownloadProgress = func(current float64, total float64, message string)

// Provider downloads historical bars into a writer.
type Provider interface {
	// ConfigWriter sets the writer downloaded bars go to.
	ConfigWriter(writer writer.BarWriter)
	// Download fetches the bars of ticker in [startDate, endDate], writes them and returns
	// the output path of the writer. The writer is initialized and finalized here; closing
	// it is left to the caller.
	Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, multiplier int, timespan models.Timespan, onProgress OnDownloadProgress) (path string, err error)
}

func reportProgress(onProgress OnDownloadProgress, current float64, total float64, message string) {
	if onProgress == nil {
		return
	}

	onProgress(current, total, message)
}
