package provider

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-sim/internal/logger"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"github.com/rxtech-lab/argo-sim/pkg/marketdata/writer"
	"go.uber.org/zap"
)

const polygonPageLimit = 50000

// PolygonAggsIterator is the aggregate iterator returned by the Polygon REST client.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient is the part of the Polygon REST client used for downloads.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
}

type polygonAPIWrapper struct {
	client *polygon.Client
}

func (w *polygonAPIWrapper) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return w.client.ListAggs(ctx, params, options...)
}

// PolygonClient downloads US equity aggregates from Polygon.io.
type PolygonClient struct {
	apiClient PolygonAPIClient
	writer    writer.BarWriter
	logger    *logger.Logger
}

// NewPolygonClient creates a Polygon provider authenticated with apiKey.
func NewPolygonClient(apiKey string, log *logger.Logger) (*PolygonClient, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "polygon provider requires an api key")
	}

	client := NewPolygonClientWithAPI(&polygonAPIWrapper{client: polygon.New(apiKey)})
	if log != nil {
		client.logger = log
	}

	return client, nil
}

// NewPolygonClientWithAPI creates a Polygon provider over api.
func NewPolygonClientWithAPI(api PolygonAPIClient) *PolygonClient {
	return &PolygonClient{
		apiClient: api,
		logger:    logger.NewNop(),
	}
}

// ConfigWriter implements Provider.
func (c *PolygonClient) ConfigWriter(w writer.BarWriter) {
	c.writer = w
}

// Download implements Provider. Bars are written as equities.
func (c *PolygonClient) Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, multiplier int, timespan models.Timespan, onProgress OnDownloadProgress) (string, error) {
	if c.writer == nil {
		return "", errors.New(errors.ErrCodeInvalidConfiguration, "no writer configured for the polygon provider")
	}

	if err := c.writer.Initialize(ctx); err != nil {
		return "", err
	}

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     ticker,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(startDate),
		To:         models.Millis(endDate),
	}.WithLimit(polygonPageLimit)

	aggs := c.apiClient.ListAggs(ctx, params)
	asset := types.Equity(ticker)
	total := endDate.Sub(startDate).Seconds()
	message := fmt.Sprintf("Downloading %s", ticker)
	count := 0

	for aggs.Next() {
		agg := aggs.Item()
		bar := types.Bar{
			Asset:  asset,
			Time:   time.Time(agg.Timestamp),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		}

		if err := c.writer.Write(bar); err != nil {
			return "", err
		}

		count++
		reportProgress(onProgress, bar.Time.Sub(startDate).Seconds(), total, message)
	}

	if err := aggs.Err(); err != nil {
		return "", errors.Wrapf(errors.ErrCodeDownloadFailed, err, "failed to list polygon aggregates for %s", ticker)
	}

	reportProgress(onProgress, total, total, message)

	c.logger.Info("Downloaded bars", zap.String("provider", "polygon"), zap.String("ticker", ticker), zap.Int("bars", count))

	return c.writer.Finalize(ctx)
}
